package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/event"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	// AlertTopic additionally receives every event whose verdict is automated.
	AlertTopic  string
	Acks        string
	Compression string

	// SASL config
	SASLMechanism string
	SASLUser      string
	SASLPassword  string

	// TLS config
	TLSCAPath     string
	TLSSkipVerify bool
}

// KafkaSink produces events to Kafka. Messages are keyed by the client IP
// hash so one client's assessments stay ordered on a partition; events
// without one fall back to the event id.
type KafkaSink struct {
	config   KafkaConfig
	producer *kafka.Producer
	logger   *zap.Logger
	onError  func(error)
}

// NewKafkaSinkFromEnv reads KAFKA_BROKERS, KAFKA_TOPIC, KAFKA_ALERT_TOPIC and
// the KAFKA_* security settings.
func NewKafkaSinkFromEnv(logger *zap.Logger) *KafkaSink {
	brokersStr := getEnvOr("KAFKA_BROKERS", "localhost:9092")
	var brokers []string
	for _, broker := range strings.Split(brokersStr, ",") {
		if b := strings.TrimSpace(broker); b != "" {
			brokers = append(brokers, b)
		}
	}

	s := NewKafkaSink(brokers, getEnvOr("KAFKA_TOPIC", "goblade.assessments"), logger)
	s.config.AlertTopic = os.Getenv("KAFKA_ALERT_TOPIC")
	s.config.Acks = getEnvOr("KAFKA_ACKS", "all")
	s.config.Compression = os.Getenv("KAFKA_COMPRESSION")
	s.config.SASLMechanism = os.Getenv("KAFKA_SASL_MECHANISM")
	s.config.SASLUser = os.Getenv("KAFKA_SASL_USER")
	s.config.SASLPassword = os.Getenv("KAFKA_SASL_PASSWORD")
	s.config.TLSCAPath = os.Getenv("KAFKA_TLS_CA")
	s.config.TLSSkipVerify = getBoolEnv("KAFKA_TLS_SKIP_VERIFY", false)
	return s
}

func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{
		config: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
			Acks:    "all",
		},
		logger: logger.Named("kafka"),
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

// OnDeliveryError registers a callback for asynchronous delivery failures.
func (s *KafkaSink) OnDeliveryError(fn func(error)) { s.onError = fn }

func (s *KafkaSink) configMap() kafka.ConfigMap {
	configMap := kafka.ConfigMap{
		"bootstrap.servers": strings.Join(s.config.Brokers, ","),
		"acks":              s.config.Acks,
		"retries":           10,
		"retry.backoff.ms":  100,
		"batch.size":        16384,
		"linger.ms":         10,
	}
	if s.config.Compression != "" {
		configMap["compression.type"] = s.config.Compression
	}
	if s.config.SASLMechanism != "" {
		configMap["security.protocol"] = "SASL_SSL"
		configMap["sasl.mechanism"] = s.config.SASLMechanism
		if s.config.SASLUser != "" {
			configMap["sasl.username"] = s.config.SASLUser
		}
		if s.config.SASLPassword != "" {
			configMap["sasl.password"] = s.config.SASLPassword
		}
	}
	if s.config.TLSCAPath != "" {
		if s.config.SASLMechanism == "" {
			configMap["security.protocol"] = "SSL"
		}
		configMap["ssl.ca.location"] = s.config.TLSCAPath
	}
	if s.config.TLSSkipVerify {
		configMap["ssl.endpoint.identification.algorithm"] = "none"
	}
	return configMap
}

func (s *KafkaSink) Start(ctx context.Context) error {
	configMap := s.configMap()
	producer, err := kafka.NewProducer(&configMap)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	s.producer = producer
	go s.handleDeliveryReports(ctx)
	s.logger.Info("producer started",
		zap.Strings("brokers", s.config.Brokers),
		zap.String("topic", s.config.Topic),
	)
	return nil
}

func (s *KafkaSink) Enqueue(e event.Event) error {
	if s.producer == nil {
		return fmt.Errorf("kafka producer not initialized")
	}
	msgs, err := s.messages(e)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := s.producer.Produce(msg, nil); err != nil {
			return fmt.Errorf("failed to produce to %s: %w", *msg.TopicPartition.Topic, err)
		}
	}
	return nil
}

func isAutomated(e event.Event) bool {
	switch {
	case e.Result != nil && e.Result.IsAutomated:
		return true
	case e.Verdict != nil && !e.Verdict.Passed:
		return true
	}
	return false
}

func messageKey(e event.Event) []byte {
	if e.Server.IPHash != "" {
		return []byte(e.Server.IPHash)
	}
	return []byte(e.EventID)
}

// messages builds the main topic message and, for automated verdicts, the
// alert copy.
func (s *KafkaSink) messages(e event.Event) ([]*kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event: %w", err)
	}
	topics := []string{s.config.Topic}
	if s.config.AlertTopic != "" && isAutomated(e) {
		topics = append(topics, s.config.AlertTopic)
	}
	key, headers := messageKey(e), messageHeaders(e)
	out := make([]*kafka.Message, 0, len(topics))
	for i := range topics {
		out = append(out, &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topics[i], Partition: kafka.PartitionAny},
			Key:            key,
			Value:          value,
			Headers:        headers,
		})
	}
	return out, nil
}

func messageHeaders(e event.Event) []kafka.Header {
	h := []kafka.Header{
		{Key: "event_type", Value: []byte(e.Type)},
		{Key: "event_id", Value: []byte(e.EventID)},
		{Key: "schema", Value: []byte("v1")},
	}
	if e.Result != nil {
		h = append(h,
			kafka.Header{Key: "risk_score", Value: []byte(strconv.Itoa(e.Result.RiskScore))},
			kafka.Header{Key: "automated", Value: []byte(strconv.FormatBool(e.Result.IsAutomated))},
		)
	}
	return h
}

func (s *KafkaSink) Close() error {
	if s.producer == nil {
		return nil
	}
	remaining := s.producer.Flush(10 * 1000)
	s.producer.Close()
	s.producer = nil
	if remaining > 0 {
		return fmt.Errorf("failed to flush %d remaining messages", remaining)
	}
	return nil
}

func (s *KafkaSink) handleDeliveryReports(ctx context.Context) {
	events := s.producer.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case *kafka.Message:
				if err := e.TopicPartition.Error; err != nil {
					s.logger.Warn("delivery failed", zap.ByteString("key", e.Key), zap.Error(err))
					if s.onError != nil {
						s.onError(err)
					}
				}
			case kafka.Error:
				s.logger.Error("client error", zap.Error(e))
			}
		}
	}
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}
