// Package metrics exposes goblade's Prometheus collectors and the optional
// scrape server.
package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds every collector goblade records.
type Metrics struct {
	registry *prometheus.Registry

	// Counters
	Evaluations   *prometheus.CounterVec
	Categories    *prometheus.CounterVec
	SinkEvents    *prometheus.CounterVec
	SinkErrors    *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	ProbeFailures prometheus.Counter

	// Histograms
	RiskScore         prometheus.Histogram
	BatchFlushLatency *prometheus.HistogramVec
	HTTPDuration      *prometheus.HistogramVec
}

// Config holds configuration for the metrics server
type Config struct {
	Enabled    bool
	Addr       string
	TLSCert    string
	TLSKey     string
	ClientCA   string
	RequireTLS bool
}

// LoadConfig loads metrics configuration from environment variables
func LoadConfig() Config {
	return Config{
		Enabled:    getBool("METRICS_ENABLED", false),
		Addr:       getOr("METRICS_ADDR", "127.0.0.1:9090"),
		TLSCert:    getOr("METRICS_TLS_CERT", ""),
		TLSKey:     getOr("METRICS_TLS_KEY", ""),
		ClientCA:   getOr("METRICS_CLIENT_CA", ""),
		RequireTLS: getBool("METRICS_REQUIRE_TLS", false),
	}
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goblade_evaluations_total",
				Help: "Completed evaluations by verdict",
			},
			[]string{"verdict"},
		),

		Categories: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goblade_categories_triggered_total",
				Help: "Evaluations in which a detection category fired",
			},
			[]string{"category"},
		),

		SinkEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goblade_sink_events_total",
				Help: "Events accepted by sink",
			},
			[]string{"sink"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goblade_sink_errors_total",
				Help: "Total errors writing to a sink",
			},
			[]string{"sink", "error_type"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goblade_http_requests_total",
				Help: "Total HTTP requests by endpoint and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		ProbeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "goblade_probe_failures_total",
				Help: "Probes that failed and were reported as detection errors",
			},
		),

		RiskScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "goblade_risk_score",
				Help:    "Distribution of evaluation risk scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),

		BatchFlushLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goblade_batch_flush_latency_seconds",
				Help:    "Latency of flushing a batch to sinks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goblade_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
	}

	m.registry.MustRegister(
		m.Evaluations,
		m.Categories,
		m.SinkEvents,
		m.SinkErrors,
		m.HTTPRequests,
		m.ProbeFailures,
		m.RiskScore,
		m.BatchFlushLatency,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide instance.
func Default() *Metrics {
	defaultOnce.Do(func() { defaultMetrics = New() })
	return defaultMetrics
}

// Verdict labels for Evaluations.
const (
	VerdictHuman     = "human"
	VerdictAutomated = "automated"
)

// ObserveEvaluation records one evaluation: its verdict, its score and the
// categories that fired.
func (m *Metrics) ObserveEvaluation(automated bool, score int, categories []string) {
	verdict := VerdictHuman
	if automated {
		verdict = VerdictAutomated
	}
	m.Evaluations.WithLabelValues(verdict).Inc()
	m.RiskScore.Observe(float64(score))
	for _, c := range categories {
		m.Categories.WithLabelValues(c).Inc()
	}
}

func (m *Metrics) IncrementProbeFailures() { m.ProbeFailures.Inc() }

func (m *Metrics) IncrementSinkEvents(sink string) {
	m.SinkEvents.WithLabelValues(sink).Inc()
}

func (m *Metrics) IncrementSinkErrors(sink, errorType string) {
	m.SinkErrors.WithLabelValues(sink, errorType).Inc()
}

func (m *Metrics) IncrementHTTPRequests(endpoint, method, status string) {
	m.HTTPRequests.WithLabelValues(endpoint, method, status).Inc()
}

func (m *Metrics) ObserveBatchFlushLatency(sink string, duration time.Duration) {
	m.BatchFlushLatency.WithLabelValues(sink).Observe(duration.Seconds())
}

func (m *Metrics) ObserveHTTPDuration(endpoint, method string, duration time.Duration) {
	m.HTTPDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Server serves /metrics and /healthz on a separate listener.
type Server struct {
	server *http.Server
	config Config
	logger *zap.Logger
}

// NewServer builds the scrape server. A client CA that cannot be loaded is
// an error when TLS is required.
func NewServer(config Config, m *Metrics, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if config.tlsEnabled() {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if config.ClientCA != "" {
			clientCAs, err := loadCertPool(config.ClientCA)
			if err != nil {
				return nil, fmt.Errorf("metrics: load client CA: %w", err)
			}
			tlsConfig.ClientCAs = clientCAs
			tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
			logger.Info("mTLS enabled", zap.String("client_ca", config.ClientCA))
		}
		srv.TLSConfig = tlsConfig
	}

	return &Server{server: srv, config: config, logger: logger}, nil
}

func (c Config) tlsEnabled() bool {
	return c.RequireTLS && c.TLSCert != "" && c.TLSKey != ""
}

// Start serves in the background. It is a no-op when metrics are disabled.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Debug("disabled", zap.String("env", "METRICS_ENABLED"))
		return nil
	}

	go func() {
		var err error
		if s.config.tlsEnabled() {
			s.logger.Info("https server listening", zap.String("addr", s.config.Addr))
			err = s.server.ListenAndServeTLS(s.config.TLSCert, s.config.TLSKey)
		} else {
			s.logger.Info("http server listening", zap.String("addr", s.config.Addr))
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the metrics server
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}
	s.logger.Info("shutting down")
	return s.server.Shutdown(ctx)
}

func getOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func loadCertPool(certFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(certFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", certFile)
	}
	return pool, nil
}
