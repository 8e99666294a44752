package sink

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/event"
	"github.com/shortontech/goblade/internal/metrics"
)

// Fanout delivers each event to every configured sink. A failing sink is
// logged and counted; it never blocks delivery to the others.
type Fanout struct {
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewFanout(m *metrics.Metrics, logger *zap.Logger, sinks ...Sink) *Fanout {
	if m == nil {
		m = metrics.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, metrics: m, logger: logger.Named("sink")}
}

// Sinks returns the configured sinks in delivery order.
func (f *Fanout) Sinks() []Sink { return f.sinks }

// Start starts every sink, closing the ones already started when one fails.
func (f *Fanout) Start(ctx context.Context) error {
	for i, s := range f.sinks {
		if k, ok := s.(*KafkaSink); ok {
			name := k.Name()
			k.OnDeliveryError(func(error) { f.metrics.IncrementSinkErrors(name, "delivery") })
		}
		if err := s.Start(ctx); err != nil {
			for _, started := range f.sinks[:i] {
				_ = started.Close()
			}
			return fmt.Errorf("start %s sink: %w", s.Name(), err)
		}
		f.logger.Info("sink ready", zap.String("sink", s.Name()))
	}
	return nil
}

func (f *Fanout) Enqueue(e event.Event) {
	for _, s := range f.sinks {
		if err := s.Enqueue(e); err != nil {
			f.metrics.IncrementSinkErrors(s.Name(), "enqueue")
			f.logger.Warn("enqueue failed",
				zap.String("sink", s.Name()),
				zap.String("event_id", e.EventID),
				zap.Error(err),
			)
			continue
		}
		f.metrics.IncrementSinkEvents(s.Name())
	}
}

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
