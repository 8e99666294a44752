// Package sink writes assessment events to their destinations: an NDJSON
// file, Kafka and Postgres.
package sink

import (
	"context"

	"github.com/shortontech/goblade/internal/event"
)

type Sink interface {
	Start(ctx context.Context) error
	Enqueue(e event.Event) error
	Close() error
	Name() string // Returns the sink name for metrics and logging
}
