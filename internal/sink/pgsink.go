package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/event"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// PGConfig configures the Postgres sink.
type PGConfig struct {
	DSN       string
	Table     string
	BatchSize int
	FlushMS   int
	UseCopy   bool // COPY FROM STDIN instead of multi-row INSERT
}

// PGSink batches events into a JSONB table. A batch is written when it
// reaches BatchSize or every FlushMS, whichever comes first.
type PGSink struct {
	config PGConfig
	db     *sql.DB
	logger *zap.Logger

	mu    sync.Mutex
	batch []event.Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func defaultPGConfig(dsn string) PGConfig {
	return PGConfig{DSN: dsn, Table: "assessments_json", BatchSize: 500, FlushMS: 500, UseCopy: true}
}

// NewPGSinkFromEnv reads PG_DSN, PG_TABLE, PG_BATCH_SIZE, PG_FLUSH_MS and PG_COPY.
func NewPGSinkFromEnv(logger *zap.Logger) *PGSink {
	s := NewPGSink(getEnvOr("PG_DSN", ""), logger)
	s.config.Table = getEnvOr("PG_TABLE", s.config.Table)
	s.config.BatchSize = getIntEnv("PG_BATCH_SIZE", s.config.BatchSize)
	s.config.FlushMS = getIntEnv("PG_FLUSH_MS", s.config.FlushMS)
	s.config.UseCopy = getBoolEnv("PG_COPY", s.config.UseCopy)
	return s
}

// FallbackDSN sets dsn when PG_DSN was not provided.
func (s *PGSink) FallbackDSN(dsn string) *PGSink {
	if s.config.DSN == "" {
		s.config.DSN = dsn
	}
	return s
}

func NewPGSink(dsn string, logger *zap.Logger) *PGSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := defaultPGConfig(dsn)
	return &PGSink{
		config: cfg,
		logger: logger.Named("postgres"),
		batch:  make([]event.Event, 0, cfg.BatchSize),
	}
}

func (s *PGSink) Name() string { return "postgres" }

func validateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func (s *PGSink) Start(ctx context.Context) error {
	if err := validateTableName(s.config.Table); err != nil {
		return err
	}
	db, err := sql.Open("postgres", s.config.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.ensureSchema(); err != nil {
		s.cancel()
		db.Close()
		s.db = nil
		return err
	}

	s.done = make(chan struct{})
	go s.flushRoutine()
	s.logger.Info("sink started", zap.String("table", s.config.Table), zap.Bool("copy", s.config.UseCopy))
	return nil
}

func (s *PGSink) ensureSchema() error {
	t := s.config.Table
	if _, err := s.db.ExecContext(s.ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		event_id TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		payload JSONB NOT NULL
	)`, t)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	indexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_ts ON %s (received_at)", t, t),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_gin ON %s USING GIN (payload)", t, t),
	}
	for _, stmt := range indexes {
		if _, err := s.db.ExecContext(s.ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (s *PGSink) Enqueue(e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = append(s.batch, e)
	if s.config.BatchSize > 0 && len(s.batch) >= s.config.BatchSize {
		return s.flushBatch()
	}
	return nil
}

func (s *PGSink) flushRoutine() {
	defer close(s.done)
	interval := time.Duration(s.config.FlushMS) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if err := s.flushBatch(); err != nil {
				s.logger.Warn("periodic flush failed", zap.Int("pending", len(s.batch)), zap.Error(err))
			}
			s.mu.Unlock()
		}
	}
}

// flushBatch writes the pending batch. The caller holds s.mu. The batch is
// kept when the write fails.
func (s *PGSink) flushBatch() error {
	if len(s.batch) == 0 {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("postgres sink not started")
	}
	start := time.Now()
	var err error
	if s.config.UseCopy {
		err = s.flushWithCopy()
	} else {
		err = s.flushWithInsert()
	}
	if err != nil {
		return err
	}
	s.logger.Debug("batch flushed", zap.Int("events", len(s.batch)), zap.Duration("elapsed", time.Since(start)))
	s.batch = s.batch[:0]
	return nil
}

func (s *PGSink) flushWithInsert() error {
	if len(s.batch) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(s.batch)*2)
	)
	fmt.Fprintf(&sb, "INSERT INTO %s (event_id, payload) VALUES ", s.config.Table)
	for i, e := range s.batch {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
		args = append(args, e.EventID, string(payload))
	}
	if _, err := s.db.ExecContext(s.ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

func (s *PGSink) flushWithCopy() error {
	tx, err := s.db.BeginTx(s.ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(s.ctx, pq.CopyIn(s.config.Table, "event_id", "payload"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for _, e := range s.batch {
		payload, err := json.Marshal(e)
		if err != nil {
			stmt.Close()
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		if _, err := stmt.ExecContext(s.ctx, e.EventID, string(payload)); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy event: %w", err)
		}
	}
	if _, err := stmt.ExecContext(s.ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to finish copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit copy: %w", err)
	}
	return nil
}

// Close stops the flush routine, writes what is left and closes the database.
func (s *PGSink) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	// the sink context is cancelled by now
	s.ctx = context.Background()
	flushErr := s.flushBatch()
	s.mu.Unlock()

	closeErr := s.db.Close()
	s.db = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
