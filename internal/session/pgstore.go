package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const columns = "id, label, canvas_fingerprint, webgl_fingerprint, created_at, last_seen, visit_count, notes"

var schema = []struct {
	what string
	stmt string
}{
	{"table", `CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(255) PRIMARY KEY,
		label VARCHAR(255) NOT NULL,
		canvas_fingerprint TEXT NOT NULL,
		webgl_fingerprint TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		last_seen BIGINT NOT NULL,
		visit_count INTEGER DEFAULT 1,
		notes TEXT
	)`},
	{"index", "CREATE INDEX IF NOT EXISTS idx_canvas_fingerprint ON sessions(canvas_fingerprint)"},
	{"index", "CREATE INDEX IF NOT EXISTS idx_webgl_fingerprint ON sessions(webgl_fingerprint)"},
	{"index", "CREATE INDEX IF NOT EXISTS idx_last_seen ON sessions(last_seen DESC)"},
}

// PGStore keeps sessions in the Postgres "sessions" table.
type PGStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPGStore connects to dsn and creates the schema when missing.
func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := NewPGStore(db)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db, now: time.Now}
}

func (p *PGStore) EnsureSchema(ctx context.Context) error {
	for _, s := range schema {
		if _, err := p.db.ExecContext(ctx, s.stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.what, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		s     Session
		notes sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Label, &s.CanvasFingerprint, &s.WebGLFingerprint,
		&s.CreatedAt, &s.LastSeen, &s.VisitCount, &notes); err != nil {
		return Session{}, err
	}
	s.Notes = notes.String
	return s, nil
}

func (p *PGStore) List(ctx context.Context) ([]Session, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT "+columns+" FROM sessions ORDER BY last_seen DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

func (p *PGStore) Get(ctx context.Context, id string) (Session, error) {
	row := p.db.QueryRowContext(ctx, "SELECT "+columns+" FROM sessions WHERE id = $1", id)
	return p.one(row, "get")
}

func (p *PGStore) Create(ctx context.Context, n NewSession) (Session, error) {
	if err := n.validate(); err != nil {
		return Session{}, err
	}
	now := p.now().UnixMilli()
	s := Session{
		ID:                newID(),
		Label:             n.Label,
		CanvasFingerprint: n.CanvasFingerprint,
		WebGLFingerprint:  n.WebGLFingerprint,
		CreatedAt:         now,
		LastSeen:          now,
		VisitCount:        1,
		Notes:             n.Notes,
	}
	notes := sql.NullString{String: n.Notes, Valid: n.Notes != ""}
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO sessions ("+columns+") VALUES ($1, $2, $3, $4, $5, $6, 1, $7)",
		s.ID, s.Label, s.CanvasFingerprint, s.WebGLFingerprint, s.CreatedAt, s.LastSeen, notes)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

func (p *PGStore) Touch(ctx context.Context, id string) (Session, error) {
	row := p.db.QueryRowContext(ctx,
		"UPDATE sessions SET last_seen = $1, visit_count = visit_count + 1 WHERE id = $2 RETURNING "+columns,
		p.now().UnixMilli(), id)
	return p.one(row, "touch")
}

func (p *PGStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the database is reachable.
func (p *PGStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PGStore) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *PGStore) one(row *sql.Row, op string) (Session, error) {
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to %s session: %w", op, err)
	}
	return s, nil
}
