// Package session stores labelled device fingerprints and recognises
// returning visitors by their canvas and WebGL hashes.
package session

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("session: not found")
	// ErrInvalid is returned by Create when a required field is empty.
	ErrInvalid = errors.New("session: label, canvas fingerprint and webgl fingerprint are required")
)

// Session is one labelled fingerprint. Times are Unix milliseconds.
type Session struct {
	ID                string `json:"id"`
	Label             string `json:"label"`
	CanvasFingerprint string `json:"canvasFingerprint"`
	WebGLFingerprint  string `json:"webglFingerprint"`
	CreatedAt         int64  `json:"createdAt"`
	LastSeen          int64  `json:"lastSeen"`
	VisitCount        int    `json:"visitCount"`
	Notes             string `json:"notes,omitempty"`
}

// NewSession carries the client-supplied fields of a session to create.
type NewSession struct {
	Label             string `json:"label"`
	CanvasFingerprint string `json:"canvasFingerprint"`
	WebGLFingerprint  string `json:"webglFingerprint"`
	Notes             string `json:"notes,omitempty"`
}

func (n NewSession) validate() error {
	if strings.TrimSpace(n.Label) == "" || n.CanvasFingerprint == "" || n.WebGLFingerprint == "" {
		return ErrInvalid
	}
	return nil
}

// Store persists sessions. Implementations are safe for concurrent use.
type Store interface {
	// List returns every session, most recently seen first.
	List(ctx context.Context) ([]Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Create(ctx context.Context, n NewSession) (Session, error)
	// Touch records a return visit: lastSeen moves to now and the visit
	// count grows by one.
	Touch(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PGStore)(nil)
)

func newID() string {
	return "session_" + uuid.NewString()
}

type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
)

type Match struct {
	Session    Session   `json:"session"`
	MatchType  MatchType `json:"matchType"`
	Confidence int       `json:"confidence"`
}

// FindMatch returns the first session matching both hashes, or failing that
// the first matching either one. It returns nil when nothing matches.
func FindMatch(canvas, webgl string, sessions []Session) *Match {
	for _, s := range sessions {
		if s.CanvasFingerprint == canvas && s.WebGLFingerprint == webgl {
			return &Match{Session: s, MatchType: MatchExact, Confidence: 100}
		}
	}
	for _, s := range sessions {
		if s.CanvasFingerprint == canvas || s.WebGLFingerprint == webgl {
			return &Match{Session: s, MatchType: MatchPartial, Confidence: 50}
		}
	}
	return nil
}
