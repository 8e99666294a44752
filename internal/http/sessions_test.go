package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shortontech/goblade/internal/session"
)

type envelope struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Session  *session.Session  `json:"session"`
	Sessions []session.Session `json:"sessions"`
}

func decodeEnvelope(t *testing.T, b []byte) envelope {
	t.Helper()
	var e envelope
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, b)
	}
	return e
}

func TestSessionsLifecycle(t *testing.T) {
	env, _ := newTestEnv()
	env.Sessions = session.NewMemoryStore()
	h := NewMux(env)

	rec := do(h, http.MethodGet, "/v1/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if rec.Body.String() != "{\"success\":true,\"sessions\":[]}\n" {
		t.Errorf("empty list body = %q", rec.Body.String())
	}

	rec = do(h, http.MethodPost, "/v1/sessions", []byte(`{"label":"laptop","canvasFingerprint":"c1","webglFingerprint":"w1","notes":"home"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeEnvelope(t, rec.Body.Bytes())
	if !created.Success || created.Session == nil || created.Session.VisitCount != 1 || created.Session.Notes != "home" {
		t.Fatalf("create envelope = %+v", created)
	}
	id := created.Session.ID

	rec = do(h, http.MethodPut, "/v1/sessions", []byte(`{"id":"`+id+`"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("touch status = %d", rec.Code)
	}
	if touched := decodeEnvelope(t, rec.Body.Bytes()); touched.Session == nil || touched.Session.VisitCount != 2 {
		t.Errorf("touch envelope = %+v", touched)
	}

	rec = do(h, http.MethodGet, "/v1/sessions", nil)
	if list := decodeEnvelope(t, rec.Body.Bytes()); len(list.Sessions) != 1 || list.Sessions[0].ID != id {
		t.Errorf("list envelope = %+v", list)
	}

	rec = do(h, http.MethodDelete, "/v1/sessions?id="+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if del := decodeEnvelope(t, rec.Body.Bytes()); del.Message != "Session deleted successfully" {
		t.Errorf("delete message = %q", del.Message)
	}
}

func TestSessionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{"create missing fields", http.MethodPost, "/v1/sessions", `{"label":"x"}`, http.StatusBadRequest, "Missing required fields: label, canvasFingerprint, webglFingerprint"},
		{"create bad json", http.MethodPost, "/v1/sessions", `{`, http.StatusBadRequest, "Invalid JSON body"},
		{"touch missing id", http.MethodPut, "/v1/sessions", `{}`, http.StatusBadRequest, "Missing required field: id"},
		{"touch unknown", http.MethodPut, "/v1/sessions", `{"id":"session_nope"}`, http.StatusNotFound, "Session not found"},
		{"delete missing id", http.MethodDelete, "/v1/sessions", "", http.StatusBadRequest, "Missing required query parameter: id"},
		{"delete unknown", http.MethodDelete, "/v1/sessions?id=session_nope", "", http.StatusNotFound, "Session not found"},
		{"method", http.MethodPatch, "/v1/sessions", "", http.StatusMethodNotAllowed, "Method not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := newTestEnv()
			env.Sessions = session.NewMemoryStore()
			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			rec := do(NewMux(env), tt.method, tt.path, body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			got := decodeEnvelope(t, rec.Body.Bytes())
			if got.Success || got.Message != tt.message {
				t.Errorf("envelope = %+v, want message %q", got, tt.message)
			}
		})
	}
}

type brokenStore struct{ session.Store }

func (brokenStore) List(context.Context) ([]session.Session, error) {
	return nil, errors.New("connection refused")
}

func TestSessionsStoreFailure(t *testing.T) {
	env, _ := newTestEnv()
	env.Sessions = brokenStore{}
	rec := do(NewMux(env), http.MethodGet, "/v1/sessions", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body.Bytes()); got.Message != "Internal server error" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestSessionsNotConfigured(t *testing.T) {
	env, _ := newTestEnv()
	rec := do(NewMux(env), http.MethodGet, "/v1/sessions", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSessionsHandlerUsesStore(t *testing.T) {
	env, _ := newTestEnv()
	store := session.NewMemoryStore()
	env.Sessions = store
	if _, err := store.Create(context.Background(), session.NewSession{Label: "desk", CanvasFingerprint: "c", WebGLFingerprint: "w"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := httptest.NewRecorder()
	env.SessionsHandler(rec, httptest.NewRequest(http.MethodGet, routeSessions, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeEnvelope(t, rec.Body.Bytes()); len(got.Sessions) != 1 || got.Sessions[0].Label != "desk" {
		t.Errorf("sessions = %+v, want the stored desk session", got.Sessions)
	}
}
