package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/session"
)

type sessionEnvelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Session *session.Session `json:"session,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, env sessionEnvelope) {
	writeJSON(w, status, env)
}

func sessionFailure(w http.ResponseWriter, status int, msg string) {
	writeEnvelope(w, status, sessionEnvelope{Success: false, Message: msg})
}

// SessionsHandler serves /v1/sessions: GET lists, POST creates, PUT records a visit
// and DELETE ?id= removes a record.
func (e Env) SessionsHandler(w http.ResponseWriter, r *http.Request) {
	if e.Sessions == nil {
		sessionFailure(w, http.StatusServiceUnavailable, "Session store not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		e.listSessions(w, r)
	case http.MethodPost:
		e.createSession(w, r)
	case http.MethodPut:
		e.touchSession(w, r)
	case http.MethodDelete:
		e.deleteSession(w, r)
	default:
		sessionFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (e Env) listSessions(w http.ResponseWriter, r *http.Request) {
	all, err := e.Sessions.List(r.Context())
	if err != nil {
		e.sessionError(w, "list", err)
		return
	}
	if all == nil {
		all = []session.Session{}
	}
	// sessions is always present for GET, even when empty
	writeJSON(w, http.StatusOK, struct {
		Success  bool              `json:"success"`
		Sessions []session.Session `json:"sessions"`
	}{true, all})
}

func (e Env) createSession(w http.ResponseWriter, r *http.Request) {
	var n session.NewSession
	if !e.decodeSessionBody(w, r, &n) {
		return
	}
	s, err := e.Sessions.Create(r.Context(), n)
	if errors.Is(err, session.ErrInvalid) {
		sessionFailure(w, http.StatusBadRequest, "Missing required fields: label, canvasFingerprint, webglFingerprint")
		return
	}
	if err != nil {
		e.sessionError(w, "create", err)
		return
	}
	writeEnvelope(w, http.StatusCreated, sessionEnvelope{Success: true, Session: &s})
}

func (e Env) touchSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !e.decodeSessionBody(w, r, &req) {
		return
	}
	if req.ID == "" {
		sessionFailure(w, http.StatusBadRequest, "Missing required field: id")
		return
	}
	s, err := e.Sessions.Touch(r.Context(), req.ID)
	if errors.Is(err, session.ErrNotFound) {
		sessionFailure(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		e.sessionError(w, "touch", err)
		return
	}
	writeEnvelope(w, http.StatusOK, sessionEnvelope{Success: true, Session: &s})
}

func (e Env) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		sessionFailure(w, http.StatusBadRequest, "Missing required query parameter: id")
		return
	}
	err := e.Sessions.Delete(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		sessionFailure(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		e.sessionError(w, "delete", err)
		return
	}
	writeEnvelope(w, http.StatusOK, sessionEnvelope{Success: true, Message: "Session deleted successfully"})
}

func (e Env) decodeSessionBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, herr := e.readBody(w, r)
	if herr != nil {
		sessionFailure(w, herr.status, herr.msg)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		sessionFailure(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func (e Env) sessionError(w http.ResponseWriter, op string, err error) {
	e.Logger.Error("session store", zap.String("op", op), zap.Error(err))
	sessionFailure(w, http.StatusInternalServerError, "Internal server error")
}
