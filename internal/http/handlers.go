// Package httpx serves the detection engine, fingerprint bundles, the form
// gate and session records over HTTP.
package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/assets"
	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/event"
	"github.com/shortontech/goblade/internal/fingerprint"
	"github.com/shortontech/goblade/internal/metrics"
	"github.com/shortontech/goblade/internal/risk"
	"github.com/shortontech/goblade/internal/session"
	"github.com/shortontech/goblade/internal/snapshot"
	"github.com/shortontech/goblade/pkg/config"
)

// Env carries the handler dependencies. Nil fields get working defaults in
// NewMux, except Sessions, Metrics, Emit and Ready which stay disabled.
type Env struct {
	Cfg       config.Config
	Emit      func(event.Event) // sink fan-out
	HMACAuth  *HMACAuth
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Detector  *detection.Detector
	Assembler *fingerprint.Assembler
	Gate      *risk.Gate
	Sessions  session.Store
	Enricher  *event.Enricher
	// Ready reports whether backing stores are reachable.
	Ready func(ctx context.Context) error
}

func (e Env) withDefaults() Env {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	e.Logger = e.Logger.Named("httpx")
	if e.Cfg.MaxBodyBytes <= 0 {
		e.Cfg.MaxBodyBytes = 1 << 20
	}
	if e.Detector == nil {
		e.Detector = detection.NewDetector(e.Logger)
	}
	if e.Assembler == nil {
		e.Assembler = fingerprint.NewAssembler(nil, e.Detector, e.Logger)
	}
	if e.Gate == nil {
		e.Gate = risk.NewGate()
	}
	if e.Enricher == nil {
		e.Enricher = event.NewEnricher(e.Cfg, nil)
	}
	return e
}

func (e Env) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, r *http.Request) {
	if e.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := e.Ready(ctx); err != nil {
			e.Logger.Warn("not ready", zap.Error(err))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (e Env) CollectorScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(assets.CollectorJS)
	}
}

// HMACKey hands the caller the signing key bound to its IP.
func (e Env) HMACKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !e.HMACAuth.Enabled() {
		http.Error(w, "HMAC authentication not configured", http.StatusNotFound)
		return
	}
	key := e.HMACAuth.ClientKey(event.ClientIP(r, e.Cfg.TrustProxy))
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{
		"key":       base64.StdEncoding.EncodeToString(key),
		"algorithm": "HMAC-SHA256",
		"header":    HMACHeader,
	})
}

// POST /v1/evaluate: body is a snapshot document.
func (e Env) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, herr := e.readBody(w, r)
	if herr != nil {
		http.Error(w, herr.msg, herr.status)
		return
	}
	snap, err := snapshot.Parse(body)
	if err != nil {
		http.Error(w, "invalid snapshot", http.StatusBadRequest)
		return
	}

	res := e.Detector.Evaluate(snap.Environment())
	e.observe(res)

	ev := event.New(event.TypeEvaluate)
	ev.Result = &res
	e.Enricher.Enrich(r, &ev, body, snap)
	e.emit(ev)

	writeJSON(w, http.StatusOK, res)
}

type fingerprintRequest struct {
	Snapshot   json.RawMessage `json:"snapshot"`
	CanvasHash string          `json:"canvasHash,omitempty"`
}

type fingerprintResponse struct {
	fingerprint.Bundle
	SessionMatch *session.Match `json:"sessionMatch,omitempty"`
}

// POST /v1/fingerprint: {snapshot, canvasHash?} → bundle plus the matching
// labelled session, if any.
func (e Env) Fingerprint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, herr := e.readBody(w, r)
	if herr != nil {
		http.Error(w, herr.msg, herr.status)
		return
	}
	var req fingerprintRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	bundle, snap, herr := e.assemble(r, req.Snapshot, req.CanvasHash)
	if herr != nil {
		http.Error(w, herr.msg, herr.status)
		return
	}

	resp := fingerprintResponse{Bundle: bundle, SessionMatch: e.matchSession(r.Context(), bundle)}

	ev := event.New(event.TypeFingerprint)
	ev.Result = &bundle.Selenium
	ev.Fingerprint = &bundle
	e.Enricher.Enrich(r, &ev, body, snap)
	e.emit(ev)

	writeJSON(w, http.StatusOK, resp)
}

type playgroundRequest struct {
	Snapshot   json.RawMessage `json:"snapshot"`
	CanvasHash string          `json:"canvasHash,omitempty"`
	Behaviour  risk.Behaviour  `json:"behaviour"`
}

// POST /v1/playground: {snapshot, canvasHash?, behaviour} → verdict.
func (e Env) Playground(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, herr := e.readBody(w, r)
	if herr != nil {
		http.Error(w, herr.msg, herr.status)
		return
	}
	var req playgroundRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	bundle, snap, herr := e.assemble(r, req.Snapshot, req.CanvasHash)
	if herr != nil {
		http.Error(w, herr.msg, herr.status)
		return
	}

	verdict := e.Gate.Evaluate(bundle, req.Behaviour)

	ev := event.New(event.TypePlayground)
	ev.Result = &bundle.Selenium
	ev.Verdict = &verdict
	e.Enricher.Enrich(r, &ev, body, snap)
	e.emit(ev)

	writeJSON(w, http.StatusOK, verdict)
}

func (e Env) assemble(r *http.Request, raw json.RawMessage, canvasHash string) (fingerprint.Bundle, *snapshot.Snapshot, *httpError) {
	snap, err := snapshot.Parse(raw)
	if err != nil {
		return fingerprint.Bundle{}, nil, &httpError{http.StatusBadRequest, "invalid snapshot"}
	}
	bundle, err := e.Assembler.Assemble(r.Context(), fingerprint.Input{
		Snapshot:   snap,
		ClientIP:   event.ClientIP(r, e.Cfg.TrustProxy),
		CanvasHash: canvasHash,
	})
	if err != nil {
		e.Logger.Error("assemble fingerprint", zap.Error(err))
		return fingerprint.Bundle{}, nil, &httpError{http.StatusInternalServerError, "internal server error"}
	}
	e.observe(bundle.Selenium)
	return bundle, snap, nil
}

// matchSession looks the bundle up among labelled sessions and records the
// visit on a match.
func (e Env) matchSession(ctx context.Context, b fingerprint.Bundle) *session.Match {
	if e.Sessions == nil {
		return nil
	}
	all, err := e.Sessions.List(ctx)
	if err != nil {
		e.Logger.Warn("list sessions", zap.Error(err))
		return nil
	}
	m := session.FindMatch(b.Canvas, b.WebGL.Hash, all)
	if m == nil {
		return nil
	}
	if touched, err := e.Sessions.Touch(ctx, m.Session.ID); err == nil {
		m.Session = touched
	} else {
		e.Logger.Warn("touch session", zap.String("id", m.Session.ID), zap.Error(err))
	}
	return m
}

func (e Env) observe(res detection.Result) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.ObserveEvaluation(res.IsAutomated, res.RiskScore, res.DetectionMethods)
	for _, ind := range res.DetectedIndicators {
		if strings.Contains(ind, "detection error") {
			e.Metrics.IncrementProbeFailures()
		}
	}
}

func (e Env) emit(ev event.Event) {
	if e.Emit != nil {
		e.Emit(ev)
	}
}

type httpError struct {
	status int
	msg    string
}

// readBody enforces the content type, the body limit and the HMAC signature.
func (e Env) readBody(w http.ResponseWriter, r *http.Request) ([]byte, *httpError) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return nil, &httpError{http.StatusUnsupportedMediaType, "content-type must be application/json"}
	}
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.Cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &httpError{http.StatusRequestEntityTooLarge, "request body too large"}
		}
		return nil, &httpError{http.StatusBadRequest, "failed to read body"}
	}
	if !e.HMACAuth.Verify(r, body) {
		return nil, &httpError{http.StatusUnauthorized, "invalid or missing HMAC signature"}
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
