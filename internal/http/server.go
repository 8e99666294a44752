package httpx

import (
	"net/http"
	"time"
)

const (
	routeHealthz     = "/healthz"
	routeReadyz      = "/readyz"
	routeCollectorJS = "/collector.js"
	routeEvaluate    = "/v1/evaluate"
	routeFingerprint = "/v1/fingerprint"
	routePlayground  = "/v1/playground"
	routeSessions    = "/v1/sessions"
	routeHMACKey     = "/v1/hmac/key"
)

var routes = map[string]bool{
	routeHealthz:     true,
	routeReadyz:      true,
	routeCollectorJS: true,
	routeEvaluate:    true,
	routeFingerprint: true,
	routePlayground:  true,
	routeSessions:    true,
	routeHMACKey:     true,
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

// NewMux wires every route behind CORS, metrics and request logging.
func NewMux(e Env) http.Handler {
	e = e.withDefaults()

	mux := http.NewServeMux()
	mux.HandleFunc(routeHealthz, e.Healthz)
	mux.HandleFunc(routeReadyz, e.Readyz)
	mux.HandleFunc(routeCollectorJS, e.CollectorScript)
	mux.HandleFunc(routeEvaluate, e.Evaluate)
	mux.HandleFunc(routeFingerprint, e.Fingerprint)
	mux.HandleFunc(routePlayground, e.Playground)
	mux.HandleFunc(routeSessions, e.SessionsHandler)
	mux.HandleFunc(routeHMACKey, e.HMACKey)

	return RequestLogger(e.Logger)(MetricsMiddleware(e.Metrics)(cors(mux)))
}

// NewServer returns an http.Server for h with conservative timeouts.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
