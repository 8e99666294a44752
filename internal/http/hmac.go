package httpx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/event"
)

// HMACHeader carries the hex HMAC-SHA256 of a POST body.
const HMACHeader = "X-Goblade-HMAC"

// HMACAuth verifies POST bodies against a per-client key derived from the
// server secret and the client IP. Clients fetch their key from /v1/hmac/key.
type HMACAuth struct {
	secret     []byte
	require    bool
	trustProxy bool
	logger     *zap.Logger
}

func NewHMACAuth(secret string, require, trustProxy bool, logger *zap.Logger) *HMACAuth {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HMACAuth{
		secret:     []byte(secret),
		require:    require,
		trustProxy: trustProxy,
		logger:     logger.Named("hmac"),
	}
}

// Enabled reports whether a secret is configured.
func (h *HMACAuth) Enabled() bool { return h != nil && len(h.secret) > 0 }

// ClientKey derives the signing key handed to clientIP:
// HMAC(secret, "client-key:" + ip).
func (h *HMACAuth) ClientKey(clientIP string) []byte {
	if !h.Enabled() {
		return nil
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte("client-key:" + clientIP))
	return mac.Sum(nil)
}

// Sign returns the signature a client at clientIP must send for payload.
func (h *HMACAuth) Sign(payload []byte, clientIP string) string {
	key := h.ClientKey(clientIP)
	if key == nil {
		return ""
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature on r. Unsigned or mis-signed requests pass
// unless signatures are required.
func (h *HMACAuth) Verify(r *http.Request, payload []byte) bool {
	if h == nil {
		return true
	}
	provided := r.Header.Get(HMACHeader)
	if !h.require {
		if provided != "" && h.Enabled() && !h.valid(r, payload, provided) {
			h.logger.Debug("ignoring bad signature", zap.String("path", r.URL.Path))
		}
		return true
	}
	if !h.Enabled() {
		h.logger.Warn("verification failed: no secret configured")
		return false
	}
	if provided == "" {
		h.logger.Debug("verification failed: missing header", zap.String("header", HMACHeader))
		return false
	}
	if !h.valid(r, payload, provided) {
		h.logger.Info("verification failed", zap.String("path", r.URL.Path))
		return false
	}
	return true
}

func (h *HMACAuth) valid(r *http.Request, payload []byte, provided string) bool {
	want := h.Sign(payload, event.ClientIP(r, h.trustProxy))
	return hmac.Equal([]byte(provided), []byte(want))
}
