package event

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shortontech/goblade/internal/event/signals"
	"github.com/shortontech/goblade/internal/snapshot"
	"github.com/shortontech/goblade/pkg/config"
)

// New returns an event of the given type with a fresh id and timestamp.
func New(typ string) Event {
	return Event{
		EventID: uuid.NewString(),
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Type:    typ,
	}
}

// Enricher fills the fields the server can set safely.
type Enricher struct {
	cfg     config.Config
	tracker *signals.Tracker
}

// NewEnricher builds an Enricher. tracker may be nil to skip timing signals.
func NewEnricher(cfg config.Config, tracker *signals.Tracker) *Enricher {
	return &Enricher{cfg: cfg, tracker: tracker}
}

// Enrich normalises e from the request r that carried body. snap may be nil.
func (en *Enricher) Enrich(r *http.Request, e *Event, body []byte, snap *snapshot.Snapshot) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.TS == "" {
		e.TS = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Type == "" {
		e.Type = TypeEvaluate
	}

	if e.Page.Origin == "" {
		e.Page.Origin = r.Header.Get("Origin")
	}
	if e.Page.Referrer == "" {
		e.Page.Referrer = r.Referer()
		if u, err := url.Parse(e.Page.Referrer); err == nil && u != nil {
			e.Page.ReferrerHostname = u.Hostname()
		}
	}
	if e.Page.URL == "" {
		e.Page.URL = e.Page.Referrer
	}

	if snap != nil {
		e.Device = DeviceFromSnapshot(snap)
	}
	if e.Device.UA == "" {
		e.Device.UA = r.UserAgent()
	}

	ip := ClientIP(r, en.cfg.TrustProxy)
	e.Server.IPHash = HashIP(ip, en.cfg.IPHashSecret)

	claimed := signals.Claimed{}
	if snap != nil && snap.Navigator != nil {
		claimed.UserAgent = snap.Navigator.UserAgent
		claimed.Languages = snap.Navigator.Languages
	}
	e.Server.Signals = signals.Analyze(r, body, claimed, ip, en.tracker)
}

// DeviceFromSnapshot summarises the collected environment.
func DeviceFromSnapshot(s *snapshot.Snapshot) DeviceInfo {
	d := DeviceInfo{FontCount: len(s.Fonts)}
	if n := s.Navigator; n != nil {
		d.UA = n.UserAgent
		d.UABrands = n.Brands
		d.Platform = n.Platform
		d.Language = n.Language
		d.Languages = n.Languages
		d.TZ = n.Timezone
		d.Webdriver = n.Webdriver
		d.PluginCount = n.PluginCount
	}
	if sc := s.Screen; sc != nil {
		d.Screen = &ScreenInfo{Width: sc.Width, Height: sc.Height, ColorDepth: sc.ColorDepth}
	}
	if w := s.WebGL; w != nil && w.Supported {
		d.GPU = w.Renderer
	}
	return d
}

// HashIP returns a hex HMAC-SHA256 of ip keyed by secret, or "" when either
// is empty.
func HashIP(ip, secret string) string {
	if ip == "" || secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}

// ClientIP returns the client address of r, honouring X-Forwarded-For and
// X-Real-IP only when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
			return strings.TrimSpace(xrip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
