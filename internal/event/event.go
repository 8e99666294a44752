package event

import (
	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/event/signals"
	"github.com/shortontech/goblade/internal/fingerprint"
	"github.com/shortontech/goblade/internal/risk"
)

// Event types.
const (
	TypeEvaluate    = "evaluate"
	TypeFingerprint = "fingerprint"
	TypePlayground  = "playground"
	TypeScan        = "scan"
)

// Event is one assessment as written to the sinks. Optional fields are
// omitted when empty.
type Event struct {
	EventID string `json:"event_id,omitempty"`
	TS      string `json:"ts,omitempty"`   // RFC3339Nano, UTC
	Type    string `json:"type,omitempty"` // evaluate, fingerprint, playground, scan

	Page   PageInfo   `json:"page,omitempty"`
	Device DeviceInfo `json:"device,omitempty"`
	Server ServerMeta `json:"server,omitempty"`

	Result      *detection.Result   `json:"result,omitempty"`
	Fingerprint *fingerprint.Bundle `json:"fingerprint,omitempty"`
	Verdict     *risk.Verdict       `json:"verdict,omitempty"`
}

// --- Page ---

type PageInfo struct {
	URL              string `json:"url,omitempty"`
	Origin           string `json:"origin,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
	ReferrerHostname string `json:"referrer_hostname,omitempty"`
}

// --- Device ---

// DeviceInfo summarises what the page reported about itself.
type DeviceInfo struct {
	UA        string   `json:"ua,omitempty"`
	UABrands  []string `json:"ua_brands,omitempty"`
	Platform  string   `json:"platform,omitempty"`
	Language  string   `json:"language,omitempty"`
	Languages []string `json:"languages,omitempty"`
	TZ        string   `json:"tz,omitempty"`
	Webdriver *bool    `json:"webdriver,omitempty"`

	PluginCount int         `json:"plugin_count,omitempty"`
	Screen      *ScreenInfo `json:"screen,omitempty"`
	GPU         string      `json:"gpu,omitempty"`
	FontCount   int         `json:"font_count,omitempty"`
}

type ScreenInfo struct {
	Width      int `json:"width,omitempty"`
	Height     int `json:"height,omitempty"`
	ColorDepth int `json:"colorDepth,omitempty"`
}

// --- Server enrich ---

type ServerMeta struct {
	IPHash  string          `json:"ip_hash,omitempty"` // keyed hash of the client IP, empty without IP_HASH_SECRET
	Signals signals.Signals `json:"signals"`
}
