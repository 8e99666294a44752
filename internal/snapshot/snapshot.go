// Package snapshot decodes the environment document gathered by the browser
// collector and serves it to the detection probes.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/shortontech/goblade/internal/detection"
)

var (
	// ErrEmpty is returned when the document carries no snapshot at all.
	ErrEmpty = errors.New("snapshot: empty document")
	// ErrMissingSection is wrapped by accessors whose section was not collected.
	ErrMissingSection = errors.New("snapshot section missing")
)

// Section names used as keys of Snapshot.Errors.
const (
	SectionNavigator       = "navigator"
	SectionScreen          = "screen"
	SectionWindow          = "window"
	SectionGlobals         = "globals"
	SectionDocument        = "document"
	SectionWebdriver       = "webdriver" // whole-section failure of both webdriver reads
	SectionWebdriverDesc   = "webdriverDescriptor"
	SectionWebdriverGetter = "webdriverGetter"
	SectionFrame           = "frame"
	SectionErrorStack      = "errorStack"
	SectionStackHook       = "stackHook"
	SectionCanvas          = "canvas"
	SectionCanvasRender    = "canvasRender"
	SectionWebGL           = "webgl"
)

// Snapshot is one collected page environment. A missing section makes the
// matching accessor fail; Errors carries exceptions thrown while collecting.
type Snapshot struct {
	Navigator *Navigator        `json:"navigator,omitempty"`
	Screen    *detection.Screen `json:"screen,omitempty"`
	Window    *detection.Window `json:"window,omitempty"`

	Globals  []detection.Property `json:"globals"`
	Document []detection.Property `json:"document"`

	Webdriver  *Webdriver `json:"webdriver,omitempty"`
	Frame      *Frame     `json:"frame,omitempty"`
	ErrorStack *string    `json:"errorStack,omitempty"`
	StackHook  *StackHook `json:"stackHook,omitempty"`
	Canvas     *Canvas    `json:"canvas,omitempty"`
	WebGL      *WebGL     `json:"webgl,omitempty"`

	Fonts  []string          `json:"fonts,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`

	handles handleCounter
}

// Navigator extends the probe view with fields used for fingerprinting.
type Navigator struct {
	detection.Navigator
	Platform string `json:"platform,omitempty"`
	Language string `json:"language,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type Webdriver struct {
	// Descriptor is the own descriptor on the navigator instance, nil when
	// the flag is only inherited.
	Descriptor   *detection.Descriptor `json:"descriptor"`
	GetterSource string                `json:"getterSource"`
}

type Frame struct {
	Webdriver *bool `json:"webdriver"`
}

type StackHook struct {
	Source     string `json:"source"`
	Overridden bool   `json:"overridden"`
}

type Canvas struct {
	DataURL string `json:"dataUrl"`
	Hash    string `json:"hash,omitempty"`
}

type WebGL struct {
	Supported              bool     `json:"supported"`
	Vendor                 string   `json:"vendor,omitempty"`
	Renderer               string   `json:"renderer,omitempty"`
	Version                string   `json:"version,omitempty"`
	ShadingLanguageVersion string   `json:"shadingLanguageVersion,omitempty"`
	Extensions             []string `json:"extensions,omitempty"`
	Hash                   string   `json:"hash,omitempty"`
}

type handleCounter struct {
	opened atomic.Int64
	closed atomic.Int64
}

// Parse decodes a snapshot document.
func Parse(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) {
		return nil, ErrEmpty
	}
	var s Snapshot
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &s, nil
}

// Read decodes a snapshot from r, reading at most limit bytes when limit > 0.
func Read(r io.Reader, limit int64) (*Snapshot, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	return Parse(data)
}

// UserAgent returns the navigator user agent, or "" when it was not collected.
func (s *Snapshot) UserAgent() string {
	if s == nil || s.Navigator == nil {
		return ""
	}
	return s.Navigator.UserAgent
}

// Handles reports how many frame, canvas and WebGL handles were opened and
// closed on s.
func (s *Snapshot) Handles() (opened, closed int64) {
	return s.handles.opened.Load(), s.handles.closed.Load()
}

func (s *Snapshot) reported(section string) error {
	if msg, ok := s.Errors[section]; ok && msg != "" {
		return errors.New(msg)
	}
	return nil
}

// fail returns the collector-reported error of section, or a missing-section
// error when present is false.
func (s *Snapshot) fail(section string, present bool) error {
	if err := s.reported(section); err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("%w: %s", ErrMissingSection, section)
	}
	return nil
}
