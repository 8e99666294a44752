// Package fingerprint assembles the device fingerprint bundle returned to
// clients: canvas and WebGL hashes, font analysis, IP reputation and the
// automation verdict.
package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/reputation"
	"github.com/shortontech/goblade/internal/snapshot"
)

const (
	webglUnsupportedHash = "webgl-not-supported"
	notAvailable         = "N/A"
	maxExtensions        = 20
	hashedExtensions     = 10
)

var ErrNoSnapshot = errors.New("fingerprint: snapshot is required")

// Reputation looks up the reputation of a client IP.
type Reputation interface {
	Lookup(ctx context.Context, ip string) (*reputation.Result, error)
}

type WebGLInfo struct {
	Hash                   string   `json:"hash"`
	Vendor                 string   `json:"vendor"`
	Renderer               string   `json:"renderer"`
	Version                string   `json:"version"`
	ShadingLanguageVersion string   `json:"shadingLanguageVersion"`
	Supported              bool     `json:"supported"`
	Extensions             []string `json:"extensions"`
}

// Bundle is the complete fingerprint of one visit.
type Bundle struct {
	IP        string             `json:"ip"`
	IPQS      *reputation.Result `json:"ipqs"`
	Canvas    string             `json:"canvas"`
	WebGL     WebGLInfo          `json:"webgl"`
	Fonts     FontAnalysis       `json:"fonts"`
	Selenium  detection.Result   `json:"selenium"`
	Timestamp int64              `json:"timestamp"`
}

type Input struct {
	Snapshot *snapshot.Snapshot
	ClientIP string
	// CanvasHash overrides the hash carried in the snapshot.
	CanvasHash string
}

type Assembler struct {
	rep      Reputation
	detector *detection.Detector
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssembler builds an Assembler. rep may be nil to skip reputation lookups.
func NewAssembler(rep Reputation, detector *detection.Detector, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = detection.NewDetector(logger)
	}
	return &Assembler{rep: rep, detector: detector, logger: logger.Named("fingerprint"), now: time.Now}
}

// Assemble builds the bundle for in. A failed reputation lookup leaves IPQS
// nil and is not an error.
func (a *Assembler) Assemble(ctx context.Context, in Input) (Bundle, error) {
	if in.Snapshot == nil {
		return Bundle{}, ErrNoSnapshot
	}
	s := in.Snapshot

	var platform string
	if s.Navigator != nil {
		platform = s.Navigator.Platform
	}

	b := Bundle{
		IP:        in.ClientIP,
		Canvas:    canvasHash(in.CanvasHash, s.Canvas),
		WebGL:     webglInfo(s.WebGL),
		Fonts:     AnalyzeFonts(s.Fonts, platform, s.UserAgent()),
		Selenium:  a.detector.Evaluate(s.Environment()),
		Timestamp: a.now().UnixMilli(),
	}

	if a.rep != nil && in.ClientIP != "" {
		res, err := a.rep.Lookup(ctx, in.ClientIP)
		switch {
		case errors.Is(err, reputation.ErrNotConfigured):
		case err != nil:
			a.logger.Warn("reputation lookup failed", zap.String("ip", in.ClientIP), zap.Error(err))
		default:
			b.IPQS = res
		}
	}
	return b, nil
}

func canvasHash(override string, c *snapshot.Canvas) string {
	if override != "" {
		return override
	}
	if c == nil {
		return ""
	}
	if c.Hash != "" {
		return c.Hash
	}
	if c.DataURL == "" {
		return ""
	}
	return shortHash(c.DataURL)
}

func webglInfo(w *snapshot.WebGL) WebGLInfo {
	if w == nil || !w.Supported {
		return WebGLInfo{
			Hash:                   webglUnsupportedHash,
			Vendor:                 notAvailable,
			Renderer:               notAvailable,
			Version:                notAvailable,
			ShadingLanguageVersion: notAvailable,
			Extensions:             []string{},
		}
	}
	ext := w.Extensions
	if len(ext) > maxExtensions {
		ext = ext[:maxExtensions]
	}
	info := WebGLInfo{
		Hash:                   w.Hash,
		Vendor:                 w.Vendor,
		Renderer:               w.Renderer,
		Version:                w.Version,
		ShadingLanguageVersion: w.ShadingLanguageVersion,
		Supported:              true,
		Extensions:             append([]string{}, ext...),
	}
	if info.Hash == "" {
		parts := []string{w.Vendor, w.Renderer, w.Version, w.ShadingLanguageVersion}
		hashed := w.Extensions
		if len(hashed) > hashedExtensions {
			hashed = hashed[:hashedExtensions]
		}
		info.Hash = shortHash(strings.Join(append(parts, hashed...), "|"))
	}
	return info
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
