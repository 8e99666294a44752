// Package reputation looks up client IP addresses in IPQualityScore.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://ipqualityscore.com/api/json/ip"

var (
	// ErrNotConfigured is returned by every lookup when no API key is set.
	ErrNotConfigured = errors.New("reputation: api key not configured")
	ErrInvalidIP     = errors.New("reputation: invalid ip address")
)

// Result mirrors the IPQS IP reputation response.
type Result struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	FraudScore     int     `json:"fraud_score"`
	CountryCode    string  `json:"country_code"`
	Region         string  `json:"region"`
	City           string  `json:"city"`
	ISP            string  `json:"ISP"`
	ASN            int     `json:"ASN"`
	Organization   string  `json:"organization"`
	IsCrawler      bool    `json:"is_crawler"`
	Timezone       string  `json:"timezone"`
	Mobile         bool    `json:"mobile"`
	Host           string  `json:"host"`
	Proxy          bool    `json:"proxy"`
	VPN            bool    `json:"vpn"`
	Tor            bool    `json:"tor"`
	ActiveVPN      bool    `json:"active_vpn"`
	ActiveTor      bool    `json:"active_tor"`
	RecentAbuse    bool    `json:"recent_abuse"`
	BotStatus      bool    `json:"bot_status"`
	ConnectionType string  `json:"connection_type"`
	AbuseVelocity  string  `json:"abuse_velocity"`
	ZipCode        string  `json:"zip_code"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RequestID      string  `json:"request_id"`
}

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Strictness int
	// RateLimit is the sustained lookups per second; zero disables limiting.
	RateLimit float64
}

// Client performs rate-limited lookups. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Strictness == 0 {
		cfg.Strictness = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("reputation"),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// Configured reports whether lookups can be attempted.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Lookup fetches the reputation of ip. A response with success=false is
// returned as-is; callers decide whether to trust it.
func (c *Client) Lookup(ctx context.Context, ip string) (*Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("reputation: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("reputation: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reputation: unexpected status %d", resp.StatusCode)
	}

	var res Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res); err != nil {
		return nil, fmt.Errorf("reputation: decode: %w", err)
	}
	c.logger.Debug("lookup complete",
		zap.Bool("success", res.Success),
		zap.Int("fraud_score", res.FraudScore),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &res, nil
}

func (c *Client) endpoint(addr netip.Addr) string {
	q := url.Values{}
	q.Set("strictness", strconv.Itoa(c.cfg.Strictness))
	q.Set("allow_public_access_points", "true")
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + url.PathEscape(c.cfg.APIKey) + "/" + url.PathEscape(addr.String()) + "?" + q.Encode()
}
