// Package config loads goblade settings from the environment, optionally
// layered over a config file named by GOBLADE_CONFIG.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileEnv names the environment variable holding the optional config file.
const FileEnv = "GOBLADE_CONFIG"

type Config struct {
	ServerAddr   string
	TrustProxy   bool
	MaxBodyBytes int64    // bytes per POST body
	IPHashSecret string   // HMAC key for client IP hashes
	Outputs      []string // enabled sinks: log, kafka, postgres

	HMACSecret  string
	HMACRequire bool // reject POSTs without a valid X-Goblade-HMAC

	IPQSAPIKey  string
	IPQSTimeout time.Duration
	IPQSRate    int64 // lookups per second, 0 for unlimited

	SessionStore string // memory or postgres
	PGDSN        string

	LogLevel  string
	LogFormat string // console or json
	LogFile   string

	ChromePath string
}

// loader resolves keys from the environment first and the config file second.
type loader struct {
	file *viper.Viper
}

func (l loader) lookup(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	if l.file == nil || !l.file.IsSet(k) {
		return ""
	}
	switch v := l.file.Get(k).(type) {
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (l loader) getOr(k, def string) string {
	if v := l.lookup(k); v != "" {
		return v
	}
	return def
}

func (l loader) getBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(l.lookup(k)))
	switch v {
	case "1", "t", "true", "y", "yes":
		return true
	case "0", "f", "false", "n", "no":
		return false
	}
	return def
}

func (l loader) getInt64(k string, def int64) int64 {
	if v := l.lookup(k); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return def
}

func (l loader) getStringSlice(k, def string) []string {
	v := l.lookup(k)
	if v == "" {
		v = def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Load reads the environment, layered over the file named by GOBLADE_CONFIG
// when it is set.
func Load() (Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile reads path (TOML, YAML or JSON) when non-empty; environment
// variables override its keys.
func LoadFile(path string) (Config, error) {
	l := loader{}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		l.file = v
	}
	cfg := l.load()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l loader) load() Config {
	return Config{
		ServerAddr:   l.getOr("SERVER_ADDR", ":19890"),
		TrustProxy:   l.getBool("TRUST_PROXY", false),
		MaxBodyBytes: l.getInt64("MAX_BODY_BYTES", 1<<20), // 1 MiB default
		IPHashSecret: l.getOr("IP_HASH_SECRET", ""),
		Outputs:      l.getStringSlice("OUTPUTS", "log"),

		HMACSecret:  l.getOr("HMAC_SECRET", ""),
		HMACRequire: l.getBool("HMAC_REQUIRE", false),

		IPQSAPIKey:  l.getOr("IPQS_API_KEY", ""),
		IPQSTimeout: time.Duration(l.getInt64("IPQS_TIMEOUT_MS", 5000)) * time.Millisecond,
		IPQSRate:    l.getInt64("IPQS_RATE", 5),

		SessionStore: strings.ToLower(l.getOr("SESSION_STORE", "memory")),
		PGDSN:        l.getOr("PG_DSN", ""),

		LogLevel:  strings.ToLower(l.getOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(l.getOr("LOG_FORMAT", "console")),
		LogFile:   l.getOr("LOG_FILE", ""),

		ChromePath: l.getOr("CHROME_PATH", ""),
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	switch c.SessionStore {
	case "memory":
	case "postgres":
		if c.PGDSN == "" {
			errs = append(errs, errors.New("SESSION_STORE=postgres requires PG_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if c.HMACRequire && c.HMACSecret == "" {
		errs = append(errs, errors.New("HMAC_REQUIRE needs HMAC_SECRET"))
	}
	for _, o := range c.Outputs {
		switch o {
		case "log", "kafka", "postgres":
		default:
			errs = append(errs, fmt.Errorf("unknown output %q", o))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// HasOutput reports whether the named sink is enabled.
func (c Config) HasOutput(name string) bool {
	for _, o := range c.Outputs {
		if o == name {
			return true
		}
	}
	return false
}
