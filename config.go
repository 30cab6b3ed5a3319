package hostlink

import (
	"net/http"
	"os"
	"strings"
	"sync/atomic"
)

const (
	// DefaultBaseURL is where the host listens unless configured otherwise.
	DefaultBaseURL = "http://localhost:3100"
	// EnvBaseURL names the environment variable read by ConfigFromEnv.
	EnvBaseURL = "HOSTLINK_BASE_URL"
)

// Config is the process-wide client configuration.
type Config struct {
	// BaseURL is the scheme, host and optional path prefix of the host API.
	BaseURL string
	// HTTPClient is used for every request. It must not carry an overall Timeout,
	// streams stay open for as long as the host keeps them open.
	HTTPClient *http.Client
}

var current atomic.Pointer[Config]

// Configure replaces the process-wide configuration.
//
// It is meant to be called once at startup, before clients issue requests. Requests that
// are already in flight keep the configuration they started with.
func Configure(cfg Config) {
	cfg = cfg.normalize()
	current.Store(&cfg)
}

// Current returns the process-wide configuration, or the defaults when Configure was never called.
func Current() Config {
	if cfg := current.Load(); cfg != nil {
		return *cfg
	}
	return Config{}.normalize()
}

// ConfigFromEnv builds a Config from HOSTLINK_BASE_URL, falling back to the defaults.
func ConfigFromEnv() Config {
	return Config{BaseURL: os.Getenv(EnvBaseURL)}.normalize()
}

func (c Config) normalize() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}
