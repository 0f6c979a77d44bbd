package config

import (
	"time"
)

const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvRedisURL        = "REDIS_URL"
	EnvRedisSessionTTL = "REDIS_SESSION_TTL"
	EnvBackendURL      = "BACKEND_URL"
	EnvBackendTimeout  = "BACKEND_TIMEOUT"
	EnvRendererChrome  = "CHROME_PATH"
	EnvRendererTimeout = "RENDERER_TIMEOUT"
)

// DatabaseConfig points at the Postgres instance holding saved documents.
// An empty URL runs without persistence.
type DatabaseConfig struct {
	URL string `toml:"url" validate:"omitempty,url"`
	// Migrate applies pending migrations on startup.
	Migrate bool `toml:"migrate"`
}

func (c *DatabaseConfig) Finalize() error {
	envString(&c.URL, EnvDatabaseURL)
	return check(c)
}

func (c *DatabaseConfig) Merge(overlay *DatabaseConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Migrate {
		c.Migrate = true
	}
}

// RedisConfig enables the shared session store. Without a URL sessions
// live in process memory.
type RedisConfig struct {
	URL        string `toml:"url" validate:"omitempty,url"`
	Prefix     string `toml:"prefix"`
	SessionTTL string `toml:"session_ttl"`

	sessionTTL time.Duration
}

func (c *RedisConfig) SessionTTLDuration() time.Duration { return c.sessionTTL }

func (c *RedisConfig) Finalize() error {
	if c.Prefix == "" {
		c.Prefix = "cv:"
	}
	if c.SessionTTL == "" {
		c.SessionTTL = "24h"
	}
	envString(&c.URL, EnvRedisURL)
	envString(&c.SessionTTL, EnvRedisSessionTTL)

	if err := check(c); err != nil {
		return err
	}
	d, err := parseDuration("session_ttl", c.SessionTTL)
	if err != nil {
		return err
	}
	c.sessionTTL = d
	return nil
}

func (c *RedisConfig) Merge(overlay *RedisConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.SessionTTL != "" {
		c.SessionTTL = overlay.SessionTTL
	}
}

// BackendConfig is how the page tier reaches the backend API. An empty URL
// means the backend served by this same process.
type BackendConfig struct {
	URL     string `toml:"url" validate:"required,url"`
	Timeout string `toml:"timeout"`

	timeout time.Duration
}

func (c *BackendConfig) TimeoutDuration() time.Duration { return c.timeout }

func (c *BackendConfig) Finalize(localURL string) error {
	envString(&c.URL, EnvBackendURL)
	envString(&c.Timeout, EnvBackendTimeout)
	if c.URL == "" {
		c.URL = localURL
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}

	if err := check(c); err != nil {
		return err
	}
	d, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return err
	}
	c.timeout = d
	return nil
}

func (c *BackendConfig) Merge(overlay *BackendConfig) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// RendererConfig drives headless Chrome for PDF output.
type RendererConfig struct {
	ChromePath string `toml:"chrome_path"`
	Timeout    string `toml:"timeout"`

	timeout time.Duration
}

func (c *RendererConfig) TimeoutDuration() time.Duration { return c.timeout }

func (c *RendererConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
	envString(&c.ChromePath, EnvRendererChrome)
	envString(&c.Timeout, EnvRendererTimeout)

	d, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return err
	}
	c.timeout = d
	return nil
}

func (c *RendererConfig) Merge(overlay *RendererConfig) {
	if overlay.ChromePath != "" {
		c.ChromePath = overlay.ChromePath
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}
