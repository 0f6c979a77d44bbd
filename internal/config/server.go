package config

import (
	"net"
	"os"
	"strings"
	"time"
)

const (
	EnvServerPort            = "PORT"
	EnvServerPublicURL       = "PUBLIC_URL"
	EnvServerShutdownTimeout = "SERVICE_SHUTDOWN_TIMEOUT"
)

type ServerConfig struct {
	Addr string `toml:"addr" validate:"required"`
	// PublicURL is where users reach the service; payment return URLs are
	// built from it.
	PublicURL       string `toml:"public_url" validate:"required,url"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `toml:"secure_cookies"`

	shutdownTimeout time.Duration
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return c.shutdownTimeout }

// LocalURL is the loopback base URL of this process's own listener.
func (c *ServerConfig) LocalURL() string {
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return c.PublicURL
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Addr != "" {
		c.Addr = overlay.Addr
	}
	if overlay.PublicURL != "" {
		c.PublicURL = overlay.PublicURL
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.SecureCookies {
		c.SecureCookies = true
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:3000"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerPort); v != "" {
		c.Addr = ":" + v
	}
	envString(&c.PublicURL, EnvServerPublicURL)
	envString(&c.ShutdownTimeout, EnvServerShutdownTimeout)
}

func (c *ServerConfig) validate() error {
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if err := check(c); err != nil {
		return err
	}
	d, err := parseDuration("shutdown_timeout", c.ShutdownTimeout)
	if err != nil {
		return err
	}
	c.shutdownTimeout = d
	return nil
}
