// Package config loads service configuration from TOML files with
// environment overrides and an optional per-environment overlay.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// BaseConfigFile is the primary configuration file name.
	BaseConfigFile = "config.toml"

	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv selects the overlay, e.g. SERVICE_ENV=prod reads config.prod.toml.
	EnvServiceEnv = "SERVICE_ENV"

	EnvDotenvFile = "DOTENV_FILE"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Image    ImageConfig    `toml:"image"`
	Backend  BackendConfig  `toml:"backend"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Payment  PaymentConfig  `toml:"payment"`
	AI       AIConfig       `toml:"ai"`
	Renderer RendererConfig `toml:"renderer"`
	Logging  LoggingConfig  `toml:"logging"`
}

// Load reads dir/config.toml, applies the overlay named by SERVICE_ENV and
// finalizes the result. A missing base file is not an error: every setting
// has a default or an environment variable.
func Load(dir string) (*Config, error) {
	loadDotenv(dir)

	cfg, err := load(filepath.Join(dir, BaseConfigFile))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}

	if path := overlayPath(dir); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates every section.
func (c *Config) Finalize() error {
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Image.Finalize(); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	if err := c.Backend.Finalize(c.Server.LocalURL()); err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	if err := c.Database.Finalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Redis.Finalize(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := c.Payment.Finalize(); err != nil {
		return fmt.Errorf("payment: %w", err)
	}
	if err := c.AI.Finalize(); err != nil {
		return fmt.Errorf("ai: %w", err)
	}
	if err := c.Renderer.Finalize(); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	c.Server.Merge(&overlay.Server)
	c.Image.Merge(&overlay.Image)
	c.Backend.Merge(&overlay.Backend)
	c.Database.Merge(&overlay.Database)
	c.Redis.Merge(&overlay.Redis)
	c.Payment.Merge(&overlay.Payment)
	c.AI.Merge(&overlay.AI)
	c.Renderer.Merge(&overlay.Renderer)
	c.Logging.Merge(&overlay.Logging)
}

var validate = validator.New()

// check runs the struct's validate tags and flattens the first failure
// into a readable message.
func check(section any) error {
	err := validate.Struct(section)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid %s: failed %q", fe.Field(), fe.Tag())
	}
	return err
}

func parseDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", name)
	}
	return d, nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvServiceEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadDotenv fills unset environment variables from a .env file, if any.
// Variables already present in the environment are not overwritten.
func loadDotenv(dir string) {
	path := os.Getenv(EnvDotenvFile)
	if path == "" {
		path = filepath.Join(dir, ".env")
	}
	_ = godotenv.Load(path)
}
