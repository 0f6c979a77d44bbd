package config

const (
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

type LoggingConfig struct {
	Level   string `toml:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format  string `toml:"format" validate:"oneof=json console"`
	Service string `toml:"service" validate:"required"`
}

func (c *LoggingConfig) Finalize() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "json"
	}
	if c.Service == "" {
		c.Service = "cv-builder"
	}
	envString(&c.Level, EnvLogLevel)
	envString(&c.Format, EnvLogFormat)
	return check(c)
}

func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.Service != "" {
		c.Service = overlay.Service
	}
}
