package config

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
)

const EnvImageMaxUploadSize = "IMAGE_MAX_UPLOAD_SIZE"

// ImageConfig controls photo normalization. The defaults are product
// decisions, not technical limits.
type ImageConfig struct {
	// MaxUploadSize is a human size ("10MB", binary units). Uploads at or
	// above it are rejected.
	MaxUploadSize       string  `toml:"max_upload_size"`
	MaxDimension        int     `toml:"max_dimension" validate:"gte=16,lte=4096"`
	JPEGQuality         float64 `toml:"jpeg_quality" validate:"gt=0,lte=1"`
	FlattenTransparency bool    `toml:"flatten_transparency"`

	maxUploadBytes int64
}

func (c *ImageConfig) MaxUploadBytes() int64 { return c.maxUploadBytes }

func (c *ImageConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

func (c *ImageConfig) Merge(overlay *ImageConfig) {
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.MaxDimension != 0 {
		c.MaxDimension = overlay.MaxDimension
	}
	if overlay.JPEGQuality != 0 {
		c.JPEGQuality = overlay.JPEGQuality
	}
	if overlay.FlattenTransparency {
		c.FlattenTransparency = true
	}
}

func (c *ImageConfig) loadDefaults() {
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MB"
	}
	if c.MaxDimension == 0 {
		c.MaxDimension = 300
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = 0.95
	}
}

func (c *ImageConfig) loadEnv() {
	if v := os.Getenv(EnvImageMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *ImageConfig) validate() error {
	if err := check(c); err != nil {
		return err
	}
	size, err := units.RAMInBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	c.maxUploadBytes = size
	return nil
}
