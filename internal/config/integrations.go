package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvPaymentAccessToken = "MP_ACCESS_TOKEN"
	EnvPaymentPublicKey   = "MP_PUBLIC_KEY"
	EnvPaymentUnitPrice   = "MP_UNIT_PRICE"

	EnvAIProvider     = "AI_PROVIDER"
	EnvAIServiceURL   = "AI_SERVICE_URL"
	EnvAIGeminiAPIKey = "GEMINI_API_KEY"
	EnvAIGeminiModel  = "GEMINI_MODEL"
)

// PaymentConfig holds the MercadoPago credentials and the single product
// sold. Without an access token the checkout endpoints report an error and
// the page disables payments.
type PaymentConfig struct {
	AccessToken string  `toml:"access_token"`
	PublicKey   string  `toml:"public_key"`
	BaseURL     string  `toml:"base_url" validate:"required,url"`
	ItemTitle   string  `toml:"item_title" validate:"required"`
	Currency    string  `toml:"currency" validate:"required,len=3"`
	UnitPrice   float64 `toml:"unit_price" validate:"gt=0"`
	Timeout     string  `toml:"timeout"`

	timeout time.Duration
}

func (c *PaymentConfig) Enabled() bool { return c.AccessToken != "" && c.PublicKey != "" }

func (c *PaymentConfig) TimeoutDuration() time.Duration { return c.timeout }

func (c *PaymentConfig) Finalize() error {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.mercadopago.com"
	}
	if c.ItemTitle == "" {
		c.ItemTitle = "CV"
	}
	if c.Currency == "" {
		c.Currency = "ARS"
	}
	if c.UnitPrice == 0 {
		c.UnitPrice = 2000
	}
	if c.Timeout == "" {
		c.Timeout = "15s"
	}

	envString(&c.AccessToken, EnvPaymentAccessToken)
	envString(&c.PublicKey, EnvPaymentPublicKey)
	if v := os.Getenv(EnvPaymentUnitPrice); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPaymentUnitPrice, err)
		}
		c.UnitPrice = price
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

func (c *PaymentConfig) Merge(overlay *PaymentConfig) {
	if overlay.AccessToken != "" {
		c.AccessToken = overlay.AccessToken
	}
	if overlay.PublicKey != "" {
		c.PublicKey = overlay.PublicKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.ItemTitle != "" {
		c.ItemTitle = overlay.ItemTitle
	}
	if overlay.Currency != "" {
		c.Currency = overlay.Currency
	}
	if overlay.UnitPrice != 0 {
		c.UnitPrice = overlay.UnitPrice
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

const (
	AIProviderNone    = "none"
	AIProviderService = "service"
	AIProviderGemini  = "gemini"
)

// AIConfig selects where summaries come from: the internal ai-service
// chat endpoint or Gemini.
type AIConfig struct {
	Provider     string `toml:"provider" validate:"oneof=none service gemini"`
	ServiceURL   string `toml:"service_url" validate:"required_if=Provider service"`
	GeminiAPIKey string `toml:"gemini_api_key" validate:"required_if=Provider gemini"`
	GeminiModel  string `toml:"gemini_model"`
	Timeout      string `toml:"timeout"`

	timeout time.Duration
}

func (c *AIConfig) TimeoutDuration() time.Duration { return c.timeout }

func (c *AIConfig) Finalize() error {
	envString(&c.Provider, EnvAIProvider)
	envString(&c.ServiceURL, EnvAIServiceURL)
	envString(&c.GeminiAPIKey, EnvAIGeminiAPIKey)
	envString(&c.GeminiModel, EnvAIGeminiModel)

	if c.Provider == "" {
		switch {
		case c.GeminiAPIKey != "":
			c.Provider = AIProviderGemini
		case c.ServiceURL != "":
			c.Provider = AIProviderService
		default:
			c.Provider = AIProviderNone
		}
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-1.5-flash"
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

func (c *AIConfig) Merge(overlay *AIConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.GeminiAPIKey != "" {
		c.GeminiAPIKey = overlay.GeminiAPIKey
	}
	if overlay.GeminiModel != "" {
		c.GeminiModel = overlay.GeminiModel
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}
