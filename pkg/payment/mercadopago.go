// Package payment talks to the MercadoPago REST API: checkout preferences
// and payment lookups.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	pathPreferences = "/checkout/preferences"
	pathPayments    = "/v1/payments/"

	AutoReturnApproved = "approved"
	StatusApproved     = "approved"
)

var ErrNotConfigured = errors.New("payment: access token not configured")

// APIError is a non-2xx answer from MercadoPago.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.Status, e.Message)
}

type Item struct {
	Title      string  `json:"title" validate:"required"`
	Quantity   int     `json:"quantity" validate:"gte=1"`
	CurrencyID string  `json:"currency_id" validate:"required,len=3"`
	UnitPrice  float64 `json:"unit_price" validate:"gt=0"`
}

type BackURLs struct {
	Success string `json:"success" validate:"required,url"`
	Failure string `json:"failure" validate:"required,url"`
	Pending string `json:"pending" validate:"required,url"`
}

type PreferenceInput struct {
	Items             []Item   `json:"items" validate:"required,min=1,dive"`
	BackURLs          BackURLs `json:"back_urls"`
	AutoReturn        string   `json:"auto_return,omitempty"`
	ExternalReference string   `json:"external_reference" validate:"required"`
}

type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

func (p *Payment) Approved() bool { return p.Status == StatusApproved }

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
	validate    *validator.Validate
}

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
		validate:    validator.New(),
	}
}

// CreatePreference registers a checkout and returns its init point.
func (c *Client) CreatePreference(ctx context.Context, in PreferenceInput) (*Preference, error) {
	if err := c.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("mercadopago: invalid preference: %w", err)
	}
	var out Preference
	if err := c.call(ctx, http.MethodPost, pathPreferences, in, &out); err != nil {
		return nil, err
	}
	if out.InitPoint == "" {
		return nil, fmt.Errorf("mercadopago: preference %q has no init_point", out.ID)
	}
	return &out, nil
}

// Payment fetches a payment by id.
func (c *Client) Payment(ctx context.Context, id string) (*Payment, error) {
	if id == "" {
		return nil, errors.New("mercadopago: empty payment id")
	}
	var out Payment
	if err := c.call(ctx, http.MethodGet, pathPayments+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if c.accessToken == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago: %w", err)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mercadopago: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		msg := strings.TrimSpace(string(rb))
		if json.Unmarshal(rb, &e) == nil {
			if e.Message != "" {
				msg = e.Message
			} else if e.Error != "" {
				msg = e.Error
			}
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("mercadopago: decode response: %w", err)
	}
	return nil
}
