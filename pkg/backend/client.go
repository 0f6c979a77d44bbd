// Package backend is the HTTP client the page tier uses to reach the CV
// backend: payment key, document persistence, payment preferences, PDF
// generation and AI summaries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"cv-builder/internal/model"
)

// Endpoint paths.
const (
	PathPaymentKey       = "/get_mp_public_key"
	PathSaveDocument     = "/save_form_data"
	PathCreatePreference = "/create_preference"
	PathGeneratePDF      = "/download_pdf"
	PathGenerateSummary  = "/generate_summary"
)

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s: status %d", e.Endpoint, e.Status)
}

// ErrMalformedResponse means a 2xx body did not carry the expected field.
var ErrMalformedResponse = errors.New("backend: malformed response")

// ErrorBody is the JSON shape of every backend failure.
type ErrorBody struct {
	Error string `json:"error"`
}

type PaymentKeyResponse struct {
	PublicKey string `json:"public_key"`
}

type SaveResponse struct {
	FormID string `json:"form_id"`
}

type SummaryRequest struct {
	Prompt string `json:"prompt"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) PaymentPublicKey(ctx context.Context) (string, error) {
	var out PaymentKeyResponse
	if err := c.doJSON(ctx, http.MethodGet, PathPaymentKey, nil, &out); err != nil {
		return "", err
	}
	if out.PublicKey == "" {
		return "", fmt.Errorf("%w: empty public_key", ErrMalformedResponse)
	}
	return out.PublicKey, nil
}

func (c *Client) SaveDocument(ctx context.Context, doc *model.CVDocument) (string, error) {
	var out SaveResponse
	if err := c.doJSON(ctx, http.MethodPost, PathSaveDocument, doc, &out); err != nil {
		return "", err
	}
	if out.FormID == "" {
		return "", fmt.Errorf("%w: empty form_id", ErrMalformedResponse)
	}
	return out.FormID, nil
}

func (c *Client) CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error) {
	var out model.Preference
	if err := c.doJSON(ctx, http.MethodPost, PathCreatePreference, req, &out); err != nil {
		return nil, err
	}
	if out.InitPoint == "" {
		return nil, fmt.Errorf("%w: empty init_point", ErrMalformedResponse)
	}
	return &out, nil
}

func (c *Client) GenerateSummary(ctx context.Context, prompt string) (string, error) {
	var out SummaryResponse
	if err := c.doJSON(ctx, http.MethodPost, PathGenerateSummary, SummaryRequest{Prompt: prompt}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// GeneratePDF returns the rendered PDF bytes. A 2xx answer that is not a
// PDF is treated as an error.
func (c *Client) GeneratePDF(ctx context.Context, doc *model.CVDocument) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, PathGeneratePDF, doc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend %s: read body: %w", PathGeneratePDF, err)
	}
	if err := statusError(PathGeneratePDF, resp, body); err != nil {
		return nil, err
	}
	if ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); ct != "application/pdf" {
		return nil, fmt.Errorf("%w: content type %q", ErrMalformedResponse, resp.Header.Get("Content-Type"))
	}
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend %s: read body: %w", path, err)
	}
	if err := statusError(path, resp, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("backend %s: encode request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", path, err)
	}
	return resp, nil
}

func statusError(path string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	e := &StatusError{Endpoint: path, Status: resp.StatusCode}
	var eb ErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		e.Message = eb.Error
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}
