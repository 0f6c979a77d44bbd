package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cv-builder/pkg/ai/formatters"

	"github.com/rs/zerolog"
)

// Summarizer produces a CV summary from a composed prompt.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Client calls the internal ai-service chat endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Attempts is how many times a failed transport call is tried.
	Attempts int
	log      zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Timeout: timeout},
		Attempts: 3,
		log:      log,
	}
}

// Summarize implements Summarizer.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	return formatters.NewSummaryFormatter(c).Format(ctx, prompt)
}

type chatRequest struct {
	Agent string `json:"agent"`
	Input string `json:"input"`
}

type chatResponse struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// Chat sends one input to /v1/chat and returns the agent's output text.
func (c *Client) Chat(ctx context.Context, input string) (string, error) {
	b, err := json.Marshal(chatRequest{Agent: "auto", Input: input})
	if err != nil {
		return "", err
	}

	c.log.Debug().Str("url", c.BaseURL+"/v1/chat").Int("input_len", len(input)).Msg("ai chat request")

	resp, err := c.doPostWithRetry(ctx, "/v1/chat", b)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	c.log.Debug().Int("status", resp.StatusCode).Int("body_len", len(rb)).Msg("ai chat response")

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai-service returned non-200 status: %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(rb, &out); err != nil {
		return "", fmt.Errorf("decode ai-service response: %w", err)
	}
	return out.Output, nil
}

// doPostWithRetry performs an HTTP POST to the given path with retry/backoff.
// Only transport errors are retried; any HTTP response is returned as is.
func (c *Client) doPostWithRetry(ctx context.Context, path string, body []byte) (*http.Response, error) {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i < attempts-1 {
			backoff := time.Duration(1<<i) * time.Second
			c.log.Warn().Err(err).Dur("backoff", backoff).Msg("ai-service call failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
