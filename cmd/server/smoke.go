package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"cv-builder/internal/config"

	"github.com/spf13/cobra"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run a full checkout against mock payment and AI services",
	Long: "Starts the server on a loopback port with mock MercadoPago and ai-service endpoints, " +
		"then walks preview, summary, checkout, payment return and PDF download. Needs Chrome for the PDF.",
	RunE: runSmoke,
}

var (
	smokeOutputFile string
	smokeTimeout    time.Duration
)

func init() {
	smokeCmd.Flags().StringVarP(&smokeOutputFile, "out", "o", "cv.pdf", "Where to write the downloaded PDF")
	smokeCmd.Flags().DurationVar(&smokeTimeout, "timeout", 90*time.Second, "Overall deadline")
	rootCmd.AddCommand(smokeCmd)
}

type mockPayments struct {
	mu  sync.Mutex
	ref string
}

func (m *mockPayments) handler(baseURL func() string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/checkout/preferences", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			ExternalReference string `json:"external_reference"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.ExternalReference == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		m.ref = in.ExternalReference
		m.mu.Unlock()
		writeMockJSON(w, map[string]string{
			"id":         "smoke-pref",
			"init_point": baseURL() + "/checkout?pref_id=smoke-pref",
		})
	})
	mux.HandleFunc("/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		ref := m.ref
		m.mu.Unlock()
		writeMockJSON(w, map[string]any{"id": 1, "status": "approved", "external_reference": ref})
	})
	return mux
}

func mockAI() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		summary := `{"summary":"Engineer with a track record of shipping reliable backend services and mentoring teams."}`
		writeMockJSON(w, map[string]string{"agent": "mock", "output": summary})
	})
	return mux
}

func writeMockJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), smokeTimeout)
	defer cancel()

	payments := &mockPayments{}
	var mpURL string
	mp := httptest.NewServer(payments.handler(func() string { return mpURL }))
	defer mp.Close()
	mpURL = mp.URL
	aiSrv := httptest.NewServer(mockAI())
	defer aiSrv.Close()

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	base := "http://" + ln.Addr().String()
	cfg.Server.PublicURL = base
	cfg.Backend.URL = base
	cfg.Payment.BaseURL = mp.URL
	cfg.Payment.AccessToken = "TEST-smoke-token"
	cfg.Payment.PublicKey = "TEST-smoke-public"
	cfg.AI.Provider = config.AIProviderService
	cfg.AI.ServiceURL = aiSrv.URL
	log := newLogger(cfg)

	srv, err := newServer(ctx, cfg, log)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer srv.close()

	serveCtx, stopServe := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.serve(serveCtx, ln, 5*time.Second) }()
	defer func() {
		stopServe()
		<-done
	}()

	if err := waitFor(ctx, srv.service.PaymentsEnabled); err != nil {
		return fmt.Errorf("payments never became available: %w", err)
	}

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	out := cmd.OutOrStdout()

	form := url.Values{
		"name":           {"Test User"},
		"email":          {"test@example.com"},
		"employer[]":     {"Acme"},
		"job_title[]":    {"Engineer"},
		"start_date[]":   {"2020-01"},
		"current_job[]":  {"on"},
		"description[]":  {"Built the billing pipeline."},
		"skills[]":       {"Go", "Postgres"},
		"template_type":  {"professional"},
		"template_color": {"green"},
	}

	for _, path := range []string{"/cv/preview", "/cv/summary"} {
		resp, err := smokeStep(ctx, client, http.MethodPost, base+path, form, http.StatusOK)
		if err != nil {
			return err
		}
		resp.Body.Close()
		fmt.Fprintf(out, "%s ok\n", path)
	}

	resp, err := smokeStep(ctx, client, http.MethodPost, base+"/cv/checkout", nil, http.StatusSeeOther)
	if err != nil {
		return err
	}
	resp.Body.Close()
	fmt.Fprintf(out, "checkout redirected to %s\n", resp.Header.Get("Location"))

	payments.mu.Lock()
	ref := payments.ref
	payments.mu.Unlock()
	back := base + "/success?" + url.Values{
		"template_type":      {"professional"},
		"payment_id":         {"1"},
		"status":             {"approved"},
		"external_reference": {ref},
	}.Encode()
	resp, err = smokeStep(ctx, client, http.MethodGet, back, nil, http.StatusSeeOther)
	if err != nil {
		return err
	}
	resp.Body.Close()

	resp, err = smokeStep(ctx, client, http.MethodGet, base+resp.Header.Get("Location"), nil, http.StatusOK)
	if err != nil {
		return err
	}
	pdf, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		return errors.New("download is not a pdf")
	}
	if err := os.WriteFile(smokeOutputFile, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	fmt.Fprintf(out, "wrote %s (%d bytes), document %s\n", smokeOutputFile, len(pdf), ref)
	return nil
}

func smokeStep(ctx context.Context, client *http.Client, method, target string, form url.Values, want int) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d, want %d: %s", method, target, resp.StatusCode, want, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

func waitFor(ctx context.Context, ok func() bool) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for !ok() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}
