package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cv-builder/internal/adapter/repository"
	"cv-builder/internal/domain"
	"cv-builder/internal/model"
	"cv-builder/pkg/backend"
	"cv-builder/pkg/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fakes are shared with server goroutines, so every access locks.

type fakePDF struct {
	mu   sync.Mutex
	html string
	err  error
}

func (f *fakePDF) RenderHTMLToPDF(_ context.Context, html string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 test"), nil
}

func (f *fakePDF) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakePDF) lastHTML() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html
}

type fakePages struct{}

func (fakePages) Page(doc *model.CVDocument) (string, error) {
	return "<html><body>" + doc.Personal.Name + "</body></html>", nil
}

type fakePayments struct {
	mu      sync.Mutex
	in      payment.PreferenceInput
	calls   int
	payment *payment.Payment
	err     error
}

func (f *fakePayments) CreatePreference(_ context.Context, in payment.PreferenceInput) (*payment.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &payment.Preference{ID: "pref-1", InitPoint: "https://mp.example/checkout?pref_id=pref-1"}, nil
}

func (f *fakePayments) Payment(_ context.Context, id string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payment == nil {
		return nil, errors.New("not found")
	}
	p := *f.payment
	return &p, nil
}

func (f *fakePayments) set(p *payment.Payment, err error) {
	f.mu.Lock()
	f.payment, f.err = p, err
	f.mu.Unlock()
}

func (f *fakePayments) last() (payment.PreferenceInput, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.in, f.calls
}

type fakeSummarizer struct {
	mu     sync.Mutex
	prompt string
	err    error
}

func (f *fakeSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return "Seasoned engineer.", nil
}

func (f *fakeSummarizer) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSummarizer) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt
}

type apiFixture struct {
	app      *fiber.App
	docs     *repository.MemoryDocuments
	pdf      *fakePDF
	payments *fakePayments
	summary  *fakeSummarizer
}

func newAPI(t *testing.T, withPayments bool) *apiFixture {
	t.Helper()
	f := &apiFixture{
		docs:     repository.NewMemoryDocuments(),
		pdf:      &fakePDF{},
		payments: &fakePayments{},
		summary:  &fakeSummarizer{},
	}
	opts := Options{
		PublicURL: "https://cv.example",
		Product:   Product{Title: "CV", Currency: "ARS", UnitPrice: 2000},
	}
	var payments Payments
	if withPayments {
		opts.PublicKey = "APP_USR-public"
		payments = f.payments
	}
	h := NewHandler(f.docs, f.pdf, fakePages{}, payments, f.summary, opts, zerolog.Nop())
	f.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	h.Register(f.app)
	return f
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

const validDoc = `{"personal":{"name":"Ada Lovelace","email":"ada@example.com"},"experience":[{"employer":"Analytical Engines","title":"Programmer","period":"1842 - 1843","description":"Notes"}],"skills":["math"],"template_type":"professional","template_color":"green"}`

func (f *apiFixture) save(t *testing.T) uuid.UUID {
	t.Helper()
	resp := f.do(t, http.MethodPost, backend.PathSaveDocument, validDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[backend.SaveResponse](t, resp)
	return uuid.MustParse(out.FormID)
}

func TestPaymentKey(t *testing.T) {
	resp := newAPI(t, true).do(t, http.MethodGet, backend.PathPaymentKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "APP_USR-public", decode[backend.PaymentKeyResponse](t, resp).PublicKey)

	resp = newAPI(t, false).do(t, http.MethodGet, backend.PathPaymentKey, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, decode[backend.ErrorBody](t, resp).Error)
}

func TestSaveDocument(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", rec.Document.Personal.Name)
	assert.Equal(t, model.TemplateProfessional, rec.TemplateType)
	assert.Equal(t, domain.StatusPending, rec.Status)
}

func TestSaveDocument_Rejects(t *testing.T) {
	f := newAPI(t, true)

	resp := f.do(t, http.MethodPost, backend.PathSaveDocument, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, backend.PathSaveDocument, `{"personal":{},"template_type":"fancy"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[backend.ErrorBody](t, resp).Error, "schema validation failed")
}

func TestCreatePreference(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)

	body := `{"template_type":"professional","template_color":"green","external_reference":"` + id.String() + `"}`
	resp := f.do(t, http.MethodPost, backend.PathCreatePreference, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pref := decode[model.Preference](t, resp)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp.example/checkout?pref_id=pref-1", pref.InitPoint)

	in, _ := f.payments.last()
	require.Len(t, in.Items, 1)
	assert.Equal(t, payment.Item{Title: "CV", Quantity: 1, CurrencyID: "ARS", UnitPrice: 2000}, in.Items[0])
	assert.Equal(t, "https://cv.example/success?template_type=professional", in.BackURLs.Success)
	assert.Equal(t, "https://cv.example/failure", in.BackURLs.Failure)
	assert.Equal(t, "https://cv.example/pending", in.BackURLs.Pending)
	assert.Equal(t, payment.AutoReturnApproved, in.AutoReturn)
	assert.Equal(t, id.String(), in.ExternalReference)
}

func TestCreatePreference_Errors(t *testing.T) {
	f := newAPI(t, true)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"bad template", `{"template_type":"fancy","external_reference":"` + uuid.NewString() + `"}`, http.StatusBadRequest},
		{"bad reference", `{"template_type":"basic","external_reference":"42"}`, http.StatusBadRequest},
		{"unknown document", `{"template_type":"basic","external_reference":"` + uuid.NewString() + `"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, backend.PathCreatePreference, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	_, calls := f.payments.last()
	assert.Zero(t, calls)

	t.Run("provider failure", func(t *testing.T) {
		id := f.save(t)
		f.payments.set(nil, &payment.APIError{Status: 401, Message: "invalid access token"})
		resp := f.do(t, http.MethodPost, backend.PathCreatePreference,
			`{"template_type":"basic","external_reference":"`+id.String()+`"}`)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})

	t.Run("payments disabled", func(t *testing.T) {
		resp := newAPI(t, false).do(t, http.MethodPost, backend.PathCreatePreference, `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestDownloadPDF(t *testing.T) {
	f := newAPI(t, true)
	resp := f.do(t, http.MethodPost, backend.PathGeneratePDF, validDoc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="cv.pdf"`)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 test", string(body))
	assert.Contains(t, f.pdf.lastHTML(), "Ada Lovelace")
}

func TestDownloadPDF_RendererFailure(t *testing.T) {
	f := newAPI(t, true)
	f.pdf.setErr(errors.New("chrome not found"))
	resp := f.do(t, http.MethodPost, backend.PathGeneratePDF, validDoc)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "could not generate pdf", decode[backend.ErrorBody](t, resp).Error)
}

func TestGenerateSummary(t *testing.T) {
	f := newAPI(t, true)
	resp := f.do(t, http.MethodPost, backend.PathGenerateSummary, `{"prompt":"describe Ada"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Seasoned engineer.", decode[backend.SummaryResponse](t, resp).Summary)
	assert.Equal(t, "describe Ada", f.summary.lastPrompt())

	resp = f.do(t, http.MethodPost, backend.PathGenerateSummary, `{"prompt":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.summary.setErr(errors.New("quota exceeded"))
	resp = f.do(t, http.MethodPost, backend.PathGenerateSummary, `{"prompt":"describe Ada"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSuccess_MarksPaidAndRedirects(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)
	f.payments.set(&payment.Payment{ID: 987, Status: "approved", ExternalReference: id.String()}, nil)

	resp := f.do(t, http.MethodGet, "/success?template_type=basic&payment_id=987&status=approved", "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?status=approved&template_type=basic", resp.Header.Get("Location"))

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, rec.Paid())
	require.NotNil(t, rec.PaymentID)
	assert.Equal(t, "987", *rec.PaymentID)
	assert.NotNil(t, rec.PaidAt)
}

func TestSuccess_ProviderStatusWins(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)
	f.payments.set(&payment.Payment{ID: 5, Status: "rejected", ExternalReference: id.String()}, nil)

	resp := f.do(t, http.MethodGet, "/success?payment_id=5&status=approved&external_reference="+id.String(), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?status=rejected", resp.Header.Get("Location"))

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, rec.Paid())
}

func TestSuccess_QueryStatusAloneDoesNotMarkPaid(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)

	resp := f.do(t, http.MethodGet, "/success?status=approved&template_type=basic&external_reference="+id.String(), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?status=approved&template_type=basic", resp.Header.Get("Location"))

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, rec.Paid())
	assert.Nil(t, rec.PaymentID)
}

func TestSuccess_FailedLookupDoesNotMarkPaid(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)
	f.payments.set(nil, nil)

	resp := f.do(t, http.MethodGet, "/success?payment_id=404&status=approved&external_reference="+id.String(), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?status=approved", resp.Header.Get("Location"))

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, rec.Paid())
}

func TestSuccess_WithoutPaymentsNeverMarksPaid(t *testing.T) {
	f := newAPI(t, false)
	id := f.save(t)

	resp := f.do(t, http.MethodGet, "/success?payment_id=1&status=approved&external_reference="+id.String(), "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	rec, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, rec.Paid())
}

func TestFailureAndPending(t *testing.T) {
	f := newAPI(t, true)
	for path, want := range map[string]string{
		"/failure": "The payment failed.",
		"/pending": "The payment is pending.",
	} {
		resp := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, want, string(body))
	}
}

func TestGetDocument(t *testing.T) {
	f := newAPI(t, true)
	id := f.save(t)

	resp := f.do(t, http.MethodGet, "/documents/"+id.String(), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[domain.SavedDocument](t, resp)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, []string{"math"}, rec.Document.Skills)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/documents/nope", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/documents/"+uuid.NewString(), "").StatusCode)
}
