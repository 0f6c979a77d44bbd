package http

import (
	"context"
	"errors"
	"net/url"
	"time"

	"cv-builder/internal/adapter/repository"
	"cv-builder/internal/domain"
	"cv-builder/internal/model"
	"cv-builder/pkg/backend"
	"cv-builder/pkg/payment"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Documents interface {
	Save(ctx context.Context, doc *model.CVDocument) (*domain.SavedDocument, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.SavedDocument, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paymentID string, at time.Time) error
}

type PDFRenderer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

type PageRenderer interface {
	Page(doc *model.CVDocument) (string, error)
}

type Payments interface {
	CreatePreference(ctx context.Context, in payment.PreferenceInput) (*payment.Preference, error)
	Payment(ctx context.Context, id string) (*payment.Payment, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Product is the single item sold at checkout.
type Product struct {
	Title     string
	Currency  string
	UnitPrice float64
}

type Options struct {
	// PublicKey is handed to the page; empty disables payments.
	PublicKey string
	// PublicURL is the externally visible base used for payment return URLs.
	PublicURL string
	Product   Product
}

// Handler serves the backend API the page talks to.
type Handler struct {
	docs       Documents
	pdf        PDFRenderer
	pages      PageRenderer
	payments   Payments
	summarizer Summarizer
	opts       Options
	log        zerolog.Logger
	now        func() time.Time
}

// NewHandler wires the API. payments and summarizer may be nil, which
// turns the matching endpoints into 503s.
func NewHandler(docs Documents, pdf PDFRenderer, pages PageRenderer, payments Payments, summarizer Summarizer, opts Options, log zerolog.Logger) *Handler {
	return &Handler{
		docs:       docs,
		pdf:        pdf,
		pages:      pages,
		payments:   payments,
		summarizer: summarizer,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get(backend.PathPaymentKey, h.PaymentKey)
	r.Post(backend.PathSaveDocument, h.SaveDocument)
	r.Post(backend.PathCreatePreference, h.CreatePreference)
	r.Post(backend.PathGeneratePDF, h.DownloadPDF)
	r.Post(backend.PathGenerateSummary, h.GenerateSummary)
	r.Get("/success", h.Success)
	r.Get("/failure", h.Failure)
	r.Get("/pending", h.Pending)
	r.Get("/documents/:id", h.GetDocument)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(backend.ErrorBody{Error: msg})
}

func (h *Handler) PaymentKey(c *fiber.Ctx) error {
	if h.opts.PublicKey == "" || h.payments == nil {
		return fail(c, fiber.StatusServiceUnavailable, "payments are not configured")
	}
	return c.JSON(backend.PaymentKeyResponse{PublicKey: h.opts.PublicKey})
}

// parseDocument decodes and schema-checks a CVDocument body.
func parseDocument(c *fiber.Ctx) (*model.CVDocument, error) {
	var doc model.CVDocument
	if err := c.BodyParser(&doc); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if err := model.Validate(&doc); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return &doc, nil
}

func (h *Handler) SaveDocument(c *fiber.Ctx) error {
	doc, err := parseDocument(c)
	if err != nil {
		return fail(c, errorStatus(err), err.Error())
	}
	rec, err := h.docs.Save(c.UserContext(), doc)
	if err != nil {
		h.log.Error().Err(err).Msg("save document failed")
		return fail(c, fiber.StatusInternalServerError, "could not save document")
	}
	h.log.Info().Str("form_id", rec.ID.String()).Str("template", string(rec.TemplateType)).Msg("document saved")
	return c.JSON(backend.SaveResponse{FormID: rec.ID.String()})
}

func (h *Handler) CreatePreference(c *fiber.Ctx) error {
	if h.payments == nil {
		return fail(c, fiber.StatusServiceUnavailable, "payments are not configured")
	}
	var req model.PreferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid payload")
	}
	tpl, ok := model.ParseTemplateType(string(req.TemplateType))
	if !ok {
		return fail(c, fiber.StatusBadRequest, "unknown template_type")
	}
	id, err := uuid.Parse(req.ExternalReference)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid external_reference")
	}
	if _, err := h.docs.FindByID(c.UserContext(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, fiber.StatusNotFound, "document not found")
		}
		h.log.Error().Err(err).Msg("lookup document failed")
		return fail(c, fiber.StatusInternalServerError, "could not load document")
	}

	success := h.opts.PublicURL + "/success?" + url.Values{"template_type": {string(tpl)}}.Encode()
	pref, err := h.payments.CreatePreference(c.UserContext(), payment.PreferenceInput{
		Items: []payment.Item{{
			Title:      h.opts.Product.Title,
			Quantity:   1,
			CurrencyID: h.opts.Product.Currency,
			UnitPrice:  h.opts.Product.UnitPrice,
		}},
		BackURLs: payment.BackURLs{
			Success: success,
			Failure: h.opts.PublicURL + "/failure",
			Pending: h.opts.PublicURL + "/pending",
		},
		AutoReturn:        payment.AutoReturnApproved,
		ExternalReference: id.String(),
	})
	if err != nil {
		h.log.Error().Err(err).Str("form_id", id.String()).Msg("create preference failed")
		return fail(c, fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(model.Preference{ID: pref.ID, InitPoint: pref.InitPoint})
}

func (h *Handler) DownloadPDF(c *fiber.Ctx) error {
	doc, err := parseDocument(c)
	if err != nil {
		return fail(c, errorStatus(err), err.Error())
	}
	html, err := h.pages.Page(doc)
	if err != nil {
		h.log.Error().Err(err).Msg("render page failed")
		return fail(c, fiber.StatusInternalServerError, "could not render document")
	}
	pdf, err := h.pdf.RenderHTMLToPDF(c.UserContext(), html)
	if err != nil {
		h.log.Error().Err(err).Msg("pdf rendering failed")
		return fail(c, fiber.StatusInternalServerError, "could not generate pdf")
	}
	c.Attachment("cv.pdf")
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(pdf)
}

func (h *Handler) GenerateSummary(c *fiber.Ctx) error {
	if h.summarizer == nil {
		return fail(c, fiber.StatusServiceUnavailable, "summary generation is not configured")
	}
	var req backend.SummaryRequest
	if err := c.BodyParser(&req); err != nil || req.Prompt == "" {
		return fail(c, fiber.StatusBadRequest, "prompt is required")
	}
	summary, err := h.summarizer.Summarize(c.UserContext(), req.Prompt)
	if err != nil {
		h.log.Warn().Err(err).Msg("summary generation failed")
		return fail(c, fiber.StatusBadGateway, "could not generate summary")
	}
	return c.JSON(backend.SummaryResponse{Summary: summary})
}

// Success is the payment provider's return URL. Only a payment the
// provider confirms as approved marks the document paid; the query string
// alone never does. The user is sent back to the page with the outcome in
// the status parameter, which triggers the download.
func (h *Handler) Success(c *fiber.Ctx) error {
	status := c.Query("status", c.Query("collection_status"))
	paymentID := c.Query("payment_id", c.Query("collection_id"))
	ref := c.Query("external_reference")

	if p := h.verifyPayment(c.UserContext(), paymentID); p != nil {
		status = p.Status
		if p.ExternalReference != "" {
			ref = p.ExternalReference
		}
		if p.Approved() {
			h.markPaid(c.UserContext(), ref, paymentID)
		}
	}

	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if tpl := c.Query("template_type"); tpl != "" {
		q.Set("template_type", tpl)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (h *Handler) Failure(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("The payment failed.")
}

func (h *Handler) Pending(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("The payment is pending.")
}

func (h *Handler) GetDocument(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	rec, err := h.docs.FindByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "document not found")
	}
	if err != nil {
		h.log.Error().Err(err).Msg("lookup document failed")
		return fail(c, fiber.StatusInternalServerError, "could not load document")
	}
	return c.JSON(rec)
}

// verifyPayment asks the provider for paymentID. It returns nil when
// payments are not configured, the id is missing or the lookup fails.
func (h *Handler) verifyPayment(ctx context.Context, paymentID string) *payment.Payment {
	if h.payments == nil {
		return nil
	}
	if paymentID == "" {
		h.log.Warn().Msg("payment return without payment id")
		return nil
	}
	p, err := h.payments.Payment(ctx, paymentID)
	if err != nil {
		h.log.Warn().Err(err).Str("payment_id", paymentID).Msg("payment lookup failed")
		return nil
	}
	return p
}

func (h *Handler) markPaid(ctx context.Context, ref, paymentID string) {
	id, err := uuid.Parse(ref)
	if err != nil {
		h.log.Warn().Str("form_id", ref).Msg("approved payment with unknown reference")
		return
	}
	if err := h.docs.MarkPaid(ctx, id, paymentID, h.now()); err != nil {
		h.log.Error().Err(err).Str("form_id", ref).Msg("mark paid failed")
		return
	}
	h.log.Info().Str("form_id", ref).Str("payment_id", paymentID).Msg("document paid")
}

func errorStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
