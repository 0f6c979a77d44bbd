package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"cv-builder/internal/model"
	"cv-builder/internal/store"

	"github.com/rs/zerolog"
)

var (
	// ErrNoDocument means no document has been built in this session yet.
	ErrNoDocument = errors.New("no document has been built yet")
	// ErrPaymentsDisabled is returned by Checkout when the payment key
	// lookup failed at startup.
	ErrPaymentsDisabled = errors.New("payments are disabled")
)

const (
	PDFFilename    = "cv.pdf"
	PDFContentType = "application/pdf"

	launchStatusParam = "status"
	launchApproved    = "approved"
)

type Normalizer interface {
	Normalize(ctx context.Context, dataURI string, size int64) (string, error)
}

type Renderer interface {
	Render(doc *model.CVDocument) (string, error)
}

// Backend is everything the page needs from the server side.
type Backend interface {
	PaymentPublicKey(ctx context.Context) (string, error)
	SaveDocument(ctx context.Context, doc *model.CVDocument) (string, error)
	CreatePreference(ctx context.Context, req model.PreferenceRequest) (*model.Preference, error)
	GeneratePDF(ctx context.Context, doc *model.CVDocument) ([]byte, error)
	GenerateSummary(ctx context.Context, prompt string) (string, error)
}

// Download is a file handed to the user.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service holds what all sessions share: collaborators and the payment
// switch.
type Service struct {
	normalizer Normalizer
	renderer   Renderer
	backend    Backend
	log        zerolog.Logger
	now        func() time.Time

	paymentsEnabled atomic.Bool
	publicKey       atomic.Value
}

func NewService(n Normalizer, r Renderer, b Backend, log zerolog.Logger) *Service {
	return &Service{normalizer: n, renderer: r, backend: b, log: log, now: time.Now}
}

// InitPayments looks up the public payment key. A failure is not fatal:
// payments stay disabled and everything else keeps working.
func (s *Service) InitPayments(ctx context.Context) {
	key, err := s.backend.PaymentPublicKey(ctx)
	if err != nil || key == "" {
		s.log.Error().Err(err).Msg("payment key lookup failed, payments disabled")
		s.paymentsEnabled.Store(false)
		return
	}
	s.publicKey.Store(key)
	s.paymentsEnabled.Store(true)
	s.log.Info().Msg("payments enabled")
}

func (s *Service) PaymentsEnabled() bool {
	return s.paymentsEnabled.Load()
}

// PublicKey returns the payment key found by InitPayments, if any.
func (s *Service) PublicKey() string {
	k, _ := s.publicKey.Load().(string)
	return k
}

// Session binds the shared service to one user's photo and document slots.
func (s *Service) Session(slots store.Slots) *Session {
	b := NewBuilder(slots, s.log)
	b.now = s.now
	return &Session{svc: s, slots: slots, builder: b}
}

type Session struct {
	svc     *Service
	slots   store.Slots
	builder *Builder
}

// UploadImage normalizes a photo, stores it and refreshes the preview from
// snap. The preview pulls the photo back from the store, so with
// overlapping uploads whichever finished last is shown.
func (s *Session) UploadImage(ctx context.Context, dataURI string, size int64, snap FormSnapshot) (string, error) {
	out, err := s.svc.normalizer.Normalize(ctx, dataURI, size)
	if err != nil {
		return "", err
	}
	if err := s.slots.SaveImage(ctx, out); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	return s.Refresh(ctx, snap)
}

// Refresh rebuilds the document, remembers it as the session's last built
// document and renders the preview.
func (s *Session) Refresh(ctx context.Context, snap FormSnapshot) (string, error) {
	doc, err := s.builder.Build(ctx, snap)
	if err != nil {
		return "", err
	}
	if err := s.slots.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	html, err := s.svc.renderer.Render(doc)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	return html, nil
}

// Checkout saves the last built document and opens a payment preference
// for it. It returns the URL to redirect the user to. No preference is
// requested unless the save succeeded.
func (s *Session) Checkout(ctx context.Context) (string, error) {
	if !s.svc.PaymentsEnabled() {
		return "", ErrPaymentsDisabled
	}
	doc, err := s.lastDocument(ctx)
	if err != nil {
		return "", err
	}

	id, err := s.svc.backend.SaveDocument(ctx, doc)
	if err != nil {
		s.svc.log.Error().Err(err).Msg("save document failed")
		return "", fmt.Errorf("save document: %w", err)
	}

	pref, err := s.svc.backend.CreatePreference(ctx, model.PreferenceRequest{
		TemplateType:      doc.TemplateType,
		TemplateColor:     doc.TemplateColor,
		ExternalReference: id,
	})
	if err != nil {
		s.svc.log.Error().Err(err).Str("form_id", id).Msg("create preference failed")
		return "", fmt.Errorf("create preference: %w", err)
	}
	if pref == nil || pref.InitPoint == "" {
		return "", fmt.Errorf("create preference: response has no init_point")
	}
	s.svc.log.Info().Str("form_id", id).Str("preference_id", pref.ID).Msg("checkout started")
	return pref.InitPoint, nil
}

// DownloadPDF sends the last built document to the PDF generator.
func (s *Session) DownloadPDF(ctx context.Context) (*Download, error) {
	doc, err := s.lastDocument(ctx)
	if err != nil {
		return nil, err
	}
	if doc.ProfileImage == "" {
		doc.ProfileImage = s.builder.resolveImage(ctx, "")
	}

	pdf, err := s.svc.backend.GeneratePDF(ctx, doc)
	if err != nil {
		s.svc.log.Error().Err(err).Msg("generate pdf failed")
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return &Download{Filename: PDFFilename, ContentType: PDFContentType, Data: pdf}, nil
}

// GenerateSummary asks the backend for a summary of the document built from
// snap, puts it in the summary field and refreshes. On failure the returned
// snapshot is snap unchanged.
func (s *Session) GenerateSummary(ctx context.Context, snap FormSnapshot) (FormSnapshot, string, error) {
	doc, err := s.builder.Build(ctx, snap)
	if err != nil {
		return snap, "", err
	}

	summary, err := s.svc.backend.GenerateSummary(ctx, SummaryPrompt(doc))
	if err != nil {
		s.svc.log.Warn().Err(err).Msg("generate summary failed")
		return snap, "", fmt.Errorf("generate summary: %w", err)
	}

	next := snap
	next.Personal.Summary = summary
	html, err := s.Refresh(ctx, next)
	if err != nil {
		return next, "", err
	}
	return next, html, nil
}

// HandleLaunch inspects the URL the page was opened with. After an approved
// payment it generates the PDF once; otherwise it returns nil.
func (s *Session) HandleLaunch(ctx context.Context, launchURL string) (*Download, error) {
	u, err := url.Parse(launchURL)
	if err != nil {
		return nil, fmt.Errorf("parse launch url: %w", err)
	}
	if u.Query().Get(launchStatusParam) != launchApproved {
		return nil, nil
	}
	s.svc.log.Info().Msg("payment approved, generating pdf")
	return s.DownloadPDF(ctx)
}

func (s *Session) lastDocument(ctx context.Context) (*model.CVDocument, error) {
	doc, err := s.slots.LoadDocument(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}
