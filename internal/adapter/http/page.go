package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"cv-builder/internal/imaging"
	"cv-builder/internal/store"
	"cv-builder/internal/usecase"
	"cv-builder/pkg/backend"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

//go:embed pages/index.html
var pageFiles embed.FS

var indexTemplate = template.Must(template.ParseFS(pageFiles, "pages/index.html"))

const (
	SessionCookie = "cv_session"

	photoField     = "photo"
	photoDataField = "photo_data"
)

type PageOptions struct {
	SecureCookies bool
	SessionTTL    time.Duration
}

// Pages serves the form page and its actions. Each browser session gets its
// own photo and document slots, keyed by the session cookie.
type Pages struct {
	svc   *usecase.Service
	slots store.Provider
	opts  PageOptions
	log   zerolog.Logger
}

func NewPages(svc *usecase.Service, slots store.Provider, opts PageOptions, log zerolog.Logger) *Pages {
	return &Pages{svc: svc, slots: slots, opts: opts, log: log}
}

func (p *Pages) Register(r fiber.Router) {
	r.Get("/", p.Index)
	r.Post("/cv/photo", p.Photo)
	r.Post("/cv/preview", p.Preview)
	r.Post("/cv/summary", p.Summary)
	r.Post("/cv/checkout", p.Checkout)
	r.Post("/cv/pdf", p.PDF)
}

type indexView struct {
	PaymentsEnabled bool
	PublicKey       string
	Status          string
}

// Index serves the form. Opened with status=approved after a payment, it
// answers with the PDF instead.
func (p *Pages) Index(c *fiber.Ctx) error {
	sess := p.session(c)
	dl, err := sess.HandleLaunch(c.UserContext(), c.OriginalURL())
	if err != nil {
		return p.fail(c, err)
	}
	if dl != nil {
		return sendDownload(c, dl)
	}

	view := indexView{
		PaymentsEnabled: p.svc.PaymentsEnabled(),
		PublicKey:       p.svc.PublicKey(),
		Status:          c.Query("status"),
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		p.log.Error().Err(err).Msg("render index failed")
		return c.Status(fiber.StatusInternalServerError).SendString("could not render page")
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// Photo accepts either a multipart file under "photo" or a data URI under
// "photo_data", together with the rest of the form.
func (p *Pages) Photo(c *fiber.Ctx) error {
	values, err := formValues(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid form")
	}

	dataURI, size, err := uploadedPhoto(c, values)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	html, err := p.session(c).UploadImage(c.UserContext(), dataURI, size, usecase.SnapshotFromValues(values))
	if err != nil {
		return p.fail(c, err)
	}
	return sendFragment(c, html)
}

func (p *Pages) Preview(c *fiber.Ctx) error {
	values, err := formValues(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid form")
	}
	html, err := p.session(c).Refresh(c.UserContext(), usecase.SnapshotFromValues(values))
	if err != nil {
		return p.fail(c, err)
	}
	return sendFragment(c, html)
}

type summaryResponse struct {
	Summary string `json:"summary"`
	Preview string `json:"preview"`
}

func (p *Pages) Summary(c *fiber.Ctx) error {
	values, err := formValues(c)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid form")
	}
	snap, html, err := p.session(c).GenerateSummary(c.UserContext(), usecase.SnapshotFromValues(values))
	if err != nil {
		return p.fail(c, err)
	}
	return c.JSON(summaryResponse{Summary: snap.Personal.Summary, Preview: html})
}

type checkoutResponse struct {
	Redirect string `json:"redirect"`
}

// Checkout redirects a plain form post to the payment page; JSON callers get
// the URL back instead.
func (p *Pages) Checkout(c *fiber.Ctx) error {
	target, err := p.session(c).Checkout(c.UserContext())
	if err != nil {
		return p.fail(c, err)
	}
	if wantsJSON(c) {
		return c.JSON(checkoutResponse{Redirect: target})
	}
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (p *Pages) PDF(c *fiber.Ctx) error {
	dl, err := p.session(c).DownloadPDF(c.UserContext())
	if err != nil {
		return p.fail(c, err)
	}
	return sendDownload(c, dl)
}

// session resolves the cookie to store slots, issuing a fresh id when the
// cookie is missing or not a uuid.
func (p *Pages) session(c *fiber.Ctx) *usecase.Session {
	id, err := uuid.Parse(c.Cookies(SessionCookie))
	if err != nil {
		id = uuid.New()
		cookie := &fiber.Cookie{
			Name:     SessionCookie,
			Value:    id.String(),
			Path:     "/",
			HTTPOnly: true,
			Secure:   p.opts.SecureCookies,
			SameSite: fiber.CookieSameSiteLaxMode,
		}
		if p.opts.SessionTTL > 0 {
			cookie.MaxAge = int(p.opts.SessionTTL.Seconds())
		}
		c.Cookie(cookie)
	}
	return p.svc.Session(p.slots.Slots(id.String()))
}

func (p *Pages) fail(c *fiber.Ctx, err error) error {
	status := pageErrorStatus(err)
	ev := p.log.Warn()
	if status >= fiber.StatusInternalServerError {
		ev = p.log.Error()
	}
	ev.Err(err).Int("status", status).Str("path", c.Path()).Msg("page action failed")
	return fail(c, status, err.Error())
}

func pageErrorStatus(err error) int {
	var se *backend.StatusError
	switch {
	case errors.Is(err, imaging.ErrImageTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, usecase.ErrTemplateRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, usecase.ErrNoDocument):
		return fiber.StatusConflict
	case errors.Is(err, usecase.ErrPaymentsDisabled):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &se):
		return fiber.StatusBadGateway
	case errors.Is(err, backend.ErrMalformedResponse):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// formValues returns the submitted fields for both urlencoded and multipart
// bodies.
func formValues(c *fiber.Ctx) (url.Values, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		return url.Values(form.Value), nil
	}
	return url.ParseQuery(string(c.Body()))
}

func uploadedPhoto(c *fiber.Ctx, values url.Values) (string, int64, error) {
	if fh, err := c.FormFile(photoField); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", 0, errors.New("could not read photo")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return "", 0, errors.New("could not read photo")
		}
		return imaging.EncodeUpload(data, fh.Header.Get(fiber.HeaderContentType)), fh.Size, nil
	}
	if uri := values.Get(photoDataField); uri != "" {
		return uri, imaging.PayloadSize(uri), nil
	}
	return "", 0, errors.New("photo is required")
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}

func sendFragment(c *fiber.Ctx, html string) error {
	c.Type("html", "utf-8")
	return c.SendString(html)
}

func sendDownload(c *fiber.Ctx, dl *usecase.Download) error {
	c.Attachment(dl.Filename)
	c.Set(fiber.HeaderContentType, dl.ContentType)
	return c.Send(dl.Data)
}
