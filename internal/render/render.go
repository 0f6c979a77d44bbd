// Package render turns a CVDocument into HTML: a preview fragment for the
// page and a standalone document for PDF conversion.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"cv-builder/internal/model"
)

//go:embed templates/*.html templates/style.css
var files embed.FS

// TemplateError reports a template that failed to parse or execute.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

const pageTemplate = "page"

type view struct {
	Doc   *model.CVDocument
	Photo template.URL
	Theme model.TemplateColor
}

type pageView struct {
	Title string
	CSS   template.CSS
	Body  template.HTML
}

// Renderer is safe for concurrent use once built.
type Renderer struct {
	tpl *template.Template
	css template.CSS
}

func New() (*Renderer, error) {
	tpl, err := template.ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, &TemplateError{Template: "templates/*.html", Cause: err}
	}
	css, err := files.ReadFile("templates/style.css")
	if err != nil {
		return nil, &TemplateError{Template: "style.css", Cause: err}
	}
	return &Renderer{tpl: tpl, css: template.CSS(css)}, nil
}

// Render returns the preview fragment for the document's template.
// Sections with nothing to show are left out entirely.
func (r *Renderer) Render(doc *model.CVDocument) (string, error) {
	if doc == nil {
		return "", &TemplateError{Template: "", Cause: fmt.Errorf("nil document")}
	}
	tt, ok := model.ParseTemplateType(string(doc.TemplateType))
	if !ok || r.tpl.Lookup(string(tt)) == nil {
		return "", &TemplateError{Template: string(doc.TemplateType), Cause: fmt.Errorf("unknown template")}
	}
	name := string(tt)

	v := view{Doc: doc, Photo: photoURL(doc.ProfileImage)}
	if tt.SupportsColor() {
		v.Theme = model.ParseTemplateColor(string(doc.TemplateColor))
	}

	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, v); err != nil {
		return "", &TemplateError{Template: name, Cause: err}
	}
	return strings.TrimSpace(buf.String()), nil
}

// Page wraps the preview fragment in a complete HTML document with the
// stylesheet inlined, so it renders without any other assets.
func (r *Renderer) Page(doc *model.CVDocument) (string, error) {
	body, err := r.Render(doc)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = r.tpl.ExecuteTemplate(&buf, pageTemplate, pageView{
		Title: doc.Personal.Name,
		CSS:   r.css,
		Body:  template.HTML(body),
	})
	if err != nil {
		return "", &TemplateError{Template: pageTemplate, Cause: err}
	}
	return buf.String(), nil
}

// photoURL only lets image data URIs through. html/template would replace
// any other data: URL with a placeholder anyway.
func photoURL(img string) template.URL {
	if strings.HasPrefix(img, "data:image/") {
		return template.URL(img)
	}
	return ""
}
