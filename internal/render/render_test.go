package render

import (
	"strings"
	"testing"

	"cv-builder/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyPNG = "data:image/png;base64,iVBORw0KGgo="

func fullDocument(tpl model.TemplateType) *model.CVDocument {
	return &model.CVDocument{
		Personal: model.PersonalInfo{
			Name:    "Ada Lovelace",
			Email:   "ada@example.com",
			Phone:   "555-0100",
			Age:     "36",
			Summary: "Analytical engine programmer.",
		},
		Experience: []model.ExperienceEntry{
			{Employer: "Acme", Title: "Engineer", Period: "2020 - Present", Description: "Built things"},
			{Employer: "Globex", Title: "Intern", Period: "2018 - 2019"},
		},
		Education:    []model.EducationEntry{{Degree: "BSc", Institution: "UBA", Years: "2014 - 2018"}},
		Skills:       []string{"Go", "SQL"},
		TemplateType: tpl,
		ProfileImage: tinyPNG,
	}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestRender_AllSections(t *testing.T) {
	r := newRenderer(t)
	for _, tpl := range []model.TemplateType{model.TemplateBasic, model.TemplateProfessional} {
		t.Run(string(tpl), func(t *testing.T) {
			html, err := r.Render(fullDocument(tpl))
			require.NoError(t, err)
			d := parse(t, html)

			assert.Equal(t, 1, d.Find(".template-"+string(tpl)).Length())
			assert.Equal(t, "Ada Lovelace", d.Find("h1").First().Text())
			assert.Contains(t, d.Find(".contact-info").Text(), "ada@example.com")
			assert.Equal(t, 1, d.Find(".summary-section").Length())
			assert.Equal(t, 2, d.Find(".experience-item").Length())
			assert.Equal(t, "2020 - Present", d.Find(".experience-item .period").First().Text())
			assert.Equal(t, 1, d.Find(".experience-item .description").Length())
			assert.Equal(t, 1, d.Find(".education-item").Length())
			assert.Equal(t, 2, d.Find(".skill-item").Length())

			src, ok := d.Find(".profile-image img").Attr("src")
			require.True(t, ok)
			assert.Equal(t, tinyPNG, src)
		})
	}
}

func TestRender_OmitsEmptySections(t *testing.T) {
	r := newRenderer(t)
	doc := &model.CVDocument{
		Personal:     model.PersonalInfo{Name: "Ada"},
		Experience:   []model.ExperienceEntry{},
		Education:    []model.EducationEntry{},
		Skills:       []string{},
		TemplateType: model.TemplateBasic,
	}
	html, err := r.Render(doc)
	require.NoError(t, err)
	d := parse(t, html)

	assert.Zero(t, d.Find("h2").Length(), "no section headings without content")
	assert.Zero(t, d.Find(".profile-image").Length())
	assert.Zero(t, d.Find(".contact-info p").Length())
}

func TestRender_OmitsEmptyContactBlock(t *testing.T) {
	r := newRenderer(t)
	for _, tpl := range []model.TemplateType{model.TemplateBasic, model.TemplateProfessional} {
		t.Run(string(tpl), func(t *testing.T) {
			html, err := r.Render(&model.CVDocument{
				Personal:     model.PersonalInfo{Name: "Ada Lovelace"},
				TemplateType: tpl,
			})
			require.NoError(t, err)
			assert.NotContains(t, html, "contact-info")

			html, err = r.Render(&model.CVDocument{
				Personal:     model.PersonalInfo{Name: "Ada Lovelace", Phone: "555-0100"},
				TemplateType: tpl,
			})
			require.NoError(t, err)
			assert.Contains(t, parse(t, html).Find(".contact-info").Text(), "555-0100")
		})
	}
}

func TestRender_ProfessionalTheme(t *testing.T) {
	r := newRenderer(t)
	doc := fullDocument(model.TemplateProfessional)

	doc.TemplateColor = model.ColorBurgundy
	html, err := r.Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, parse(t, html).Find(".template-professional.theme-burgundy").Length())

	doc.TemplateColor = ""
	html, err = r.Render(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, parse(t, html).Find(".theme-blue").Length())

	basic := fullDocument(model.TemplateBasic)
	basic.TemplateColor = model.ColorGreen
	html, err = r.Render(basic)
	require.NoError(t, err)
	assert.NotContains(t, html, "theme-")
}

func TestRender_EscapesUserText(t *testing.T) {
	r := newRenderer(t)
	doc := fullDocument(model.TemplateBasic)
	doc.Personal.Name = `<script>alert("x")</script>`
	html, err := r.Render(doc)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Zero(t, parse(t, html).Find("script").Length())
}

func TestRender_RejectsNonImageURIs(t *testing.T) {
	r := newRenderer(t)
	doc := fullDocument(model.TemplateBasic)
	doc.ProfileImage = "javascript:alert(1)"
	html, err := r.Render(doc)
	require.NoError(t, err)
	assert.Zero(t, parse(t, html).Find(".profile-image").Length())
}

func TestRender_UnknownTemplate(t *testing.T) {
	r := newRenderer(t)
	_, err := r.Render(&model.CVDocument{TemplateType: "modern"})
	var tplErr *TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, "modern", tplErr.Template)

	_, err = r.Render(nil)
	assert.Error(t, err)
}

func TestPage_InlinesStylesheet(t *testing.T) {
	r := newRenderer(t)
	html, err := r.Page(fullDocument(model.TemplateProfessional))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	d := parse(t, html)
	assert.Equal(t, "Ada Lovelace - CV", d.Find("title").Text())
	assert.Contains(t, d.Find("style").Text(), ".theme-burgundy")
	assert.Equal(t, 1, d.Find("body .template-professional").Length())
}
