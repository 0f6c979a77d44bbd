package model

// Go models for the CV document built from the form and sent to the backend.

type TemplateType string

const (
	TemplateBasic        TemplateType = "basic"
	TemplateProfessional TemplateType = "professional"
)

// DefaultTemplate is the template checked when the form carries no choice.
const DefaultTemplate = TemplateBasic

// ParseTemplateType maps a form value (including the legacy spanish ids)
// onto a template. ok is false for empty or unknown values.
func ParseTemplateType(s string) (TemplateType, bool) {
	switch s {
	case "basic", "basico", "básico":
		return TemplateBasic, true
	case "professional", "profesional", "pro":
		return TemplateProfessional, true
	}
	return "", false
}

// SupportsColor reports whether the template has color variants.
func (t TemplateType) SupportsColor() bool {
	return t == TemplateProfessional
}

type TemplateColor string

const (
	ColorBlue     TemplateColor = "blue"
	ColorGreen    TemplateColor = "green"
	ColorBurgundy TemplateColor = "burgundy"
	ColorGray     TemplateColor = "gray"
)

const DefaultColor = ColorBlue

// ParseTemplateColor falls back to DefaultColor for anything outside the palette.
func ParseTemplateColor(s string) TemplateColor {
	switch c := TemplateColor(s); c {
	case ColorBlue, ColorGreen, ColorBurgundy, ColorGray:
		return c
	}
	return DefaultColor
}

type PersonalInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	NationalID string `json:"national_id"`
	BirthDate  string `json:"birth_date"`
	Age        string `json:"age"`
	Summary    string `json:"summary,omitempty"`
}

type ExperienceEntry struct {
	Employer    string `json:"employer"`
	Title       string `json:"title"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Years       string `json:"years"`
}

type CVDocument struct {
	Personal      PersonalInfo      `json:"personal"`
	Experience    []ExperienceEntry `json:"experience"`
	Education     []EducationEntry  `json:"education"`
	Skills        []string          `json:"skills"`
	TemplateType  TemplateType      `json:"template_type"`
	TemplateColor TemplateColor     `json:"template_color,omitempty"`
	ProfileImage  string            `json:"profile_image,omitempty"`
}
