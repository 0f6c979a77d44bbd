package model

// PreferenceRequest asks the backend for a payment preference tied to a
// previously saved document.
type PreferenceRequest struct {
	TemplateType      TemplateType  `json:"template_type" validate:"required"`
	TemplateColor     TemplateColor `json:"template_color,omitempty"`
	ExternalReference string        `json:"external_reference" validate:"required"`
}

// Preference is the provider's checkout handle. InitPoint is the URL the
// user is sent to.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}
