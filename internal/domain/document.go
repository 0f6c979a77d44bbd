package domain

import (
	"time"

	"cv-builder/internal/model"

	"github.com/google/uuid"
)

// Payment states of a saved document.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// SavedDocument is a CV persisted by the backend before checkout. Its id is
// the external reference of the payment preference.
type SavedDocument struct {
	ID            uuid.UUID           `json:"id"`
	Document      model.CVDocument    `json:"document"`
	TemplateType  model.TemplateType  `json:"template_type"`
	TemplateColor model.TemplateColor `json:"template_color"`
	Status        string              `json:"status"`
	PaymentID     *string             `json:"payment_id,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewSavedDocument wraps doc in a fresh pending record.
func NewSavedDocument(doc *model.CVDocument, now time.Time) *SavedDocument {
	return &SavedDocument{
		ID:            uuid.New(),
		Document:      *doc,
		TemplateType:  doc.TemplateType,
		TemplateColor: doc.TemplateColor,
		Status:        StatusPending,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
}

func (d *SavedDocument) Paid() bool { return d.Status == StatusPaid }
