package repository

import (
	"context"
	"sync"
	"time"

	"cv-builder/internal/domain"
	"cv-builder/internal/model"
	"cv-builder/internal/store"

	"github.com/google/uuid"
)

// MemoryDocuments keeps saved documents in process memory. It backs the
// service when no database is configured.
type MemoryDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*domain.SavedDocument
	now  func() time.Time
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: map[uuid.UUID]*domain.SavedDocument{}, now: time.Now}
}

func (m *MemoryDocuments) Save(_ context.Context, doc *model.CVDocument) (*domain.SavedDocument, error) {
	rec := domain.NewSavedDocument(store.CloneDocument(doc), m.now())
	m.mu.Lock()
	m.docs[rec.ID] = rec
	m.mu.Unlock()
	return copyRecord(rec), nil
}

func (m *MemoryDocuments) FindByID(_ context.Context, id uuid.UUID) (*domain.SavedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemoryDocuments) MarkPaid(_ context.Context, id uuid.UUID, paymentID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = domain.StatusPaid
	rec.PaymentID = &paymentID
	if rec.PaidAt == nil {
		t := at.UTC()
		rec.PaidAt = &t
	}
	rec.UpdatedAt = at.UTC()
	return nil
}

func copyRecord(rec *domain.SavedDocument) *domain.SavedDocument {
	out := *rec
	out.Document = *store.CloneDocument(&rec.Document)
	return &out
}
