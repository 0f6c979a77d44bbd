package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cv-builder/internal/domain"
	"cv-builder/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("document not found")

// DocumentsRepo persists saved documents in the cv_documents table.
type DocumentsRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewDocumentsRepo(pool *pgxpool.Pool) *DocumentsRepo {
	return &DocumentsRepo{pool: pool, now: time.Now}
}

func (r *DocumentsRepo) Save(ctx context.Context, doc *model.CVDocument) (*domain.SavedDocument, error) {
	rec := domain.NewSavedDocument(doc, r.now())

	docB, err := json.Marshal(rec.Document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO cv_documents (id, document, template_type, template_color, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, docB, string(rec.TemplateType), string(rec.TemplateColor), rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert cv_documents: %w", err)
	}
	return rec, nil
}

func (r *DocumentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.SavedDocument, error) {
	var rec domain.SavedDocument
	err := queryJSON(ctx, r.pool, &rec, `SELECT to_jsonb(d) FROM cv_documents d WHERE d.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkPaid records a confirmed payment. Repeating it for the same payment
// is harmless.
func (r *DocumentsRepo) MarkPaid(ctx context.Context, id uuid.UUID, paymentID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cv_documents
		SET status = $2, payment_id = $3, paid_at = COALESCE(paid_at, $4), updated_at = $4
		WHERE id = $1`,
		id, domain.StatusPaid, paymentID, at.UTC())
	if err != nil {
		return fmt.Errorf("update cv_documents: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
