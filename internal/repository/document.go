package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, title, customer_name, status, decision, extracted_requirements, website_url,
	duplicate_check_result, version, created_at, updated_at`

// DocumentRepository persists documents. Every mutation is guarded by the
// document version so concurrent writers cannot silently overwrite each other.
type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	extracted, err := marshalNullable(d.ExtractedRequirements)
	if err != nil {
		return err
	}
	dup, err := marshalNullable(d.DuplicateCheck)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (id, title, customer_name, status, decision, extracted_requirements, website_url,
			duplicate_check_result, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.Title, d.CustomerName, d.Status, d.Decision, extracted, nullableString(d.WebsiteURL),
		dup, d.Version, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns documents newest first, continuing after cursor when it is set.
func (r *DocumentRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + documentColumns + ` FROM documents`
	args := []any{}
	if cursor != nil {
		query += ` WHERE (created_at, id) < ($1, $2)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// FindByCustomer returns live documents for the same customer, excluding excludeID.
func (r *DocumentRepository) FindByCustomer(ctx context.Context, customerName, excludeID string) ([]*domain.Document, error) {
	name := strings.TrimSpace(customerName)
	if name == "" {
		return []*domain.Document{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+`
		 FROM documents
		 WHERE LOWER(customer_name) = LOWER($1) AND id <> $2 AND status <> $3
		 ORDER BY created_at DESC`,
		name, excludeID, domain.StatusArchived,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// UpdateStatus sets the workflow status and returns the new version.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, expectedVersion int, status domain.Status) (int, error) {
	if !status.IsValid() {
		return 0, domain.ErrInvalidStatus
	}
	return r.updateVersioned(ctx, id, expectedVersion, `status = $3`, status)
}

// UpdateDecision records the bid decision, optionally moving the status in the same write.
func (r *DocumentRepository) UpdateDecision(ctx context.Context, id string, expectedVersion int, decision domain.Decision, status *domain.Status) (int, error) {
	if !decision.IsValid() {
		return 0, domain.ErrInvalidDecision
	}
	if status == nil {
		return r.updateVersioned(ctx, id, expectedVersion, `decision = $3`, decision)
	}
	if !status.IsValid() {
		return 0, domain.ErrInvalidStatus
	}
	return r.updateVersioned(ctx, id, expectedVersion, `decision = $3, status = $4`, decision, *status)
}

// UpdateDuplicateCheck stores the duplicate check outcome.
func (r *DocumentRepository) UpdateDuplicateCheck(ctx context.Context, id string, expectedVersion int, result *domain.DuplicateCheckResult) (int, error) {
	payload, err := marshalNullable(result)
	if err != nil {
		return 0, err
	}
	return r.updateVersioned(ctx, id, expectedVersion, `duplicate_check_result = $3`, payload)
}

// UpdateExtraction stores extracted requirements and back-fills customer and URL when unset.
func (r *DocumentRepository) UpdateExtraction(ctx context.Context, id string, expectedVersion int, req *domain.ExtractedRequirements) (int, error) {
	payload, err := marshalNullable(req)
	if err != nil {
		return 0, err
	}
	var customer, url string
	if req != nil {
		customer = strings.TrimSpace(req.CustomerName)
		url = req.PrimaryURL()
	}
	return r.updateVersioned(ctx, id, expectedVersion,
		`extracted_requirements = $3,
		 customer_name = CASE WHEN customer_name = '' THEN $4 ELSE customer_name END,
		 website_url = COALESCE(NULLIF(website_url, ''), $5)`,
		payload, customer, nullableString(url),
	)
}

func (r *DocumentRepository) updateVersioned(ctx context.Context, id string, expectedVersion int, set string, args ...any) (int, error) {
	params := append([]any{id, expectedVersion}, args...)
	var version int
	err := r.db.QueryRow(ctx,
		`UPDATE documents SET `+set+`, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		params...,
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrDocumentNotFound
	}
	return 0, domain.ErrVersionConflict
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var extracted, dup []byte
	var url *string
	if err := row.Scan(&d.ID, &d.Title, &d.CustomerName, &d.Status, &d.Decision, &extracted, &url,
		&dup, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if url != nil {
		d.WebsiteURL = *url
	}
	if len(extracted) > 0 {
		var req domain.ExtractedRequirements
		if err := json.Unmarshal(extracted, &req); err != nil {
			return nil, fmt.Errorf("decode extracted requirements for %s: %w", d.ID, err)
		}
		d.ExtractedRequirements = &req
	}
	if len(dup) > 0 {
		var res domain.DuplicateCheckResult
		if err := json.Unmarshal(dup, &res); err != nil {
			return nil, fmt.Errorf("decode duplicate check for %s: %w", d.ID, err)
		}
		d.DuplicateCheck = &res
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	docs := make([]*domain.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *domain.ExtractedRequirements:
		if t == nil {
			return nil, nil
		}
	case *domain.DuplicateCheckResult:
		if t == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	return json.Marshal(v)
}
