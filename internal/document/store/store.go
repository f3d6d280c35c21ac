package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/document"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectDocumentColumns = `
	id, tenant_id, client_id, template_id, doc_type, status,
	current_data, current_totals, created_by, created_at, updated_at
`

func scanDocument(s scanner) (*document.Document, error) {
	var doc document.Document

	var docType, status string

	var data, totals []byte

	if err := s.Scan(
		&doc.ID, &doc.TenantID, &doc.ClientID, &doc.TemplateID, &docType, &status,
		&data, &totals, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	doc.Type = document.DocType(docType)
	doc.Status = document.Status(status)

	if err := json.Unmarshal(data, &doc.Data); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}

	if err := json.Unmarshal(totals, &doc.Totals); err != nil {
		return nil, fmt.Errorf("decoding totals: %w", err)
	}

	return &doc, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) error {
	data, totals, err := encodeData(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (tenant_id, client_id, template_id, doc_type, status, current_data, current_totals, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		doc.TenantID,
		doc.ClientID,
		doc.TemplateID,
		doc.Type,
		doc.Status,
		data,
		totals,
		doc.CreatedBy,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating document: %w", database.Classify(err))
	}

	return nil
}

func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.ErrNotFound, "document %s not found", id)
		}

		return nil, fmt.Errorf("getting document: %w", database.Classify(err))
	}

	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context, filter document.ListFilter) ([]*document.Document, error) {
	query := `SELECT ` + selectDocumentColumns + ` FROM documents WHERE tenant_id = $1`

	args := []any{filter.TenantID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND doc_type = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", database.Classify(err))
	}
	defer rows.Close()

	var docs []*document.Document

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", database.Classify(err))
	}

	return docs, nil
}

func (s *Store) UpdateDraft(ctx context.Context, doc *document.Document) error {
	data, totals, err := encodeData(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET client_id = $1, current_data = $2, current_totals = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'DRAFT'
		RETURNING updated_at
	`

	err = s.db.QueryRowContext(ctx, query, doc.ClientID, data, totals, doc.ID).Scan(&doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Newf(apperr.ErrInvalidState, "document %s is no longer a draft", doc.ID)
		}

		return fmt.Errorf("updating document: %w", database.Classify(err))
	}

	return nil
}

func (s *Store) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1 AND status = 'DRAFT'", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", database.Classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if n == 0 {
		return apperr.Newf(apperr.ErrInvalidState, "document %s is no longer a draft", id)
	}

	return nil
}

func encodeData(doc *document.Document) ([]byte, []byte, error) {
	data, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding data: %w", err)
	}

	totals, err := json.Marshal(doc.Totals)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding totals: %w", err)
	}

	return data, totals, nil
}
