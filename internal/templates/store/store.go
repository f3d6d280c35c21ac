package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
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

const selectTemplateColumns = `
	id, tenant_id, doc_type, name, version, parent_id, is_active,
	source_key, content_type, schema_json, created_at
`

func scanTemplate(s scanner) (*templates.Template, error) {
	var tpl templates.Template

	var docType string

	var schema []byte

	if err := s.Scan(
		&tpl.ID, &tpl.TenantID, &docType, &tpl.Name, &tpl.Version, &tpl.ParentID, &tpl.Active,
		&tpl.SourceKey, &tpl.ContentType, &schema, &tpl.CreatedAt,
	); err != nil {
		return nil, err
	}

	tpl.Type = document.DocType(docType)

	if err := json.Unmarshal(schema, &tpl.Schema); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}

	return &tpl, nil
}

func (s *Store) GetTemplate(ctx context.Context, id uuid.UUID) (*templates.Template, error) {
	query := `SELECT ` + selectTemplateColumns + ` FROM templates WHERE id = $1`

	tpl, err := scanTemplate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.ErrNotFound, "template %s not found", id)
		}

		return nil, fmt.Errorf("getting template: %w", database.Classify(err))
	}

	return tpl, nil
}

func (s *Store) ListTemplates(ctx context.Context, filter templates.ListFilter) ([]*templates.Template, error) {
	query := `SELECT ` + selectTemplateColumns + ` FROM templates WHERE tenant_id = $1`

	args := []any{filter.TenantID}

	if !filter.IncludeInactive {
		query += " AND is_active"
	}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND doc_type = $%d", len(args))
	}

	query += " ORDER BY name ASC, version DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", database.Classify(err))
	}
	defer rows.Close()

	var tpls []*templates.Template

	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}

		tpls = append(tpls, tpl)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", database.Classify(err))
	}

	return tpls, nil
}

func (s *Store) Deactivate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE templates SET is_active = FALSE WHERE id = $1", id); err != nil {
		return fmt.Errorf("deactivating template: %w", database.Classify(err))
	}

	return nil
}

func uploadLockKey(tenantID uuid.UUID, name string) int64 {
	h := fnv.New64a()
	h.Write(tenantID[:])
	h.Write([]byte{0})
	h.Write([]byte(name))

	return int64(h.Sum64())
}

type uploadTx struct {
	tx       *sql.Tx
	tenantID uuid.UUID
	name     string
}

func (s *Store) BeginUpload(ctx context.Context, tenantID uuid.UUID, name string) (templates.UploadTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning upload tx: %w", database.Classify(err))
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", uploadLockKey(tenantID, name)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring upload lock: %w", database.Classify(err))
	}

	return &uploadTx{tx: dbTx, tenantID: tenantID, name: name}, nil
}

func (utx *uploadTx) Commit() error   { return utx.tx.Commit() }
func (utx *uploadTx) Rollback() error { return utx.tx.Rollback() }

func (utx *uploadTx) Latest(ctx context.Context) (*templates.Template, error) {
	query := `SELECT ` + selectTemplateColumns + `
		FROM templates
		WHERE tenant_id = $1 AND name = $2
		ORDER BY version DESC
		LIMIT 1`

	tpl, err := scanTemplate(utx.tx.QueryRowContext(ctx, query, utx.tenantID, utx.name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("finding latest template: %w", database.Classify(err))
	}

	return tpl, nil
}

func (utx *uploadTx) Publish(ctx context.Context, tpl *templates.Template) error {
	if _, err := utx.tx.ExecContext(ctx,
		"UPDATE templates SET is_active = FALSE WHERE tenant_id = $1 AND name = $2 AND is_active",
		utx.tenantID, utx.name,
	); err != nil {
		return fmt.Errorf("deactivating previous versions: %w", database.Classify(err))
	}

	schema, err := json.Marshal(tpl.Schema)
	if err != nil {
		return fmt.Errorf("encoding schema: %w", err)
	}

	query := `
		INSERT INTO templates (id, tenant_id, doc_type, name, version, parent_id, is_active, source_key, content_type, schema_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err = utx.tx.QueryRowContext(ctx, query,
		tpl.ID,
		tpl.TenantID,
		tpl.Type,
		tpl.Name,
		tpl.Version,
		tpl.ParentID,
		tpl.Active,
		tpl.SourceKey,
		tpl.ContentType,
		schema,
	).Scan(&tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", database.Classify(err))
	}

	return nil
}
