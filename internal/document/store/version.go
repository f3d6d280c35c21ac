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

const selectVersionColumns = `
	id, document_id, tenant_id, version_number, doc_number, snapshot_data,
	primary_key, secondary_key, secondary_skip_reason, generated_by, generated_at
`

func scanVersion(s scanner) (*document.Version, error) {
	var v document.Version

	var snapshot []byte

	var secondaryKey, skipReason sql.NullString

	if err := s.Scan(
		&v.ID, &v.DocumentID, &v.TenantID, &v.Number, &v.DocNumber, &snapshot,
		&v.PrimaryKey, &secondaryKey, &skipReason, &v.GeneratedBy, &v.GeneratedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	if secondaryKey.Valid {
		v.Secondary = document.Converted(secondaryKey.String)
	} else {
		v.Secondary = document.Skipped(skipReason.String)
	}

	return &v, nil
}

func (s *Store) ListVersions(ctx context.Context, documentID uuid.UUID) ([]*document.Version, error) {
	query := `SELECT ` + selectVersionColumns + `
		FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number ASC`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", database.Classify(err))
	}
	defer rows.Close()

	var versions []*document.Version

	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}

		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", database.Classify(err))
	}

	return versions, nil
}

func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*document.Version, error) {
	query := `SELECT ` + selectVersionColumns + ` FROM document_versions WHERE id = $1`

	v, err := scanVersion(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Newf(apperr.ErrNotFound, "version %s not found", id)
		}

		return nil, fmt.Errorf("getting version: %w", database.Classify(err))
	}

	return v, nil
}

// CommitVersion is the single durable step of a generation. The conditional
// status update runs first so that a concurrent commit for the same document
// blocks on the row lock and then sees zero rows affected.
func (s *Store) CommitVersion(ctx context.Context, v *document.Version, event document.AuditEvent) error {
	snapshot, err := json.Marshal(v.Snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encoding audit metadata: %w", err)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning commit: %w", database.Classify(err))
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `
		UPDATE documents
		SET status = 'GENERATED', updated_at = NOW()
		WHERE id = $1 AND status = 'DRAFT'
	`, v.DocumentID)
	if err != nil {
		return fmt.Errorf("updating document status: %w", database.Classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document status: %w", database.Classify(err))
	}

	if n == 0 {
		return apperr.Newf(apperr.ErrAlreadyGenerated, "document %s is not a draft anymore", v.DocumentID)
	}

	if err := dbTx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version_number), 0) + 1 FROM document_versions WHERE document_id = $1",
		v.DocumentID,
	).Scan(&v.Number); err != nil {
		return fmt.Errorf("computing version number: %w", database.Classify(err))
	}

	secondaryKey, converted := v.Secondary.Key()

	var skipReason sql.NullString
	if !converted {
		skipReason = sql.NullString{String: v.Secondary.SkipReason(), Valid: true}
	}

	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO document_versions (
			document_id, tenant_id, version_number, doc_number, snapshot_data,
			primary_key, secondary_key, secondary_skip_reason, generated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, generated_at
	`,
		v.DocumentID,
		v.TenantID,
		v.Number,
		v.DocNumber,
		snapshot,
		v.PrimaryKey,
		sql.NullString{String: secondaryKey, Valid: converted},
		skipReason,
		v.GeneratedBy,
	).Scan(&v.ID, &v.GeneratedAt)
	if err != nil {
		return fmt.Errorf("inserting version: %w", database.Classify(err))
	}

	if _, err := dbTx.ExecContext(ctx, `
		INSERT INTO audit_events (tenant_id, actor_id, action, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.TenantID, event.ActorID, event.Action, event.EntityType, event.EntityID, metadata); err != nil {
		return fmt.Errorf("recording audit event: %w", database.Classify(err))
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing version: %w", database.Classify(err))
	}

	return nil
}
