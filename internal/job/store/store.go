package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/job"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectRequestColumns = `
	id, document_id, tenant_id, actor_id, status, reason, message,
	version_id, doc_number, created_at, updated_at
`

func scanRequest(s scanner) (*job.Request, error) {
	var r job.Request

	var status string

	var reason, message, docNumber sql.NullString

	var versionID uuid.NullUUID

	if err := s.Scan(
		&r.ID, &r.DocumentID, &r.TenantID, &r.ActorID, &status, &reason, &message,
		&versionID, &docNumber, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Status = job.Status(status)
	r.Reason = reason.String
	r.Message = message.String
	r.DocNumber = docNumber.String

	if versionID.Valid {
		r.VersionID = &versionID.UUID
	}

	return &r, nil
}

func (s *Store) CreateRequest(ctx context.Context, r *job.Request) error {
	query := `
		INSERT INTO generation_requests (document_id, tenant_id, actor_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	r.Status = job.StatusPending

	err := s.db.QueryRowContext(ctx, query, r.DocumentID, r.TenantID, r.ActorID, r.Status).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting generation request: %w", database.Classify(err))
	}

	return nil
}

func (s *Store) MarkSucceeded(ctx context.Context, id, versionID uuid.UUID, docNumber string) error {
	query := `
		UPDATE generation_requests
		SET status = $2, version_id = $3, doc_number = $4, reason = NULL, message = NULL, updated_at = NOW()
		WHERE id = $1
	`

	return s.exec(ctx, id, query, id, job.StatusSucceeded, versionID, docNumber)
}

func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, reason, message string) error {
	query := `
		UPDATE generation_requests
		SET status = $2, reason = $3, message = $4, updated_at = NOW()
		WHERE id = $1
	`

	return s.exec(ctx, id, query, id, job.StatusFailed, reason, message)
}

func (s *Store) FailPending(ctx context.Context, before time.Time, reason, message string) (int64, error) {
	query := `
		UPDATE generation_requests
		SET status = $1, reason = $2, message = $3, updated_at = NOW()
		WHERE status = $4 AND created_at < $5
	`

	res, err := s.db.ExecContext(ctx, query, job.StatusFailed, reason, message, job.StatusPending, before)
	if err != nil {
		return 0, fmt.Errorf("failing pending generation requests: %w", database.Classify(err))
	}

	return res.RowsAffected()
}

func (s *Store) LatestRequest(ctx context.Context, documentID uuid.UUID) (*job.Request, error) {
	query := `SELECT ` + selectRequestColumns + `
		FROM generation_requests
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	r, err := scanRequest(s.db.QueryRowContext(ctx, query, documentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("querying generation request: %w", database.Classify(err))
	}

	return r, nil
}

func (s *Store) exec(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating generation request: %w", database.Classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating generation request: %w", err)
	}

	if n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "generation request %s not found", id)
	}

	return nil
}
