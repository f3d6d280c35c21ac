package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/docforge/internal/database"
	"github.com/MrJamesThe3rd/docforge/internal/sequence"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Increment is a single statement: the insert either creates the row at 1 or,
// on conflict, increments the existing row under its row lock. Concurrent
// first issuances for the same key serialise on the primary key.
func (s *Store) Increment(ctx context.Context, key sequence.Key) (int64, error) {
	query := `
		INSERT INTO number_sequences (tenant_id, doc_type, year, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, doc_type, year)
		DO UPDATE SET last_value = number_sequences.last_value + 1
		RETURNING last_value
	`

	var n int64
	if err := s.db.QueryRowContext(ctx, query, key.TenantID, key.Type, key.Year).Scan(&n); err != nil {
		return 0, fmt.Errorf("incrementing sequence: %w", database.Classify(err))
	}

	return n, nil
}

func (s *Store) Current(ctx context.Context, key sequence.Key) (int64, error) {
	query := `
		SELECT last_value FROM number_sequences
		WHERE tenant_id = $1 AND doc_type = $2 AND year = $3
	`

	var n int64

	err := s.db.QueryRowContext(ctx, query, key.TenantID, key.Type, key.Year).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("reading sequence: %w", database.Classify(err))
	}

	return n, nil
}
