package database_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/database"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: sql.ErrNoRows},
		{name: "cancelled", err: fmt.Errorf("query: %w", context.Canceled)},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, wantUnavailable: true},
		{name: "too many connections", err: &pgconn.PgError{Code: "53300"}, wantUnavailable: true},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, wantUnavailable: true},
		{name: "network error", err: errors.New("dial tcp: connection refused"), wantUnavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := database.Classify(tt.err)

			assert.Equal(t, tt.wantUnavailable, apperr.Is(got, apperr.ErrStoreUnavailable))

			if tt.err != nil {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, database.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, database.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, database.IsUniqueViolation(errors.New("boom")))
}
