package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/database"
)

// EnvDatabaseURL names the variable that enables Postgres-backed tests.
const EnvDatabaseURL = "DOCFORGE_TEST_DATABASE_URL"

// PostgresDB connects to the database named by DOCFORGE_TEST_DATABASE_URL,
// applies migrations and empties every table. The test is skipped when the
// variable is unset.
func PostgresDB(t testing.TB) *sql.DB {
	t.Helper()

	url := os.Getenv(EnvDatabaseURL)
	if url == "" {
		t.Skipf("%s not set", EnvDatabaseURL)
	}

	db, err := database.New(url)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	ctx := context.Background()

	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	if _, err := db.ExecContext(ctx, `
		TRUNCATE audit_events, generation_requests, document_versions, documents, templates, number_sequences
	`); err != nil {
		t.Fatalf("truncating: %v", err)
	}

	return db
}

// InsertTemplate adds an active template row and returns its id.
func InsertTemplate(t testing.TB, db *sql.DB, tenantID uuid.UUID, docType string) uuid.UUID {
	t.Helper()

	var id uuid.UUID

	err := db.QueryRowContext(context.Background(), `
		INSERT INTO templates (tenant_id, doc_type, name, source_key, content_type)
		VALUES ($1, $2, $3, $4, 'text/plain; charset=utf-8')
		RETURNING id
	`, tenantID, docType, "tpl-"+uuid.NewString(), "templates/"+tenantID.String()+"/x.txt").Scan(&id)
	if err != nil {
		t.Fatalf("inserting template: %v", err)
	}

	return id
}
