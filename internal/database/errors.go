package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

// SQLSTATE classes that mean the server could not serve the request rather
// than rejecting it.
var unavailableClasses = []string{
	"08", // connection exception
	"53", // insufficient resources
	"57", // operator intervention
	"58", // system error
}

const codeUniqueViolation = "23505"

// Classify marks err with apperr.ErrStoreUnavailable when it stems from an
// outage rather than from the statement itself. Errors the server answered
// with a regular SQL error, cancellations and sql.ErrNoRows are returned
// unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range unavailableClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return apperr.Mark(err, apperr.ErrStoreUnavailable)
			}
		}

		return err
	}

	return apperr.Mark(err, apperr.ErrStoreUnavailable)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
