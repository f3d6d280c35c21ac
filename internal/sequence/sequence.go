// Package sequence issues document numbers from durable per-tenant counters.
//
// A counter is identified by (tenant, document type, year). Every issued
// value is recorded before it is returned, so values never repeat and never
// go backwards, including across restarts. A value whose generation later
// fails is not handed back; numbering may therefore skip but never duplicate.
package sequence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
)

// Key identifies one counter.
type Key struct {
	TenantID uuid.UUID
	Type     document.DocType
	Year     int
}

//go:generate mockgen -source=sequence.go -destination=repository_mock.go -package=sequence
type Repository interface {
	// Increment atomically adds one to the counter for key, creating it at 1
	// when it does not exist, and returns the new value.
	Increment(ctx context.Context, key Key) (int64, error)
	// Current returns the last issued value, 0 if none was issued yet.
	Current(ctx context.Context, key Key) (int64, error)
}

type Allocator struct {
	repo Repository
}

func NewAllocator(repo Repository) *Allocator {
	return &Allocator{repo: repo}
}

// Allocate issues the next value for the counter. Any store failure is
// reported as apperr.ErrStoreUnavailable and issues nothing.
func (a *Allocator) Allocate(ctx context.Context, tenantID uuid.UUID, docType document.DocType, year int) (int64, error) {
	n, err := a.repo.Increment(ctx, Key{TenantID: tenantID, Type: docType, Year: year})
	if err != nil {
		if !apperr.Is(err, apperr.ErrStoreUnavailable) {
			err = apperr.Mark(err, apperr.ErrStoreUnavailable)
		}

		return 0, fmt.Errorf("allocating %s number for %d: %w", docType, year, err)
	}

	return n, nil
}

// Next allocates a value and formats it as a document number.
func (a *Allocator) Next(ctx context.Context, tenantID uuid.UUID, docType document.DocType, year int) (string, error) {
	n, err := a.Allocate(ctx, tenantID, docType, year)
	if err != nil {
		return "", err
	}

	return Format(docType, year, n), nil
}

// Peek formats the number the next allocation would return without issuing
// it. Concurrent allocations may take it first.
func (a *Allocator) Peek(ctx context.Context, tenantID uuid.UUID, docType document.DocType, year int) (string, error) {
	n, err := a.repo.Current(ctx, Key{TenantID: tenantID, Type: docType, Year: year})
	if err != nil {
		return "", fmt.Errorf("reading %s counter: %w", docType, err)
	}

	return Format(docType, year, n+1), nil
}

// Format renders a counter value as "{prefix}-{year}-{counter}", padding the
// counter to four digits. Wider values keep all their digits.
func Format(docType document.DocType, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", docType.Prefix(), year, n)
}
