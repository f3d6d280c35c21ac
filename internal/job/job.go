// Package job runs document generation as a deferred job. Requests are
// recorded, published on a watermill topic and consumed by a Worker that
// reports the outcome back to the request record.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request is one asynchronous generation attempt as seen by callers.
type Request struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ActorID    uuid.UUID
	Status     Status
	Reason     string
	Message    string
	VersionID  *uuid.UUID
	DocNumber  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// payload is the wire form of a queued request.
type payload struct {
	RequestID  uuid.UUID `json:"request_id"`
	DocumentID uuid.UUID `json:"document_id"`
	ActorID    uuid.UUID `json:"actor_id"`
}

//go:generate mockgen -source=job.go -destination=job_mock.go -package=job
type Repository interface {
	CreateRequest(ctx context.Context, r *Request) error
	MarkSucceeded(ctx context.Context, id, versionID uuid.UUID, docNumber string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason, message string) error
	// FailPending fails every request still pending that was created before
	// the cutoff and returns how many were changed.
	FailPending(ctx context.Context, before time.Time, reason, message string) (int64, error)
	// LatestRequest returns the newest request for the document, nil if none.
	LatestRequest(ctx context.Context, documentID uuid.UUID) (*Request, error)
}

type Generator interface {
	Generate(ctx context.Context, documentID, actorID uuid.UUID) (*generation.Result, error)
}

type Documents interface {
	Get(ctx context.Context, tenantID, id uuid.UUID) (*document.Document, error)
}
