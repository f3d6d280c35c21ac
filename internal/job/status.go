package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
)

// State is the generation status reported to callers.
type State string

const (
	StateNone      State = "none"
	StatePending   State = "pending"
	StateGenerated State = "generated"
	StateFailed    State = "failed"
)

type Report struct {
	State     State
	RequestID *uuid.UUID
	Reason    string
	Message   string
	DocNumber string
	VersionID *uuid.UUID
	UpdatedAt *time.Time
}

// Tracker answers "what happened to my generation request".
type Tracker struct {
	docs Documents
	repo Repository
}

func NewTracker(docs Documents, repo Repository) *Tracker {
	return &Tracker{docs: docs, repo: repo}
}

// Status reports on the document's latest request. A document that has left
// DRAFT always reports generated, whatever its request records say.
func (t *Tracker) Status(ctx context.Context, tenantID, documentID uuid.UUID) (*Report, error) {
	doc, err := t.docs.Get(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}

	req, err := t.repo.LatestRequest(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading generation request: %w", err)
	}

	report := &Report{State: StateNone}

	if req != nil {
		report.RequestID = &req.ID
		report.UpdatedAt = &req.UpdatedAt

		switch req.Status {
		case StatusPending:
			report.State = StatePending
		case StatusFailed:
			report.State = StateFailed
			report.Reason = req.Reason
			report.Message = req.Message
		case StatusSucceeded:
			report.State = StateGenerated
			report.DocNumber = req.DocNumber
			report.VersionID = req.VersionID
		}
	}

	if doc.Status != document.StatusDraft {
		report.State = StateGenerated
		report.Reason = ""
		report.Message = ""
	}

	return report, nil
}
