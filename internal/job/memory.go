package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

// MemoryRepository keeps requests in process memory for tests and local runs.
type MemoryRepository struct {
	mu       sync.Mutex
	requests []Request
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) CreateRequest(_ context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = uuid.New()
	r.Status = StatusPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.requests = append(m.requests, *r)

	return nil
}

func (m *MemoryRepository) MarkSucceeded(_ context.Context, id, versionID uuid.UUID, docNumber string) error {
	return m.update(id, func(r *Request) {
		r.Status = StatusSucceeded
		r.VersionID = &versionID
		r.DocNumber = docNumber
	})
}

func (m *MemoryRepository) MarkFailed(_ context.Context, id uuid.UUID, reason, message string) error {
	return m.update(id, func(r *Request) {
		r.Status = StatusFailed
		r.Reason = reason
		r.Message = message
	})
}

func (m *MemoryRepository) FailPending(_ context.Context, before time.Time, reason, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64

	for i := range m.requests {
		r := &m.requests[i]
		if r.Status != StatusPending || !r.CreatedAt.Before(before) {
			continue
		}

		r.Status = StatusFailed
		r.Reason = reason
		r.Message = message
		r.UpdatedAt = time.Now()
		n++
	}

	return n, nil
}

func (m *MemoryRepository) LatestRequest(_ context.Context, documentID uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].DocumentID == documentID {
			r := m.requests[i]
			return &r, nil
		}
	}

	return nil, nil
}

func (m *MemoryRepository) update(id uuid.UUID, fn func(r *Request)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.requests {
		if m.requests[i].ID == id {
			fn(&m.requests[i])
			m.requests[i].UpdatedAt = time.Now()

			return nil
		}
	}

	return apperr.Newf(apperr.ErrNotFound, "generation request %s not found", id)
}
