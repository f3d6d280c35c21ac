package testutil

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
)

// DocumentRepository is an in-memory document.Repository. CommitVersion keeps
// the conditional DRAFT to GENERATED semantics of the Postgres store.
type DocumentRepository struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]document.Document
	versions []document.Version
	audit    []document.AuditEvent

	// CommitErr, when set, makes CommitVersion fail without writing.
	CommitErr error
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: map[uuid.UUID]document.Document{}}
}

func (r *DocumentRepository) CreateDocument(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	r.docs[doc.ID] = cloneDocument(*doc)

	return nil
}

func (r *DocumentRepository) GetDocument(_ context.Context, id uuid.UUID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "document %s not found", id)
	}

	out := cloneDocument(doc)

	return &out, nil
}

func (r *DocumentRepository) ListDocuments(_ context.Context, filter document.ListFilter) ([]*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*document.Document

	for _, doc := range r.docs {
		if doc.TenantID != filter.TenantID {
			continue
		}

		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}

		if filter.Type != nil && doc.Type != *filter.Type {
			continue
		}

		c := cloneDocument(doc)
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *document.Document) int { return b.CreatedAt.Compare(a.CreatedAt) })

	return out, nil
}

func (r *DocumentRepository) UpdateDraft(_ context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[doc.ID]
	if !ok || cur.Status != document.StatusDraft {
		return apperr.Newf(apperr.ErrInvalidState, "document %s is no longer a draft", doc.ID)
	}

	doc.UpdatedAt = time.Now()
	r.docs[doc.ID] = cloneDocument(*doc)

	return nil
}

func (r *DocumentRepository) DeleteDraft(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.docs[id]
	if !ok || cur.Status != document.StatusDraft {
		return apperr.Newf(apperr.ErrInvalidState, "document %s is no longer a draft", id)
	}

	delete(r.docs, id)

	return nil
}

func (r *DocumentRepository) ListVersions(_ context.Context, documentID uuid.UUID) ([]*document.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*document.Version

	for _, v := range r.versions {
		if v.DocumentID == documentID {
			c := v
			out = append(out, &c)
		}
	}

	return out, nil
}

func (r *DocumentRepository) GetVersion(_ context.Context, id uuid.UUID) (*document.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.versions {
		if v.ID == id {
			c := v
			return &c, nil
		}
	}

	return nil, apperr.Newf(apperr.ErrNotFound, "version %s not found", id)
}

func (r *DocumentRepository) CommitVersion(_ context.Context, v *document.Version, event document.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CommitErr != nil {
		return r.CommitErr
	}

	doc, ok := r.docs[v.DocumentID]
	if !ok || doc.Status != document.StatusDraft {
		return apperr.Newf(apperr.ErrAlreadyGenerated, "document %s is not a draft anymore", v.DocumentID)
	}

	v.Number = 1

	for _, existing := range r.versions {
		if existing.DocumentID == v.DocumentID && existing.Number >= v.Number {
			v.Number = existing.Number + 1
		}
	}

	v.ID = uuid.New()
	v.GeneratedAt = time.Now()
	r.versions = append(r.versions, *v)
	r.audit = append(r.audit, event)

	doc.Status = document.StatusGenerated
	doc.UpdatedAt = v.GeneratedAt
	r.docs[doc.ID] = doc

	return nil
}

// AuditEvents returns the events recorded by successful commits.
func (r *DocumentRepository) AuditEvents() []document.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.audit)
}

func cloneDocument(doc document.Document) document.Document {
	doc.Data = doc.Data.Clone()
	doc.Totals = doc.Totals.Clone()

	return doc
}
