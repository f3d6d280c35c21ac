package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

// TemplateRepository is an in-memory templates.Repository. Uploads are
// serialised by a repository-wide lock held until commit or rollback.
type TemplateRepository struct {
	mu        sync.Mutex
	uploadMu  sync.Mutex
	templates map[uuid.UUID]templates.Template
}

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: map[uuid.UUID]templates.Template{}}
}

func (r *TemplateRepository) GetTemplate(_ context.Context, id uuid.UUID) (*templates.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tpl, ok := r.templates[id]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "template %s not found", id)
	}

	return &tpl, nil
}

func (r *TemplateRepository) ListTemplates(_ context.Context, filter templates.ListFilter) ([]*templates.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*templates.Template

	for _, tpl := range r.templates {
		if tpl.TenantID != filter.TenantID || (!filter.IncludeInactive && !tpl.Active) {
			continue
		}

		if filter.Type != nil && tpl.Type != *filter.Type {
			continue
		}

		c := tpl
		out = append(out, &c)
	}

	return out, nil
}

func (r *TemplateRepository) Deactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpl, ok := r.templates[id]; ok {
		tpl.Active = false
		r.templates[id] = tpl
	}

	return nil
}

func (r *TemplateRepository) BeginUpload(_ context.Context, tenantID uuid.UUID, name string) (templates.UploadTx, error) {
	r.uploadMu.Lock()

	return &uploadTx{repo: r, tenantID: tenantID, name: name}, nil
}

type uploadTx struct {
	repo     *TemplateRepository
	tenantID uuid.UUID
	name     string
	staged   *templates.Template
	done     bool
}

func (u *uploadTx) Latest(_ context.Context) (*templates.Template, error) {
	u.repo.mu.Lock()
	defer u.repo.mu.Unlock()

	var latest *templates.Template

	for _, tpl := range u.repo.templates {
		if tpl.TenantID != u.tenantID || tpl.Name != u.name {
			continue
		}

		if latest == nil || tpl.Version > latest.Version {
			c := tpl
			latest = &c
		}
	}

	return latest, nil
}

func (u *uploadTx) Publish(_ context.Context, tpl *templates.Template) error {
	tpl.CreatedAt = time.Now()
	staged := *tpl
	u.staged = &staged

	return nil
}

func (u *uploadTx) Commit() error {
	if u.done {
		return nil
	}

	u.repo.mu.Lock()

	if u.staged != nil {
		for id, tpl := range u.repo.templates {
			if tpl.TenantID == u.tenantID && tpl.Name == u.name {
				tpl.Active = false
				u.repo.templates[id] = tpl
			}
		}

		u.repo.templates[u.staged.ID] = *u.staged
	}

	u.repo.mu.Unlock()

	u.done = true
	u.repo.uploadMu.Unlock()

	return nil
}

func (u *uploadTx) Rollback() error {
	if u.done {
		return nil
	}

	u.done = true
	u.repo.uploadMu.Unlock()

	return nil
}
