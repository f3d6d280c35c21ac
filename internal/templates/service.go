package templates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/encoding"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=templates
type Repository interface {
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	ListTemplates(ctx context.Context, filter ListFilter) ([]*Template, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// BeginUpload serialises uploads of the same tenant and name.
	BeginUpload(ctx context.Context, tenantID uuid.UUID, name string) (UploadTx, error)
}

type UploadTx interface {
	// Latest returns the newest version of the named template, nil if none.
	Latest(ctx context.Context) (*Template, error)
	// Publish inserts tpl as the active version and deactivates the others.
	Publish(ctx context.Context, tpl *Template) error
	Commit() error
	Rollback() error
}

type Blobs interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type Renderer interface {
	Render(tpl []byte, data map[string]any) ([]byte, error)
}

type Service struct {
	repo     Repository
	blobs    Blobs
	renderer Renderer
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, blobs Blobs, renderer Renderer, opts ...Option) *Service {
	s := &Service{repo: repo, blobs: blobs, renderer: renderer, logger: slog.Default(), now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type UploadParams struct {
	TenantID uuid.UUID
	Name     string
	Type     document.DocType
	Content  []byte
}

type ListFilter struct {
	TenantID        uuid.UUID
	Type            *document.DocType
	IncludeInactive bool
}

// PreviewNumber is rendered in place of the document number by TestRender.
const PreviewNumber = "PREVIEW"

// Upload publishes a new version of the named template. The first upload of a
// name is version 1; later uploads take the next version, point at the first
// version as parent and deactivate the previous ones.
func (s *Service) Upload(ctx context.Context, params UploadParams) (*Template, error) {
	content := params.Content
	format := render.Detect(content)

	if format == render.FormatText {
		decoded, charset, err := encoding.ToUTF8(content)
		if err != nil {
			return nil, apperr.Mark(fmt.Errorf("decoding template: %w", err), apperr.ErrMalformedTemplate)
		}

		if charset != "UTF-8" {
			s.logger.InfoContext(ctx, "converted template to utf-8", "name", params.Name, "charset", charset)
		}

		content = decoded
	}

	names, err := render.ExtractVariables(content)
	if err != nil {
		return nil, err
	}

	// Rendering with no data surfaces syntax errors at upload time.
	if _, err := s.renderer.Render(content, nil); err != nil {
		return nil, fmt.Errorf("validating template: %w", err)
	}

	tpl := &Template{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		Type:        params.Type,
		Name:        params.Name,
		Version:     1,
		Active:      true,
		ContentType: format.ContentType,
		Schema:      render.InferSchema(names),
	}
	tpl.SourceKey = artifact.TemplateKey(tpl.TenantID, tpl.ID, format.Ext)

	if err := s.blobs.Put(ctx, tpl.SourceKey, content, tpl.ContentType); err != nil {
		return nil, fmt.Errorf("storing template source: %w", err)
	}

	utx, err := s.repo.BeginUpload(ctx, params.TenantID, params.Name)
	if err != nil {
		return nil, fmt.Errorf("begin upload: %w", err)
	}
	defer utx.Rollback()

	latest, err := utx.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding latest version: %w", err)
	}

	if latest != nil {
		root := latest.RootID()
		tpl.Version = latest.Version + 1
		tpl.ParentID = &root
	}

	if err := utx.Publish(ctx, tpl); err != nil {
		return nil, fmt.Errorf("publishing template: %w", err)
	}

	if err := utx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upload: %w", err)
	}

	return tpl, nil
}

// Get returns the template only if it belongs to tenantID.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Template, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	if tpl.TenantID != tenantID {
		return nil, apperr.Newf(apperr.ErrNotFound, "template %s not found", id)
	}

	return tpl, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Template, error) {
	return s.repo.ListTemplates(ctx, filter)
}

// Deactivate hides the template from new drafts. Existing drafts keep using it.
func (s *Service) Deactivate(ctx context.Context, tenantID, id uuid.UUID) error {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return err
	}

	return s.repo.Deactivate(ctx, id)
}

// ResolveTemplate checks that the template exists for the tenant and is
// active, and returns the document type it produces.
func (s *Service) ResolveTemplate(ctx context.Context, tenantID, id uuid.UUID) (document.DocType, error) {
	tpl, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return "", err
	}

	if !tpl.Active {
		return "", apperr.WithHint(
			apperr.Newf(apperr.ErrInvalidState, "template %s is inactive", id),
			"use the latest version of the template",
		)
	}

	return tpl.Type, nil
}

// Source returns a template and its bytes regardless of tenant.
func (s *Service) Source(ctx context.Context, id uuid.UUID) (*Template, []byte, error) {
	tpl, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	src, err := s.blobs.Get(ctx, tpl.SourceKey)
	if err != nil {
		return nil, nil, fmt.Errorf("loading template source: %w", err)
	}

	return tpl, src, nil
}

// TestRender renders the template against ad-hoc data without storing or
// numbering anything.
func (s *Service) TestRender(ctx context.Context, tenantID, id uuid.UUID, data document.Data) ([]byte, *Template, error) {
	if _, err := s.Get(ctx, tenantID, id); err != nil {
		return nil, nil, err
	}

	tpl, src, err := s.Source(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	conformed, err := data.Conform(tpl.Schema)
	if err != nil {
		return nil, nil, err
	}

	out, err := s.renderer.Render(src, render.WithReserved(conformed.RenderContext(), PreviewNumber, s.now()))
	if err != nil {
		return nil, nil, err
	}

	return out, tpl, nil
}
