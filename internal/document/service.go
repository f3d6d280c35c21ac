package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=document
type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, filter ListFilter) ([]*Document, error)
	UpdateDraft(ctx context.Context, doc *Document) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error

	ListVersions(ctx context.Context, documentID uuid.UUID) ([]*Version, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*Version, error)

	// CommitVersion inserts v, records event and moves the document from DRAFT
	// to GENERATED in one transaction. It fails with apperr.ErrAlreadyGenerated,
	// writing nothing, when the document has left DRAFT in the meantime.
	CommitVersion(ctx context.Context, v *Version, event AuditEvent) error
}

// TemplateResolver checks that a template can back a new draft.
type TemplateResolver interface {
	ResolveTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (DocType, error)
}

type Service struct {
	repo      Repository
	templates TemplateResolver
}

func NewService(repo Repository, templates TemplateResolver) *Service {
	return &Service{repo: repo, templates: templates}
}

type CreateParams struct {
	TenantID   uuid.UUID
	ClientID   uuid.UUID
	TemplateID uuid.UUID
	Data       Data
	Totals     Data
	CreatedBy  uuid.UUID
}

type UpdateParams struct {
	ClientID *uuid.UUID
	Data     Data
	Totals   Data
}

type ListFilter struct {
	TenantID uuid.UUID
	Status   *Status
	Type     *DocType
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Document, error) {
	docType, err := s.templates.ResolveTemplate(ctx, params.TenantID, params.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("resolving template: %w", err)
	}

	doc := &Document{
		TenantID:   params.TenantID,
		ClientID:   params.ClientID,
		TemplateID: params.TemplateID,
		Type:       docType,
		Status:     StatusDraft,
		Data:       params.Data,
		Totals:     params.Totals,
		CreatedBy:  params.CreatedBy,
	}

	if doc.Data == nil {
		doc.Data = Data{}
	}

	if doc.Totals == nil {
		doc.Totals = Data{}
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// Get returns the document only if it belongs to tenantID.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.TenantID != tenantID {
		return nil, apperr.Newf(apperr.ErrNotFound, "document %s not found", id)
	}

	return doc, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	return s.repo.ListDocuments(ctx, filter)
}

func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateParams) (*Document, error) {
	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if doc.Status != StatusDraft {
		return nil, apperr.Newf(apperr.ErrInvalidState, "document %s is %s, only drafts can be edited", id, doc.Status)
	}

	if params.ClientID != nil {
		doc.ClientID = *params.ClientID
	}

	if params.Data != nil {
		doc.Data = params.Data
	}

	if params.Totals != nil {
		doc.Totals = params.Totals
	}

	if err := s.repo.UpdateDraft(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	doc, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if doc.Status != StatusDraft {
		return apperr.Newf(apperr.ErrInvalidState, "document %s is %s, only drafts can be deleted", id, doc.Status)
	}

	return s.repo.DeleteDraft(ctx, id)
}

func (s *Service) Versions(ctx context.Context, tenantID, documentID uuid.UUID) ([]*Version, error) {
	if _, err := s.Get(ctx, tenantID, documentID); err != nil {
		return nil, err
	}

	return s.repo.ListVersions(ctx, documentID)
}

func (s *Service) Version(ctx context.Context, tenantID, documentID, versionID uuid.UUID) (*Version, error) {
	v, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if v.TenantID != tenantID || v.DocumentID != documentID {
		return nil, apperr.Newf(apperr.ErrNotFound, "version %s not found", versionID)
	}

	return v, nil
}
