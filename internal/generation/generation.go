// Package generation turns a draft document into an immutable, numbered
// version with stored artifacts.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/convert"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

// Stage is a step of a single generation attempt.
type Stage string

const (
	StageLoaded            Stage = "LOADED"
	StageNumbered          Stage = "NUMBERED"
	StageRendered          Stage = "RENDERED"
	StagePrimaryStored     Stage = "PRIMARY_STORED"
	StageConverted         Stage = "CONVERTED"
	StageConversionSkipped Stage = "CONVERSION_SKIPPED"
	StageVersioned         Stage = "VERSIONED"
	StageCommitted         Stage = "COMMITTED"
)

//go:generate mockgen -source=generation.go -destination=generation_mock.go -package=generation
type Documents interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)
	CommitVersion(ctx context.Context, v *document.Version, event document.AuditEvent) error
}

type TemplateSource interface {
	Source(ctx context.Context, id uuid.UUID) (*templates.Template, []byte, error)
}

type Allocator interface {
	Next(ctx context.Context, tenantID uuid.UUID, docType document.DocType, year int) (string, error)
}

type Renderer interface {
	Render(tpl []byte, data map[string]any) ([]byte, error)
}

type Artifacts interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type Converter interface {
	Convert(ctx context.Context, data []byte) ([]byte, error)
}

// Result identifies the version produced by a successful attempt.
type Result struct {
	DocNumber string
	VersionID uuid.UUID
	Secondary document.Secondary
}

// StageError reports the stage an aborted attempt failed at.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("generation failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type Orchestrator struct {
	docs      Documents
	templates TemplateSource
	allocator Allocator
	renderer  Renderer
	artifacts Artifacts
	converter Converter
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the source of the generation date and numbering year.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(
	docs Documents,
	tpls TemplateSource,
	allocator Allocator,
	renderer Renderer,
	artifacts Artifacts,
	converter Converter,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		docs:      docs,
		templates: tpls,
		allocator: allocator,
		renderer:  renderer,
		artifacts: artifacts,
		converter: converter,
		logger:    slog.Default(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// attempt carries the state of one Generate call across stages.
type attempt struct {
	log       *slog.Logger
	doc       *document.Document
	tpl       *templates.Template
	src       []byte
	data      document.Data
	at        time.Time
	docNumber string
	primary   []byte
	format    render.Format
	keys      []string
	secondary document.Secondary
}

func (a *attempt) advance(stage Stage, args ...any) {
	a.log.Debug("generation stage", append([]any{"stage", stage}, args...)...)
}

// Generate runs the pipeline for one draft. Every failure before the final
// commit leaves the document untouched; a failed conversion only degrades the
// secondary artifact.
func (o *Orchestrator) Generate(ctx context.Context, documentID, actorID uuid.UUID) (*Result, error) {
	a := &attempt{
		log: o.logger.With("document_id", documentID),
		at:  o.now(),
	}

	if err := o.load(ctx, a, documentID); err != nil {
		return nil, o.abort(a, StageLoaded, err)
	}

	a.advance(StageLoaded, "template_id", a.tpl.ID)

	docNumber, err := o.allocator.Next(ctx, a.doc.TenantID, a.doc.Type, a.at.UTC().Year())
	if err != nil {
		return nil, o.abort(a, StageNumbered, fmt.Errorf("allocating document number: %w", err))
	}

	a.docNumber = docNumber
	a.log = a.log.With("doc_number", docNumber)
	a.advance(StageNumbered)

	primary, err := o.renderer.Render(a.src, render.WithReserved(a.data.RenderContext(), docNumber, a.at))
	if err != nil {
		return nil, o.abort(a, StageRendered, fmt.Errorf("rendering: %w", err))
	}

	a.primary = primary
	a.format = render.Detect(a.src)
	a.advance(StageRendered, "bytes", len(primary))

	primaryKey := artifact.DocumentKey(a.doc.TenantID, docNumber, a.format.Ext)
	if err := o.artifacts.Put(ctx, primaryKey, primary, a.format.ContentType); err != nil {
		return nil, o.abort(a, StagePrimaryStored, fmt.Errorf("storing primary artifact: %w", err))
	}

	a.keys = append(a.keys, primaryKey)
	a.advance(StagePrimaryStored, "key", primaryKey)

	o.convert(ctx, a)

	v := &document.Version{
		DocumentID:  a.doc.ID,
		TenantID:    a.doc.TenantID,
		DocNumber:   docNumber,
		Snapshot:    a.data.Clone(),
		PrimaryKey:  primaryKey,
		Secondary:   a.secondary,
		GeneratedBy: actorID,
	}

	a.advance(StageVersioned)

	event := document.AuditEvent{
		TenantID:   a.doc.TenantID,
		ActorID:    actorID,
		Action:     document.ActionGenerate,
		EntityType: document.EntityTypeDocument,
		EntityID:   a.doc.ID,
		Metadata: map[string]any{
			"doc_number":          docNumber,
			"template_id":         a.tpl.ID.String(),
			"secondary_generated": a.secondary.SkipReason() == "",
		},
	}

	if err := o.docs.CommitVersion(ctx, v, event); err != nil {
		a.log.Error("artifacts left without a version", "keys", a.keys, "error", err)
		return nil, o.abort(a, StageCommitted, fmt.Errorf("committing version: %w", err))
	}

	a.advance(StageCommitted, "version_id", v.ID, "version", v.Number)

	return &Result{DocNumber: docNumber, VersionID: v.ID, Secondary: v.Secondary}, nil
}

func (o *Orchestrator) load(ctx context.Context, a *attempt, documentID uuid.UUID) error {
	doc, err := o.docs.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}

	a.doc = doc
	a.log = a.log.With("tenant_id", doc.TenantID)

	if doc.Status != document.StatusDraft {
		return apperr.Newf(apperr.ErrAlreadyGenerated, "document %s is %s", doc.ID, doc.Status)
	}

	tpl, src, err := o.templates.Source(ctx, doc.TemplateID)
	if err != nil {
		return fmt.Errorf("loading template: %w", err)
	}

	if tpl.TenantID != doc.TenantID {
		return apperr.Newf(apperr.ErrNotFound, "template %s not found", doc.TemplateID)
	}

	// Shape problems surface here so they never consume a number.
	data, err := doc.Data.Conform(tpl.Schema)
	if err != nil {
		return err
	}

	a.tpl = tpl
	a.src = src
	a.data = data

	return nil
}

// convert attempts the secondary rendition. It never fails the attempt.
func (o *Orchestrator) convert(ctx context.Context, a *attempt) {
	pdf, err := o.converter.Convert(ctx, a.primary)
	if err == nil {
		key := artifact.DocumentKey(a.doc.TenantID, a.docNumber, convert.ExtPDF)

		err = o.artifacts.Put(ctx, key, pdf, convert.ContentTypePDF)
		if err == nil {
			a.keys = append(a.keys, key)
			a.secondary = document.Converted(key)
			a.advance(StageConverted, "key", key)

			return
		}

		err = fmt.Errorf("storing secondary artifact: %w", err)
	}

	a.secondary = document.Skipped(apperr.Reason(err))
	a.log.Warn("conversion skipped, keeping primary artifact only",
		"reason", a.secondary.SkipReason(), "error", err)
	a.advance(StageConversionSkipped, "reason", a.secondary.SkipReason())
}

func (o *Orchestrator) abort(a *attempt, stage Stage, err error) error {
	if apperr.Is(err, apperr.ErrAlreadyGenerated) {
		a.log.Info("generation rejected", "stage", stage, "error", err)
	} else {
		a.log.Error("generation aborted", "stage", stage, "reason", apperr.Reason(err), "error", err)
	}

	return &StageError{Stage: stage, Err: err}
}
