package documents

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/http/auth"
	"github.com/MrJamesThe3rd/docforge/internal/http/respond"
	"github.com/MrJamesThe3rd/docforge/internal/job"
)

// Artifacts hands out download links for generated files.
type Artifacts interface {
	Exists(ctx context.Context, key string) (bool, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Handler struct {
	svc        *document.Service
	queue      *job.Queue
	tracker    *job.Tracker
	artifacts  Artifacts
	presignTTL time.Duration
}

func NewHandler(svc *document.Service, queue *job.Queue, tracker *job.Tracker, artifacts Artifacts, presignTTL time.Duration) *Handler {
	return &Handler{
		svc:        svc,
		queue:      queue,
		tracker:    tracker,
		artifacts:  artifacts,
		presignTTL: presignTTL,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/generate", h.generate)
	r.Get("/{id}/generation", h.generation)
	r.Get("/{id}/versions", h.versions)
	r.Get("/{id}/versions/{versionID}/download", h.download)
}

type createDocumentRequest struct {
	ClientID   uuid.UUID     `json:"client_id" validate:"required"`
	TemplateID uuid.UUID     `json:"template_id" validate:"required"`
	Data       document.Data `json:"data"`
	Totals     document.Data `json:"totals"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req createDocumentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	doc, err := h.svc.Create(r.Context(), document.CreateParams{
		TenantID:   id.TenantID,
		ClientID:   req.ClientID,
		TemplateID: req.TemplateID,
		Data:       req.Data,
		Totals:     req.Totals,
		CreatedBy:  id.ActorID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	filter := document.ListFilter{TenantID: id.TenantID}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(document.Status(s))
	}

	if s := r.URL.Query().Get("type"); s != "" {
		filter.Type = new(document.DocType(s))
	}

	docs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(docs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	doc, err := h.svc.Get(r.Context(), id.TenantID, docID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(doc))
}

type updateDocumentRequest struct {
	ClientID *uuid.UUID    `json:"client_id,omitempty"`
	Data     document.Data `json:"data,omitempty"`
	Totals   document.Data `json:"totals,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req updateDocumentRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	doc, err := h.svc.Update(r.Context(), id.TenantID, docID, document.UpdateParams{
		ClientID: req.ClientID,
		Data:     req.Data,
		Totals:   req.Totals,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id.TenantID, docID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type generateResponse struct {
	RequestID uuid.UUID  `json:"request_id"`
	Status    job.Status `json:"status"`
}

// generate only queues the attempt; callers poll the generation endpoint.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	doc, err := h.svc.Get(r.Context(), id.TenantID, docID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if doc.Status != document.StatusDraft {
		respond.Error(w, r, apperr.Newf(apperr.ErrAlreadyGenerated, "document %s is %s", doc.ID, doc.Status))
		return
	}

	req, err := h.queue.Enqueue(r.Context(), id.TenantID, doc.ID, id.ActorID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, generateResponse{RequestID: req.ID, Status: req.Status})
}

func (h *Handler) generation(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	report, err := h.tracker.Status(r.Context(), id.TenantID, docID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toGenerationResponse(report))
}

func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	versions, err := h.svc.Versions(r.Context(), id.TenantID, docID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toVersionResponseList(versions))
}

// download redirects to a short-lived link. A skipped pdf falls back to the
// primary file.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	docID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	versionID, err := respond.UUIDParam("versionID", chi.URLParam(r, "versionID"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	fileType := document.FileSecondary
	if s := r.URL.Query().Get("file_type"); s != "" {
		fileType = document.FileType(s)
	}

	if fileType != document.FilePrimary && fileType != document.FileSecondary {
		respond.Error(w, r, apperr.Newf(apperr.ErrValidation, "file_type must be %s or %s", document.FileSecondary, document.FilePrimary))
		return
	}

	v, err := h.svc.Version(r.Context(), id.TenantID, docID, versionID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	key := v.Key(fileType)

	ok, err := h.artifacts.Exists(r.Context(), key)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if !ok {
		respond.Error(w, r, apperr.Newf(apperr.ErrNotFound, "file for version %s is missing", v.ID))
		return
	}

	url, err := h.artifacts.Presign(r.Context(), key, h.presignTTL)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
