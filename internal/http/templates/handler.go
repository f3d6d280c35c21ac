package templates

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/http/auth"
	"github.com/MrJamesThe3rd/docforge/internal/http/respond"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

const maxUploadSize = 10 << 20

type Handler struct {
	svc *templates.Service
}

func NewHandler(svc *templates.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.deactivate)
	r.Post("/{id}/test-render", h.testRender)
}

type uploadRequest struct {
	Name string           `validate:"required,max=200"`
	Type document.DocType `validate:"required,max=50"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	req := uploadRequest{Name: r.FormValue("name"), Type: document.DocType(r.FormValue("type"))}
	if err := respond.Validate(req); err != nil {
		respond.Error(w, r, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}

	tpl, err := h.svc.Upload(r.Context(), templates.UploadParams{
		TenantID: id.TenantID,
		Name:     req.Name,
		Type:     req.Type,
		Content:  content,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(tpl))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	filter := templates.ListFilter{TenantID: id.TenantID}

	if s := r.URL.Query().Get("type"); s != "" {
		filter.Type = new(document.DocType(s))
	}

	if s := r.URL.Query().Get("include_inactive"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			filter.IncludeInactive = b
		}
	}

	tpls, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(tpls))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	templateID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	tpl, err := h.svc.Get(r.Context(), id.TenantID, templateID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(tpl))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	templateID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Deactivate(r.Context(), id.TenantID, templateID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type testRenderRequest struct {
	Data document.Data `json:"data"`
}

// testRender returns the rendered bytes directly; nothing is stored.
func (h *Handler) testRender(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	templateID, err := respond.UUIDParam("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req testRenderRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	out, _, err := h.svc.TestRender(r.Context(), id.TenantID, templateID, req.Data)
	if err != nil {
		if apperr.KindOf(err) == nil {
			err = apperr.Mark(err, apperr.ErrRender)
		}

		respond.Error(w, r, err)

		return
	}

	format := render.Detect(out)

	w.Header().Set("Content-Type", format.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="preview`+format.Ext+`"`)

	if _, err := w.Write(out); err != nil {
		respond.Error(w, r, err)
	}
}
