package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	apihttp "github.com/MrJamesThe3rd/docforge/internal/http"
	"github.com/MrJamesThe3rd/docforge/internal/http/auth"
	"github.com/MrJamesThe3rd/docforge/internal/http/documents"
	httptemplates "github.com/MrJamesThe3rd/docforge/internal/http/templates"
	"github.com/MrJamesThe3rd/docforge/internal/job"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/sequence"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
	"github.com/MrJamesThe3rd/docforge/internal/testutil"
)

var secret = []byte("test-secret")

type pdfConverter struct{}

func (pdfConverter) Convert(context.Context, []byte) ([]byte, error) {
	return []byte("%PDF-1.7 fake"), nil
}

type api struct {
	handler http.Handler
	store   *artifact.MemoryStore
}

func newAPI(t *testing.T) *api {
	t.Helper()

	store := artifact.NewMemoryStore()
	engine := render.NewEngine()
	docsRepo := testutil.NewDocumentRepository()
	jobs := job.NewMemoryRepository()

	tplSvc := templates.NewService(testutil.NewTemplateRepository(), store, engine)
	docSvc := document.NewService(docsRepo, tplSvc)

	orchestrator := generation.New(
		docsRepo,
		generation.NewCachedTemplateSource(tplSvc, time.Minute),
		sequence.NewAllocator(sequence.NewMemoryRepository()),
		engine,
		store,
		pdfConverter{},
	)

	ps, err := job.NewPubSub(job.PubSubOptions{Driver: job.DriverMemory})
	require.NoError(t, err)

	worker, err := job.NewWorker(ps.Subscriber, orchestrator, jobs, job.WorkerOptions{Topic: "document.generate"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		ps.Close()
	})

	<-worker.Running()

	handler := apihttp.New(
		httptemplates.NewHandler(tplSvc),
		documents.NewHandler(
			docSvc,
			job.NewQueue(ps.Publisher, "document.generate", jobs),
			job.NewTracker(docSvc, jobs),
			store,
			time.Hour,
		),
		apihttp.Options{AllowedOrigins: []string{"*"}, Authenticate: auth.Middleware(secret)},
	)

	return &api{handler: handler, store: store}
}

type caller struct {
	t     *testing.T
	api   *api
	token string
}

func (a *api) as(t *testing.T, tenantID uuid.UUID) *caller {
	t.Helper()

	token, err := auth.Sign(secret, auth.Identity{TenantID: tenantID, ActorID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	return &caller{t: t, api: a, token: token}
}

func (c *caller) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	c.t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+c.token)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	c.api.handler.ServeHTTP(rec, req)

	return rec
}

func (c *caller) json(method, path string, body any, out any) int {
	c.t.Helper()

	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
	}

	rec := c.do(method, path, "application/json", payload)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}

	return rec.Code
}

func (c *caller) upload(name, docType, content string) *httptest.ResponseRecorder {
	c.t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	require.NoError(c.t, mw.WriteField("name", name))
	require.NoError(c.t, mw.WriteField("type", docType))

	fw, err := mw.CreateFormFile("file", "template.txt")
	require.NoError(c.t, err)

	_, err = fw.Write([]byte(content))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	return c.do(http.MethodPost, "/api/v1/templates", mw.FormDataContentType(), body.Bytes())
}

func TestAPI_GenerateDocument(t *testing.T) {
	a := newAPI(t)
	tenantID := uuid.New()
	c := a.as(t, tenantID)

	rec := c.upload("Q1", "QUOTE", "Devis {{ doc_number }} pour {{ client }}: {{ amount }} EUR")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tpl struct {
		ID        uuid.UUID `json:"id"`
		Version   int       `json:"version"`
		Variables []string  `json:"variables"`
		Schema    map[string]struct {
			Type string `json:"type"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))
	assert.Equal(t, 1, tpl.Version)
	assert.Equal(t, []string{"amount", "client"}, tpl.Variables)
	assert.Equal(t, "number", tpl.Schema["amount"].Type)

	var doc struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
		Type   string    `json:"type"`
	}
	code := c.json(http.MethodPost, "/api/v1/documents", map[string]any{
		"client_id":   uuid.New(),
		"template_id": tpl.ID,
		"data":        map[string]any{"amount": 100, "client": "Acme"},
	}, &doc)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "DRAFT", doc.Status)
	assert.Equal(t, "QUOTE", doc.Type)

	var queued struct {
		RequestID uuid.UUID `json:"request_id"`
		Status    string    `json:"status"`
	}
	code = c.json(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/generate", nil, &queued)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, "pending", queued.Status)

	require.Eventually(t, func() bool {
		var status struct {
			Status string `json:"status"`
		}

		c.json(http.MethodGet, "/api/v1/documents/"+doc.ID.String()+"/generation", nil, &status)

		return status.Status == "generated"
	}, 5*time.Second, 10*time.Millisecond)

	var versions []struct {
		ID            uuid.UUID `json:"id"`
		VersionNumber int       `json:"version_number"`
		DocNumber     string    `json:"doc_number"`
		HasPDF        bool      `json:"has_pdf"`
	}
	code = c.json(http.MethodGet, "/api/v1/documents/"+doc.ID.String()+"/versions", nil, &versions)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, versions, 1)
	assert.Regexp(t, `^DEVIS-\d{4}-0001$`, versions[0].DocNumber)
	assert.True(t, versions[0].HasPDF)

	download := "/api/v1/documents/" + doc.ID.String() + "/versions/" + versions[0].ID.String() + "/download"

	rec = c.do(http.MethodGet, download+"?file_type=docx", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), versions[0].DocNumber+".txt")

	rec = c.do(http.MethodGet, download, "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), versions[0].DocNumber+".pdf")

	rec = c.do(http.MethodGet, download+"?file_type=odt", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var conflict struct {
		Error string `json:"error"`
	}
	code = c.json(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/generate", nil, &conflict)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_generated", conflict.Error)

	code = c.json(http.MethodPatch, "/api/v1/documents/"+doc.ID.String(), map[string]any{"data": map[string]any{}}, &conflict)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", conflict.Error)
}

func TestAPI_TenantIsolation(t *testing.T) {
	a := newAPI(t)
	owner := a.as(t, uuid.New())
	other := a.as(t, uuid.New())

	rec := owner.upload("Contrat", "CONTRACT", "Contrat pour {{ client }}")
	require.Equal(t, http.StatusCreated, rec.Code)

	var tpl struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))

	assert.Equal(t, http.StatusNotFound, other.json(http.MethodGet, "/api/v1/templates/"+tpl.ID.String(), nil, nil))

	code := other.json(http.MethodPost, "/api/v1/documents", map[string]any{
		"client_id":   uuid.New(),
		"template_id": tpl.ID,
	}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	var listed []any
	require.Equal(t, http.StatusOK, other.json(http.MethodGet, "/api/v1/templates", nil, &listed))
	assert.Empty(t, listed)
}

func TestAPI_Templates(t *testing.T) {
	a := newAPI(t)
	c := a.as(t, uuid.New())

	rec := c.upload("Facture", "INVOICE", "Total {% if amount %}{{ amount }}")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed_template")

	rec = c.upload("", "INVOICE", "Total {{ amount }}")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.upload("Facture", "INVOICE", "Total {{ amount }} pour {{ client }}")
	require.Equal(t, http.StatusCreated, rec.Code)

	var tpl struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))

	rec = c.do(http.MethodPost, "/api/v1/templates/"+tpl.ID.String()+"/test-render", "application/json",
		[]byte(`{"data":{"amount":"12.50","client":"Acme"}}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, render.ContentTypeText, rec.Header().Get("Content-Type"))
	assert.Equal(t, "Total 12.50 pour Acme", rec.Body.String())

	rec = c.do(http.MethodPost, "/api/v1/templates/"+tpl.ID.String()+"/test-render", "application/json",
		[]byte(`{"data":{"amount":"a lot"}}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/templates/"+tpl.ID.String()+"/test-render", "application/json",
		[]byte(`{"data":{"amount":1e50000000}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation")

	rec = c.do(http.MethodPost, "/api/v1/templates/"+tpl.ID.String()+"/test-render", "application/json",
		[]byte(`{"data":{"amount":"1e50000000"}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNoContent, c.json(http.MethodDelete, "/api/v1/templates/"+tpl.ID.String(), nil, nil))

	var active []any
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/v1/templates", nil, &active))
	assert.Empty(t, active)

	var all []any
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/v1/templates?include_inactive=true", nil, &all))
	assert.Len(t, all, 1)

	code := c.json(http.MethodPost, "/api/v1/documents", map[string]any{
		"client_id":   uuid.New(),
		"template_id": tpl.ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newAPI(t)

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}
