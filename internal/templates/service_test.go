package templates_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/artifact"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
	"github.com/MrJamesThe3rd/docforge/internal/testutil"
)

func TestService_Upload(t *testing.T) {
	tenantID := uuid.New()
	rootID := uuid.New()

	type testCase struct {
		name        string
		content     []byte
		latest      *templates.Template
		wantVersion int
		wantParent  *uuid.UUID
		wantSchema  render.Schema
		wantType    string
	}

	tests := []testCase{
		{
			name:        "FirstVersion",
			content:     []byte("Devis pour {{ client }}: {{ amount }}"),
			wantVersion: 1,
			wantSchema: render.Schema{
				"amount": {Type: render.FieldNumber, Title: "Amount"},
				"client": {Type: render.FieldString, Title: "Client"},
			},
			wantType: render.ContentTypeText,
		},
		{
			name:        "NextVersionPointsAtRoot",
			content:     []byte("{{ client }}"),
			latest:      &templates.Template{ID: uuid.New(), Version: 2, ParentID: &rootID},
			wantVersion: 3,
			wantParent:  &rootID,
			wantSchema:  render.Schema{"client": {Type: render.FieldString, Title: "Client"}},
			wantType:    render.ContentTypeText,
		},
		{
			name:        "SecondVersionPointsAtFirst",
			content:     testutil.DOCX(t, testutil.Run("{{ qty }}")),
			latest:      &templates.Template{ID: rootID, Version: 1},
			wantVersion: 2,
			wantParent:  &rootID,
			wantSchema:  render.Schema{"qty": {Type: render.FieldNumber, Title: "Qty"}},
			wantType:    render.ContentTypeDOCX,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := templates.NewMockRepository(ctrl)
			utx := templates.NewMockUploadTx(ctrl)
			blobs := artifact.NewMemoryStore()

			repo.EXPECT().BeginUpload(gomock.Any(), tenantID, "Q1").Return(utx, nil)
			utx.EXPECT().Latest(gomock.Any()).Return(tt.latest, nil)
			utx.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
			utx.EXPECT().Commit().Return(nil)
			utx.EXPECT().Rollback().Return(nil)

			svc := templates.NewService(repo, blobs, render.NewEngine())
			got, err := svc.Upload(context.Background(), templates.UploadParams{
				TenantID: tenantID,
				Name:     "Q1",
				Type:     document.TypeQuote,
				Content:  tt.content,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantVersion, got.Version)
			assert.Equal(t, tt.wantParent, got.ParentID)
			assert.Equal(t, tt.wantSchema, got.Schema)
			assert.Equal(t, tt.wantType, got.ContentType)
			assert.True(t, got.Active)
			assert.Equal(t, []string{got.SourceKey}, blobs.Keys())
			assert.Contains(t, got.SourceKey, "templates/"+tenantID.String()+"/")
		})
	}
}

func TestService_Upload_Latin1IsStoredAsUTF8(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := templates.NewMockRepository(ctrl)
	utx := templates.NewMockUploadTx(ctrl)
	blobs := artifact.NewMemoryStore()

	repo.EXPECT().BeginUpload(gomock.Any(), gomock.Any(), gomock.Any()).Return(utx, nil)
	utx.EXPECT().Latest(gomock.Any()).Return(nil, nil)
	utx.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
	utx.EXPECT().Commit().Return(nil)
	utx.EXPECT().Rollback().Return(nil)

	var logs bytes.Buffer

	svc := templates.NewService(repo, blobs, render.NewEngine(),
		templates.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	// "Reçu {{ client }}" in Windows-1252.
	got, err := svc.Upload(context.Background(), templates.UploadParams{
		TenantID: uuid.New(),
		Name:     "receipt",
		Type:     document.TypeInvoice,
		Content:  []byte{'R', 'e', 0xE7, 'u', ' ', '{', '{', ' ', 'c', 'l', 'i', 'e', 'n', 't', ' ', '}', '}'},
	})
	require.NoError(t, err)

	stored, err := blobs.Get(context.Background(), got.SourceKey)
	require.NoError(t, err)
	assert.Equal(t, "Reçu {{ client }}", string(stored))
	assert.Contains(t, logs.String(), "converted template to utf-8")
	assert.Contains(t, logs.String(), "name=receipt")
}

func TestService_Upload_MalformedStoresNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	blobs := artifact.NewMemoryStore()
	svc := templates.NewService(templates.NewMockRepository(ctrl), blobs, render.NewEngine())

	_, err := svc.Upload(context.Background(), templates.UploadParams{
		TenantID: uuid.New(),
		Name:     "broken",
		Type:     document.TypeQuote,
		Content:  []byte("{% if client %}unterminated"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrMalformedTemplate))
	assert.Empty(t, blobs.Keys())
}

func TestService_ResolveTemplate(t *testing.T) {
	tenantID := uuid.New()

	tests := []struct {
		name     string
		tpl      *templates.Template
		wantKind *apperr.Kind
	}{
		{
			name: "Active",
			tpl:  &templates.Template{TenantID: tenantID, Type: document.TypeContract, Active: true},
		},
		{
			name:     "Inactive",
			tpl:      &templates.Template{TenantID: tenantID, Type: document.TypeContract},
			wantKind: apperr.ErrInvalidState,
		},
		{
			name:     "OtherTenant",
			tpl:      &templates.Template{TenantID: uuid.New(), Type: document.TypeContract, Active: true},
			wantKind: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			id := uuid.New()
			tt.tpl.ID = id

			repo := templates.NewMockRepository(ctrl)
			repo.EXPECT().GetTemplate(gomock.Any(), id).Return(tt.tpl, nil)

			svc := templates.NewService(repo, artifact.NewMemoryStore(), render.NewEngine())
			got, err := svc.ResolveTemplate(context.Background(), tenantID, id)

			if tt.wantKind != nil {
				assert.True(t, apperr.Is(err, tt.wantKind), "got %v", err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, document.TypeContract, got)
		})
	}
}

func TestService_TestRender(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	tenantID := uuid.New()
	blobs := artifact.NewMemoryStore()

	tpl := &templates.Template{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Active:    true,
		SourceKey: "templates/x.txt",
		Schema:    render.InferSchema([]string{"client", "amount"}),
	}
	require.NoError(t, blobs.Put(ctx, tpl.SourceKey, []byte("{{ doc_number }} {{ date }} {{ client }} {{ amount }}"), render.ContentTypeText))

	repo := templates.NewMockRepository(ctrl)
	repo.EXPECT().GetTemplate(gomock.Any(), tpl.ID).Return(tpl, nil).AnyTimes()

	svc := templates.NewService(repo, blobs, render.NewEngine())

	out, _, err := svc.TestRender(ctx, tenantID, tpl.ID, document.Data{
		"client": document.Text("Acme"),
		"amount": document.Text("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PREVIEW "+time.Now().Format(render.DateLayout)+" Acme 100", string(out))

	_, _, err = svc.TestRender(ctx, tenantID, tpl.ID, document.Data{"amount": document.Text("lots")})
	assert.True(t, apperr.Is(err, apperr.ErrRender))

	assert.Equal(t, []string{tpl.SourceKey}, blobs.Keys(), "test render stores nothing")
}
