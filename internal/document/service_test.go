package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
)

func TestService_Create(t *testing.T) {
	tenantID := uuid.New()
	templateID := uuid.New()

	type testCase struct {
		name      string
		setupMock func(repo *document.MockRepository, tpl *document.MockTemplateResolver)
		wantKind  *apperr.Kind
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(repo *document.MockRepository, tpl *document.MockTemplateResolver) {
				tpl.EXPECT().ResolveTemplate(gomock.Any(), tenantID, templateID).Return(document.TypeInvoice, nil)
				repo.EXPECT().
					CreateDocument(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, doc *document.Document) error {
						assert.Equal(t, document.StatusDraft, doc.Status)
						assert.Equal(t, document.TypeInvoice, doc.Type)
						assert.NotNil(t, doc.Totals)
						doc.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "TemplateNotFound",
			setupMock: func(_ *document.MockRepository, tpl *document.MockTemplateResolver) {
				tpl.EXPECT().
					ResolveTemplate(gomock.Any(), tenantID, templateID).
					Return(document.DocType(""), apperr.New(apperr.ErrNotFound, "template not found"))
			},
			wantErr:  true,
			wantKind: apperr.ErrNotFound,
		},
		{
			name: "RepoError",
			setupMock: func(repo *document.MockRepository, tpl *document.MockTemplateResolver) {
				tpl.EXPECT().ResolveTemplate(gomock.Any(), tenantID, templateID).Return(document.TypeQuote, nil)
				repo.EXPECT().CreateDocument(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := document.NewMockRepository(ctrl)
			tpl := document.NewMockTemplateResolver(ctrl)
			tt.setupMock(repo, tpl)

			svc := document.NewService(repo, tpl)
			got, err := svc.Create(context.Background(), document.CreateParams{
				TenantID:   tenantID,
				TemplateID: templateID,
				Data:       document.Data{"client": document.Text("Acme")},
			})

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				if tt.wantKind != nil {
					assert.True(t, apperr.Is(err, tt.wantKind))
				}

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_Get_OtherTenant(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := document.NewMockRepository(ctrl)
	svc := document.NewService(repo, document.NewMockTemplateResolver(ctrl))

	id := uuid.New()
	repo.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{ID: id, TenantID: uuid.New()}, nil)

	_, err := svc.Get(context.Background(), uuid.New(), id)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestService_Update(t *testing.T) {
	tenantID := uuid.New()
	id := uuid.New()

	tests := []struct {
		name      string
		status    document.Status
		setupMock func(m *document.MockRepository)
		wantKind  *apperr.Kind
	}{
		{
			name:   "Draft",
			status: document.StatusDraft,
			setupMock: func(m *document.MockRepository) {
				m.EXPECT().
					UpdateDraft(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, doc *document.Document) error {
						assert.Equal(t, "Globex", doc.Data["client"].Text)
						return nil
					})
			},
		},
		{
			name:      "Generated",
			status:    document.StatusGenerated,
			setupMock: func(_ *document.MockRepository) {},
			wantKind:  apperr.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := document.NewMockRepository(ctrl)
			repo.EXPECT().GetDocument(gomock.Any(), id).Return(&document.Document{
				ID: id, TenantID: tenantID, Status: tt.status, Data: document.Data{},
			}, nil)
			tt.setupMock(repo)

			svc := document.NewService(repo, document.NewMockTemplateResolver(ctrl))
			_, err := svc.Update(context.Background(), tenantID, id, document.UpdateParams{
				Data: document.Data{"client": document.Text("Globex")},
			})

			if tt.wantKind != nil {
				assert.True(t, apperr.Is(err, tt.wantKind))
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Delete_OnlyDrafts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tenantID := uuid.New()
	draft := &document.Document{ID: uuid.New(), TenantID: tenantID, Status: document.StatusDraft}
	generated := &document.Document{ID: uuid.New(), TenantID: tenantID, Status: document.StatusGenerated}

	repo := document.NewMockRepository(ctrl)
	repo.EXPECT().GetDocument(gomock.Any(), draft.ID).Return(draft, nil)
	repo.EXPECT().DeleteDraft(gomock.Any(), draft.ID).Return(nil)
	repo.EXPECT().GetDocument(gomock.Any(), generated.ID).Return(generated, nil)

	svc := document.NewService(repo, document.NewMockTemplateResolver(ctrl))

	require.NoError(t, svc.Delete(context.Background(), tenantID, draft.ID))

	err := svc.Delete(context.Background(), tenantID, generated.ID)
	assert.True(t, apperr.Is(err, apperr.ErrInvalidState))
}

func TestService_Version_ScopedToDocument(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tenantID := uuid.New()
	docID := uuid.New()
	v := &document.Version{ID: uuid.New(), DocumentID: docID, TenantID: tenantID}

	repo := document.NewMockRepository(ctrl)
	repo.EXPECT().GetVersion(gomock.Any(), v.ID).Return(v, nil).Times(2)

	svc := document.NewService(repo, document.NewMockTemplateResolver(ctrl))

	got, err := svc.Version(context.Background(), tenantID, docID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = svc.Version(context.Background(), tenantID, uuid.New(), v.ID)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}
