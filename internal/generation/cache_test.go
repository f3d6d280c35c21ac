package generation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/generation"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

func TestCachedTemplateSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	tpl := &templates.Template{ID: id, Name: "Q1"}

	next := generation.NewMockTemplateSource(ctrl)
	next.EXPECT().Source(gomock.Any(), id).Return(tpl, []byte("src"), nil).Times(1)

	cached := generation.NewCachedTemplateSource(next, time.Minute)

	for range 3 {
		got, src, err := cached.Source(context.Background(), id)
		require.NoError(t, err)
		assert.Same(t, tpl, got)
		assert.Equal(t, []byte("src"), src)
	}
}

func TestCachedTemplateSource_DoesNotCacheErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	tpl := &templates.Template{ID: id}

	next := generation.NewMockTemplateSource(ctrl)
	gomock.InOrder(
		next.EXPECT().Source(gomock.Any(), id).Return(nil, nil, apperr.New(apperr.ErrStoreUnavailable, "down")),
		next.EXPECT().Source(gomock.Any(), id).Return(tpl, []byte("src"), nil),
	)

	cached := generation.NewCachedTemplateSource(next, time.Minute)

	_, _, err := cached.Source(context.Background(), id)
	require.Error(t, err)

	got, _, err := cached.Source(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, tpl, got)
}
