package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

func TestMark_SurvivesWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("loading document: %w", apperr.Mark(cause, apperr.ErrStoreUnavailable))

	assert.True(t, apperr.Is(err, apperr.ErrStoreUnavailable))
	assert.False(t, apperr.Is(err, apperr.ErrNotFound))
	assert.ErrorIs(t, err, cause)
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, "store_unavailable", apperr.Reason(err))
}

func TestMark_Nil(t *testing.T) {
	assert.NoError(t, apperr.Mark(nil, apperr.ErrRender))
	assert.NoError(t, apperr.WithHint(nil, "hint"))
	assert.Nil(t, apperr.KindOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "NotFound", err: apperr.New(apperr.ErrNotFound, "document missing"), want: http.StatusNotFound},
		{name: "AlreadyGenerated", err: apperr.ErrAlreadyGenerated, want: http.StatusConflict},
		{name: "StoreUnavailable", err: apperr.Mark(errors.New("timeout"), apperr.ErrStoreUnavailable), want: http.StatusServiceUnavailable},
		{name: "Render", err: apperr.Newf(apperr.ErrRender, "field %q", "qty"), want: http.StatusUnprocessableEntity},
		{name: "Validation", err: apperr.New(apperr.ErrValidation, "bad"), want: http.StatusBadRequest},
		{name: "Unclassified", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.HTTPStatus(tt.err))
		})
	}
}

func TestReason_PrefersDomainKindOverTransport(t *testing.T) {
	err := apperr.Mark(apperr.New(apperr.ErrAlreadyGenerated, "lost the race"), apperr.ErrStoreUnavailable)

	assert.Equal(t, "already_generated", apperr.Reason(err))
	assert.Equal(t, "internal", apperr.Reason(errors.New("boom")))
}

func TestHint(t *testing.T) {
	err := apperr.WithHint(apperr.New(apperr.ErrMalformedTemplate, "unexpected token"), "check the template syntax")

	assert.Equal(t, "check the template syntax", apperr.Hint(err))
	assert.True(t, apperr.Is(err, apperr.ErrMalformedTemplate))
}
