// Package apperr holds the error taxonomy shared by the generation pipeline and
// its surrounding services. Producers mark an error with one of the kinds
// below; consumers match with errors.Is.
package apperr

import (
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Kind is a sentinel that classifies an error without replacing it.
type Kind struct {
	code string
}

func (k *Kind) Error() string { return k.code }

// Code returns the stable machine-readable code of the kind.
func (k *Kind) Code() string { return k.code }

var (
	ErrNotFound          = &Kind{code: "not_found"}
	ErrAlreadyGenerated  = &Kind{code: "already_generated"}
	ErrStoreUnavailable  = &Kind{code: "store_unavailable"}
	ErrMalformedTemplate = &Kind{code: "malformed_template"}
	ErrRender            = &Kind{code: "render_error"}
	ErrConversionTimeout = &Kind{code: "conversion_timeout"}
	ErrConversionService = &Kind{code: "conversion_service_error"}
	ErrValidation        = &Kind{code: "validation_error"}
	ErrInvalidState      = &Kind{code: "invalid_state"}
)

// kinds is ordered: the first match wins when an error carries several marks.
var kinds = []*Kind{
	ErrAlreadyGenerated,
	ErrNotFound,
	ErrMalformedTemplate,
	ErrRender,
	ErrValidation,
	ErrInvalidState,
	ErrConversionTimeout,
	ErrConversionService,
	ErrStoreUnavailable,
}

var statusCodes = map[*Kind]int{
	ErrNotFound:          http.StatusNotFound,
	ErrAlreadyGenerated:  http.StatusConflict,
	ErrInvalidState:      http.StatusConflict,
	ErrStoreUnavailable:  http.StatusServiceUnavailable,
	ErrMalformedTemplate: http.StatusUnprocessableEntity,
	ErrRender:            http.StatusUnprocessableEntity,
	ErrValidation:        http.StatusBadRequest,
	ErrConversionTimeout: http.StatusGatewayTimeout,
	ErrConversionService: http.StatusBadGateway,
}

// Mark tags err with kind while keeping the original cause chain intact.
func Mark(err error, kind *Kind) error {
	if err == nil {
		return nil
	}

	return errors.Mark(err, kind)
}

// New creates a fresh error of the given kind.
func New(kind *Kind, msg string) error {
	return errors.Mark(errors.New(msg), kind)
}

// Newf is New with formatting.
func Newf(kind *Kind, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// WithHint attaches a user-facing hint to err.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}

	return errors.WithHint(err, hint)
}

// Hint returns the hints attached to err joined into a single line.
func Hint(err error) string {
	return strings.Join(errors.GetAllHints(err), "; ")
}

// Is reports whether err was marked with kind anywhere in its chain. Marks
// survive fmt.Errorf wrapping but are invisible to the standard library's
// errors.Is, so callers use this instead.
func Is(err error, kind *Kind) bool {
	return errors.Is(err, kind)
}

// KindOf returns the kind err was marked with, or nil.
func KindOf(err error) *Kind {
	if err == nil {
		return nil
	}

	for _, k := range kinds {
		if Is(err, k) {
			return k
		}
	}

	return nil
}

// Reason returns the machine code for err, "internal" when it carries no kind.
func Reason(err error) string {
	if k := KindOf(err); k != nil {
		return k.code
	}

	return "internal"
}

// Retryable reports whether a caller may blindly retry the failed operation.
func Retryable(err error) bool {
	return Is(err, ErrStoreUnavailable)
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	if k := KindOf(err); k != nil {
		return statusCodes[k]
	}

	return http.StatusInternalServerError
}
