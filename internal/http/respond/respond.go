// Package respond holds the JSON plumbing shared by the API handlers.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status its kind maps to. Unclassified errors are
// logged and hidden from the caller.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	resp := errorResponse{
		Error:   apperr.Reason(err),
		Message: err.Error(),
		Hint:    apperr.Hint(err),
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	if status == http.StatusInternalServerError {
		resp.Message = "internal error"
	}

	JSON(w, status, resp)
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.WithHint(apperr.Newf(apperr.ErrValidation, "decoding body: %v", err), "the body must be valid JSON")
	}

	return Validate(v)
}

func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return apperr.Mark(err, apperr.ErrValidation)
	}

	msgs := make([]string, len(fields))
	for i, fe := range fields {
		msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}

	return apperr.Newf(apperr.ErrValidation, "invalid request: %s", strings.Join(msgs, ", "))
}

// UUIDParam parses a path or query value as an id.
func UUIDParam(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.ErrValidation, "invalid %s %q", name, value)
	}

	return id, nil
}
