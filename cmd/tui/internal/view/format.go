package view

import (
	"context"
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

const (
	dbTimeout       = 5 * time.Second
	generateTimeout = 2 * time.Minute
)

// FormatDate formats a time.Time the way dates are printed into documents.
func FormatDate(t time.Time) string {
	return t.Format(render.DateLayout)
}

// FormatSecondary describes the outcome of a version's conversion step.
func FormatSecondary(s document.Secondary) string {
	if _, ok := s.Key(); ok {
		return "pdf"
	}

	return fmt.Sprintf("docx only (%s)", s.SkipReason())
}

// FormatError renders err with its kind and, when present, the hint for the user.
func FormatError(err error) string {
	msg := fmt.Sprintf("%s: %v", apperr.Reason(err), err)

	if hint := apperr.Hint(err); hint != "" {
		msg += "\n" + hint
	}

	return msg
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
