package templates

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

// Template is one published version of a tenant's template. The source bytes
// live in object storage under SourceKey and never change once published.
type Template struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Type        document.DocType
	Name        string
	Version     int
	ParentID    *uuid.UUID // first version of the lineage; nil on the first version itself
	Active      bool
	SourceKey   string
	ContentType string
	Schema      render.Schema
	CreatedAt   time.Time
}

// RootID returns the id shared by every version of the template's lineage.
func (t *Template) RootID() uuid.UUID {
	if t.ParentID != nil {
		return *t.ParentID
	}

	return t.ID
}
