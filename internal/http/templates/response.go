package templates

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/render"
	"github.com/MrJamesThe3rd/docforge/internal/templates"
)

type templateResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Type        document.DocType `json:"type"`
	Version     int              `json:"version"`
	ParentID    *uuid.UUID       `json:"parent_id,omitempty"`
	Active      bool             `json:"active"`
	ContentType string           `json:"content_type"`
	Variables   []string         `json:"variables"`
	Schema      render.Schema    `json:"schema"`
	CreatedAt   time.Time        `json:"created_at"`
}

func toResponse(tpl *templates.Template) templateResponse {
	return templateResponse{
		ID:          tpl.ID,
		Name:        tpl.Name,
		Type:        tpl.Type,
		Version:     tpl.Version,
		ParentID:    tpl.ParentID,
		Active:      tpl.Active,
		ContentType: tpl.ContentType,
		Variables:   tpl.Schema.Names(),
		Schema:      tpl.Schema,
		CreatedAt:   tpl.CreatedAt,
	}
}

func toResponseList(tpls []*templates.Template) []templateResponse {
	resp := make([]templateResponse, len(tpls))
	for i, tpl := range tpls {
		resp[i] = toResponse(tpl)
	}

	return resp
}
