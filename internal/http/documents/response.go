package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/docforge/internal/document"
	"github.com/MrJamesThe3rd/docforge/internal/job"
)

type documentResponse struct {
	ID         uuid.UUID        `json:"id"`
	ClientID   uuid.UUID        `json:"client_id"`
	TemplateID uuid.UUID        `json:"template_id"`
	Type       document.DocType `json:"type"`
	Status     document.Status  `json:"status"`
	Data       document.Data    `json:"data"`
	Totals     document.Data    `json:"totals"`
	CreatedBy  uuid.UUID        `json:"created_by"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func toResponse(doc *document.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID,
		ClientID:   doc.ClientID,
		TemplateID: doc.TemplateID,
		Type:       doc.Type,
		Status:     doc.Status,
		Data:       doc.Data,
		Totals:     doc.Totals,
		CreatedBy:  doc.CreatedBy,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func toResponseList(docs []*document.Document) []documentResponse {
	resp := make([]documentResponse, len(docs))
	for i, doc := range docs {
		resp[i] = toResponse(doc)
	}

	return resp
}

type versionResponse struct {
	ID            uuid.UUID     `json:"id"`
	VersionNumber int           `json:"version_number"`
	DocNumber     string        `json:"doc_number"`
	Data          document.Data `json:"data"`
	HasPDF        bool          `json:"has_pdf"`
	PDFSkipReason string        `json:"pdf_skip_reason,omitempty"`
	GeneratedBy   uuid.UUID     `json:"generated_by"`
	GeneratedAt   time.Time     `json:"generated_at"`
}

func toVersionResponse(v *document.Version) versionResponse {
	_, hasPDF := v.Secondary.Key()

	return versionResponse{
		ID:            v.ID,
		VersionNumber: v.Number,
		DocNumber:     v.DocNumber,
		Data:          v.Snapshot,
		HasPDF:        hasPDF,
		PDFSkipReason: v.Secondary.SkipReason(),
		GeneratedBy:   v.GeneratedBy,
		GeneratedAt:   v.GeneratedAt,
	}
}

func toVersionResponseList(versions []*document.Version) []versionResponse {
	resp := make([]versionResponse, len(versions))
	for i, v := range versions {
		resp[i] = toVersionResponse(v)
	}

	return resp
}

type generationResponse struct {
	Status    job.State  `json:"status"`
	RequestID *uuid.UUID `json:"request_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Message   string     `json:"message,omitempty"`
	DocNumber string     `json:"doc_number,omitempty"`
	VersionID *uuid.UUID `json:"version_id,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toGenerationResponse(r *job.Report) generationResponse {
	return generationResponse{
		Status:    r.State,
		RequestID: r.RequestID,
		Reason:    r.Reason,
		Message:   r.Message,
		DocNumber: r.DocNumber,
		VersionID: r.VersionID,
		UpdatedAt: r.UpdatedAt,
	}
}
