package document

import (
	"time"

	"github.com/google/uuid"
)

// DocType identifies the kind of business document. It scopes numbering.
type DocType string

const (
	TypeQuote    DocType = "QUOTE"
	TypeInvoice  DocType = "INVOICE"
	TypeContract DocType = "CONTRACT"
)

var prefixes = map[DocType]string{
	TypeQuote:    "DEVIS",
	TypeInvoice:  "FAC",
	TypeContract: "CTR",
}

// Prefix returns the document-number prefix for the type, "DOC" for types
// without a dedicated one.
func (t DocType) Prefix() string {
	if p, ok := prefixes[t]; ok {
		return p
	}

	return "DOC"
}

// Status represents the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusGenerated Status = "GENERATED"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// Document is a mutable draft holding the data rendered into its versions.
type Document struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ClientID   uuid.UUID
	TemplateID uuid.UUID
	Type       DocType
	Status     Status
	Data       Data
	Totals     Data
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Version is an immutable record of one successful generation.
type Version struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	TenantID    uuid.UUID
	Number      int
	DocNumber   string
	Snapshot    Data
	PrimaryKey  string
	Secondary   Secondary
	GeneratedBy uuid.UUID
	GeneratedAt time.Time
}

// FileType selects which rendition of a version to download.
type FileType string

const (
	FilePrimary   FileType = "docx"
	FileSecondary FileType = "pdf"
)

// Key returns the artifact key for ft. A skipped secondary falls back to the
// primary artifact.
func (v *Version) Key(ft FileType) string {
	if ft == FileSecondary {
		if key, ok := v.Secondary.Key(); ok {
			return key
		}
	}

	return v.PrimaryKey
}

// Secondary is the outcome of the best-effort conversion step: either the
// key of the converted artifact or the reason conversion was skipped.
type Secondary struct {
	key    string
	reason string
}

// Converted records a successfully stored secondary artifact.
func Converted(key string) Secondary {
	return Secondary{key: key}
}

// Skipped records that no secondary artifact exists and why.
func Skipped(reason string) Secondary {
	return Secondary{reason: reason}
}

// Key returns the secondary artifact key and whether conversion succeeded.
func (s Secondary) Key() (string, bool) {
	return s.key, s.key != ""
}

// SkipReason is empty when conversion succeeded.
func (s Secondary) SkipReason() string {
	return s.reason
}

// AuditEvent is written alongside state changes that must be traceable.
type AuditEvent struct {
	TenantID   uuid.UUID
	ActorID    uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Metadata   map[string]any
}

const (
	ActionGenerate     = "GENERATE"
	EntityTypeDocument = "DOCUMENT"
)
