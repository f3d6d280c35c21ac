// Package artifact stores template sources and generated renditions in object
// storage. Keys are namespaced per tenant by the helpers below; the stores
// themselves do not enforce isolation.
package artifact

import (
	"fmt"

	"github.com/google/uuid"
)

// TemplateKey locates an uploaded template source.
func TemplateKey(tenantID, templateID uuid.UUID, ext string) string {
	return fmt.Sprintf("templates/%s/%s%s", tenantID, templateID, ext)
}

// DocumentKey locates a generated rendition. The document number is unique per
// tenant, so keys never collide between generations.
func DocumentKey(tenantID uuid.UUID, docNumber, ext string) string {
	return fmt.Sprintf("documents/%s/%s%s", tenantID, docNumber, ext)
}
