package render

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/samber/lo"
)

type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
)

// Field is the inferred description of one template variable.
type Field struct {
	Type  FieldType `json:"type"`
	Title string    `json:"title"`
}

// Schema maps variable names to their fields.
type Schema map[string]Field

// Names returns the schema's variable names in sorted order.
func (s Schema) Names() []string {
	names := lo.Keys(s)
	slices.Sort(names)

	return names
}

// Classifier decides the type of a variable from its name.
type Classifier func(name string) FieldType

// numericTokens mark a variable as numeric when they appear anywhere in its name.
var numericTokens = []string{"qty", "quantite", "quantity", "price", "amount", "prix", "montant"}

// ClassifyByName is the default classifier: names containing a quantity,
// price or amount token are numeric, everything else is text.
func ClassifyByName(name string) FieldType {
	lower := strings.ToLower(name)

	if lo.SomeBy(numericTokens, func(tok string) bool { return strings.Contains(lower, tok) }) {
		return FieldNumber
	}

	return FieldString
}

// InferSchema derives a schema from variable names using ClassifyByName.
func InferSchema(names []string) Schema {
	return InferSchemaWith(names, ClassifyByName)
}

// InferSchemaWith derives a schema using classify.
func InferSchemaWith(names []string, classify Classifier) Schema {
	schema := make(Schema, len(names))

	for _, name := range names {
		schema[name] = Field{Type: classify(name), Title: Title(name)}
	}

	return schema
}

// Title turns a variable name into a display label: "unit_price" becomes "Unit price".
func Title(name string) string {
	s := strings.ToLower(strings.ReplaceAll(name, "_", " "))

	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
