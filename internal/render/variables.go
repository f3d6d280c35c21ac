package render

import (
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Reserved names are injected at generation time and never come from a draft.
const (
	VarDocNumber = "doc_number"
	VarDate      = "date"
)

// DateLayout is how dates are printed into documents.
const DateLayout = "02/01/2006"

// WithReserved returns a copy of ctx carrying the document number and the
// generation date under their reserved names.
func WithReserved(ctx map[string]any, docNumber string, at time.Time) map[string]any {
	out := maps.Clone(ctx)
	if out == nil {
		out = map[string]any{}
	}

	out[VarDocNumber] = docNumber
	out[VarDate] = at.Format(DateLayout)

	return out
}

var (
	printVar = regexp.MustCompile(`\{\{-?\s*([A-Za-z_][A-Za-z0-9_]*)`)
	ifVar    = regexp.MustCompile(`\{%-?\s*(?:if|elif)\s+(?:not\s+)?([A-Za-z_][A-Za-z0-9_]*)`)
	forVar   = regexp.MustCompile(`\{%-?\s*for\s+([A-Za-z_][A-Za-z0-9_, ]*?)\s+in\s+([A-Za-z_][A-Za-z0-9_]*)`)

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	word       = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

var builtins = map[string]bool{
	VarDocNumber: true,
	VarDate:      true,
	"forloop":    true,
	"true":       true,
	"false":      true,
	"True":       true,
	"False":      true,
	"None":       true,
	"nil":        true,
}

// ExtractVariables returns the sorted, de-duplicated names of the top-level
// variables a template reads, excluding the injected reserved names and loop
// variables.
func ExtractVariables(tpl []byte) ([]string, error) {
	sources := [][]byte{tpl}

	if Detect(tpl) == FormatDOCX {
		_, parts, err := readParts(tpl)
		if err != nil {
			return nil, err
		}

		sources = lo.Map(parts, func(p docxPart, _ int) []byte { return p.body })
	}

	var names []string

	loopVars := map[string]bool{}

	for _, src := range sources {
		for _, m := range forVar.FindAllSubmatch(src, -1) {
			for _, v := range word.FindAll(m[1], -1) {
				loopVars[string(v)] = true
			}

			names = append(names, string(m[2]))
		}

		for _, re := range []*regexp.Regexp{printVar, ifVar} {
			for _, m := range re.FindAllSubmatch(src, -1) {
				names = append(names, string(m[1]))
			}
		}
	}

	names = lo.Uniq(lo.Filter(names, func(n string, _ int) bool {
		return !builtins[n] && !loopVars[n]
	}))
	slices.Sort(names)

	return names, nil
}
