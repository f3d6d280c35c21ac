// Package render fills document templates with draft data.
//
// Two template formats are supported: plain text and Office Open XML word
// documents (.docx). Both use the pongo2 (Django) placeholder dialect, e.g.
// {{ client_name }} or {% if discount %}...{% endif %}. Missing variables
// render as blanks; drafts are partial by nature and a generation must not
// fail because an optional field was left empty.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/h2non/filetype"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

const (
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Format describes the rendition produced from a template.
type Format struct {
	ContentType string
	Ext         string
}

var (
	FormatDOCX = Format{ContentType: ContentTypeDOCX, Ext: ".docx"}
	FormatText = Format{ContentType: ContentTypeText, Ext: ".txt"}
)

// Detect returns the format of tpl by sniffing its leading bytes. Any zip
// container is taken for a word document.
func Detect(tpl []byte) Format {
	if filetype.Is(tpl, "docx") || filetype.Is(tpl, "zip") {
		return FormatDOCX
	}

	return FormatText
}

// Templates never load other templates.
var bannedTags = []string{"include", "extends", "import", "ssi"}

// empty backs the loader of the sandboxed template set.
var empty embed.FS

type Engine struct {
	set *pongo2.TemplateSet
	mu  sync.Mutex
}

func NewEngine() *Engine {
	set := pongo2.NewSet("docforge", pongo2.NewFSLoader(empty))

	for _, tag := range bannedTags {
		// BanTag only fails for unknown tags or after first use.
		_ = set.BanTag(tag)
	}

	return &Engine{set: set}
}

// Render fills tpl with data and returns the rendered bytes in the same format
// as the template.
func (e *Engine) Render(tpl []byte, data map[string]any) ([]byte, error) {
	if Detect(tpl) == FormatDOCX {
		return e.renderDOCX(tpl, data)
	}

	return e.renderText(tpl, data)
}

func (e *Engine) renderText(tpl []byte, data map[string]any) ([]byte, error) {
	src := make([]byte, 0, len(tpl)+64)
	src = append(src, "{% autoescape off %}"...)
	src = append(src, tpl...)
	src = append(src, "{% endautoescape %}"...)

	return e.execute(src, data)
}

// execute parses and renders a single pongo2 source.
func (e *Engine) execute(src []byte, data map[string]any) ([]byte, error) {
	e.mu.Lock()
	tmpl, err := e.set.FromBytes(src)
	e.mu.Unlock()

	if err != nil {
		return nil, apperr.WithHint(
			apperr.Mark(fmt.Errorf("parsing template: %w", err), apperr.ErrMalformedTemplate),
			"the template contains invalid placeholder syntax",
		)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(pongoContext(data), &buf); err != nil {
		return nil, apperr.Mark(fmt.Errorf("executing template: %w", err), apperr.ErrRender)
	}

	return buf.Bytes(), nil
}

// pongoContext drops keys pongo2 would reject as identifiers. Drafts may carry
// arbitrary extra keys; a template can never reference those anyway.
func pongoContext(data map[string]any) pongo2.Context {
	ctx := make(pongo2.Context, len(data))

	for k, v := range data {
		if identifier.MatchString(k) {
			ctx[k] = v
		}
	}

	return ctx
}
