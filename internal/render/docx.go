package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
)

// partPattern matches the parts of a word document that carry user text.
var partPattern = regexp.MustCompile(`^word/(document|header\d*|footer\d*|footnotes|endnotes)\.xml$`)

var (
	// Word splits runs freely, so a single placeholder may be spread over
	// several <w:r> elements. These collapse the delimiters first, then strip
	// the markup left between them.
	openVar    = regexp.MustCompile(`\{(?:<[^>]*>)*\{`)
	closeVar   = regexp.MustCompile(`\}(?:<[^>]*>)*\}`)
	openTag    = regexp.MustCompile(`\{(?:<[^>]*>)*%`)
	closeTag   = regexp.MustCompile(`%(?:<[^>]*>)*\}`)
	expression = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	markup     = regexp.MustCompile(`<[^>]*>`)
)

var entities = strings.NewReplacer(
	"&quot;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"“", `"`,
	"”", `"`,
	"‘", "'",
	"’", "'",
)

// cleanXML rewrites placeholders split across runs into contiguous pongo2
// expressions.
func cleanXML(src []byte) []byte {
	out := openVar.ReplaceAll(src, []byte("{{"))
	out = closeVar.ReplaceAll(out, []byte("}}"))
	out = openTag.ReplaceAll(out, []byte("{%"))
	out = closeTag.ReplaceAll(out, []byte("%}"))

	return expression.ReplaceAllFunc(out, func(expr []byte) []byte {
		return []byte(entities.Replace(string(markup.ReplaceAll(expr, nil))))
	})
}

type docxPart struct {
	file *zip.File
	body []byte
}

// readParts opens a docx archive and returns the text-bearing parts, cleaned.
func readParts(tpl []byte) (*zip.Reader, []docxPart, error) {
	zr, err := zip.NewReader(bytes.NewReader(tpl), int64(len(tpl)))
	if err != nil {
		return nil, nil, apperr.Mark(fmt.Errorf("opening docx: %w", err), apperr.ErrMalformedTemplate)
	}

	var parts []docxPart

	for _, f := range zr.File {
		if !partPattern.MatchString(f.Name) {
			continue
		}

		body, err := readFile(f)
		if err != nil {
			return nil, nil, apperr.Mark(fmt.Errorf("reading %s: %w", f.Name, err), apperr.ErrMalformedTemplate)
		}

		parts = append(parts, docxPart{file: f, body: cleanXML(body)})
	}

	if len(parts) == 0 {
		return nil, nil, apperr.New(apperr.ErrMalformedTemplate, "docx has no word/document.xml part")
	}

	return zr, parts, nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (e *Engine) renderDOCX(tpl []byte, data map[string]any) ([]byte, error) {
	zr, parts, err := readParts(tpl)
	if err != nil {
		return nil, err
	}

	rendered := make(map[string][]byte, len(parts))

	for _, p := range parts {
		out, err := e.execute(p.body, data)
		if err != nil {
			return nil, fmt.Errorf("rendering %s: %w", p.file.Name, err)
		}

		rendered[p.file.Name] = out
	}

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, f := range zr.File {
		body, ok := rendered[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copying %s: %w", f.Name, err)
			}

			continue
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", f.Name, err)
		}

		if _, err := w.Write(body); err != nil {
			return nil, fmt.Errorf("writing %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx: %w", err)
	}

	return buf.Bytes(), nil
}
