// Package testutil holds fixtures and in-memory repositories shared by tests
// across packages.
package testutil

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

// DOCX builds a minimal word document whose body paragraphs are the given
// raw WordprocessingML fragments.
func DOCX(t testing.TB, paragraphs ...string) []byte {
	t.Helper()

	var body bytes.Buffer

	body.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	body.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	for _, p := range paragraphs {
		body.WriteString("<w:p>" + p + "</w:p>")
	}

	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, content := range map[string][]byte{
		"[Content_Types].xml": []byte(contentTypes),
		"word/document.xml":   body.Bytes(),
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating %s: %v", name, err)
		}

		if _, err := w.Write(content); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing docx: %v", err)
	}

	return buf.Bytes()
}

// Run wraps text in a single WordprocessingML run.
func Run(text string) string {
	return "<w:r><w:t>" + text + "</w:t></w:r>"
}

// DocumentXML extracts word/document.xml from a rendered docx.
func DocumentXML(t testing.TB, docx []byte) string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		t.Fatalf("opening docx: %v", err)
	}

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening document.xml: %v", err)
		}
		defer rc.Close()

		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading document.xml: %v", err)
		}

		return string(b)
	}

	t.Fatal("docx has no word/document.xml")

	return ""
}
