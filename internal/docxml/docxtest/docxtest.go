// Package docxtest builds minimal in-memory DOCX packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">`

// Bytes wraps a w:body XML fragment in a minimal DOCX package.
func Bytes(t *testing.T, bodyXML string) []byte {
	t.Helper()
	return WithParts(t, bodyXML, nil)
}

// WithParts builds a package from a body fragment plus extra named parts
// (e.g. "word/styles.xml" or "word/numbering.xml").
func WithParts(t *testing.T, bodyXML string, extra map[string]string) []byte {
	t.Helper()

	parts := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         rootRelsXML,
		"word/document.xml":   documentHeader + "<w:body>" + bodyXML + "</w:body></w:document>",
	}
	for name, content := range extra {
		parts[name] = content
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(parts[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	for name, content := range extra {
		if name == "[Content_Types].xml" || name == "_rels/.rels" || name == "word/document.xml" {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Paragraph builds a single-run paragraph fragment. The text is XML-escaped.
func Paragraph(text string) string {
	return `<w:p><w:r><w:t>` + textEscaper.Replace(text) + `</w:t></w:r></w:p>`
}

// Runs builds a paragraph fragment with one run per text. Texts are XML-escaped.
func Runs(texts ...string) string {
	out := `<w:p>`
	for _, s := range texts {
		out += `<w:r><w:t xml:space="preserve">` + textEscaper.Replace(s) + `</w:t></w:r>`
	}
	return out + `</w:p>`
}

// Table builds a one-row table fragment from cell body fragments.
func Table(cells ...string) string {
	out := `<w:tbl><w:tblPr><w:tblBorders><w:top w:val="single" w:sz="4"/></w:tblBorders></w:tblPr><w:tblGrid>`
	for range cells {
		out += `<w:gridCol w:w="2400"/>`
	}
	out += `</w:tblGrid><w:tr>`
	for _, c := range cells {
		out += `<w:tc><w:tcPr/>` + c + `</w:tc>`
	}
	return out + `</w:tr></w:tbl>`
}
