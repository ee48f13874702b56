// Package docxml provides read/write access to the XML parts of a DOCX
// package and the structural addressing shared by the renderer and the
// placeholder insertion engine.
//
// A DOCX file is a ZIP archive of XML parts. Document parses individual
// parts into etree DOMs lazily and caches them; on serialization, modified
// parts are re-encoded from their DOM while every other entry is copied
// byte-for-byte, so formatting, images, headers and footers the service
// never touched survive a round trip untouched.
package docxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

const (
	// MainPart is the document body part every valid DOCX carries.
	MainPart      = "word/document.xml"
	stylesPart    = "word/styles.xml"
	numberingPart = "word/numbering.xml"
	relsPart      = "word/_rels/document.xml.rels"
)

var errPartNotFound = errors.New("part not found in docx")

// xmlPart holds both the raw bytes and the parsed DOM for a single ZIP entry.
type xmlPart struct {
	raw []byte
	doc *etree.Document
}

// Document provides lazy, cached access to the XML parts of one DOCX byte
// buffer. It is request-scoped: a Document must not be shared between
// concurrent render or insertion calls.
type Document struct {
	names []string // ZIP entry order, preserved on save
	parts map[string]*xmlPart
	dirty map[string]bool

	styles    *Stylesheet
	numbering *Numbering
	rels      map[string]string // relationship id -> target
}

// FromBytes opens a DOCX byte buffer. It fails when the buffer is not a ZIP
// archive or carries no word/document.xml.
func FromBytes(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	d := &Document{
		parts: make(map[string]*xmlPart, len(zr.File)),
		dirty: make(map[string]bool),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
		}
		if _, ok := d.parts[f.Name]; !ok {
			d.names = append(d.names, f.Name)
		}
		d.parts[f.Name] = &xmlPart{raw: raw}
	}

	if _, ok := d.parts[MainPart]; !ok {
		return nil, fmt.Errorf("not a valid docx: missing %s", MainPart)
	}
	return d, nil
}

// Part returns the parsed DOM for a part path (e.g. "word/document.xml"),
// parsing on first access.
func (d *Document) Part(name string) (*etree.Document, error) {
	p, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errPartNotFound, name)
	}
	if p.doc == nil {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(p.raw); err != nil {
			return nil, fmt.Errorf("parse xml %s: %w", name, err)
		}
		p.doc = doc
	}
	return p.doc, nil
}

// HasPart reports whether the package contains the named entry.
func (d *Document) HasPart(name string) bool {
	_, ok := d.parts[name]
	return ok
}

// RawPart returns the raw bytes of an entry without parsing.
func (d *Document) RawPart(name string) ([]byte, error) {
	p, ok := d.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errPartNotFound, name)
	}
	return p.raw, nil
}

// MarkDirty flags a part as modified so Bytes re-serializes it from its DOM.
func (d *Document) MarkDirty(name string) {
	d.dirty[name] = true
}

// Bytes re-serializes the package. Dirty parts are encoded from their cached
// DOM; everything else is copied verbatim in the original entry order.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, name := range d.names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		p := d.parts[name]
		if d.dirty[name] && p.doc != nil {
			b, err := p.doc.WriteToBytes()
			if err != nil {
				return nil, fmt.Errorf("serialize %s: %w", name, err)
			}
			if _, err := w.Write(b); err != nil {
				return nil, fmt.Errorf("write %s: %w", name, err)
			}
			continue
		}
		if _, err := w.Write(p.raw); err != nil {
			return nil, fmt.Errorf("copy %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Body returns the w:body element of the main document part, or nil when the
// part parses but carries no body. A part that fails to parse is an error.
func (d *Document) Body() (*etree.Element, error) {
	doc, err := d.Part(MainPart)
	if err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, nil
	}
	return childByTag(root, "body"), nil
}

// Styles returns the resolved stylesheet. A package without word/styles.xml
// yields an empty stylesheet that resolves everything to defaults.
func (d *Document) Styles() *Stylesheet {
	if d.styles != nil {
		return d.styles
	}
	d.styles = emptyStylesheet()
	if d.HasPart(stylesPart) {
		if doc, err := d.Part(stylesPart); err == nil {
			d.styles = newStylesheet(doc)
		}
	}
	return d.styles
}

// NumberingDefs returns the document's numbering definitions, empty when the
// package has none.
func (d *Document) NumberingDefs() *Numbering {
	if d.numbering != nil {
		return d.numbering
	}
	d.numbering = emptyNumbering()
	if d.HasPart(numberingPart) {
		if doc, err := d.Part(numberingPart); err == nil {
			d.numbering = newNumbering(doc)
		}
	}
	return d.numbering
}

// RelTarget resolves a relationship id from the main part's relationships to
// its target path (e.g. "media/image1.png").
func (d *Document) RelTarget(relID string) (string, bool) {
	if d.rels == nil {
		d.rels = make(map[string]string)
		if doc, err := d.Part(relsPart); err == nil && doc.Root() != nil {
			for _, rel := range doc.Root().ChildElements() {
				if rel.Tag != "Relationship" {
					continue
				}
				id := attrValue(rel, "Id")
				target := attrValue(rel, "Target")
				if id != "" && target != "" {
					d.rels[id] = target
				}
			}
		}
	}
	t, ok := d.rels[relID]
	return t, ok
}

// MediaBytes returns the bytes of an embedded media object referenced by a
// relationship id, together with its MIME type inferred from the extension.
func (d *Document) MediaBytes(relID string) ([]byte, string, bool) {
	target, ok := d.RelTarget(relID)
	if !ok {
		return nil, "", false
	}
	name := "word/" + target
	raw, err := d.RawPart(name)
	if err != nil {
		return nil, "", false
	}
	return raw, mimeTypeFor(target), true
}

func mimeTypeFor(target string) string {
	switch {
	case hasSuffixFold(target, ".png"):
		return "image/png"
	case hasSuffixFold(target, ".jpg"), hasSuffixFold(target, ".jpeg"):
		return "image/jpeg"
	case hasSuffixFold(target, ".gif"):
		return "image/gif"
	case hasSuffixFold(target, ".bmp"):
		return "image/bmp"
	case hasSuffixFold(target, ".emf"), hasSuffixFold(target, ".wmf"):
		return "image/x-emf"
	default:
		return "application/octet-stream"
	}
}
