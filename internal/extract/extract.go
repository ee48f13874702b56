// Package extract pulls plain text and a heading outline out of DOCX
// template files. The text feeds template search and field discovery; the
// outline feeds template previews.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
)

// Heading is one outline entry, taken from paragraphs styled Heading1..6.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Extraction is the searchable view of one document.
type Extraction struct {
	Text      string    `json:"text"`
	Outline   []Heading `json:"outline,omitempty"`
	WordCount int       `json:"wordCount"`
}

// IsDOCX reports whether a filename carries the only extension the service
// accepts for template uploads.
func IsDOCX(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".docx")
}

// FromDOCX extracts the paragraph text and heading outline of a document.
// Paragraphs are joined with blank lines; table content is included in
// document order where the underlying parser surfaces it.
func FromDOCX(data []byte) (*Extraction, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var (
		parts   []string
		outline []Heading
	)
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			text := paragraphText(v)
			if text == "" {
				continue
			}
			if level := headingLevel(v); level > 0 {
				outline = append(outline, Heading{Level: level, Text: text})
			}
			parts = append(parts, text)
		case *docx.Table:
			for _, row := range v.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					var cellParts []string
					for _, p := range cell.Paragraphs {
						if t := paragraphText(p); t != "" {
							cellParts = append(cellParts, t)
						}
					}
					if len(cellParts) > 0 {
						cells = append(cells, strings.Join(cellParts, " "))
					}
				}
				if len(cells) > 0 {
					parts = append(parts, strings.Join(cells, "\t"))
				}
			}
		}
	}

	text := strings.Join(parts, "\n\n")
	return &Extraction{
		Text:      text,
		Outline:   outline,
		WordCount: len(strings.Fields(text)),
	}, nil
}

func headingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	switch style {
	case "heading1":
		return 1
	case "heading2":
		return 2
	case "heading3":
		return 3
	case "heading4":
		return 4
	case "heading5":
		return 5
	case "heading6":
		return 6
	}
	return 0
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch t := rc.(type) {
			case *docx.Text:
				buf.WriteString(t.Text)
			case *docx.Tab:
				buf.WriteString("\t")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
