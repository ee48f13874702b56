package docxml

import (
	"strings"

	"github.com/beevik/etree"
)

// Tag comparisons ignore the namespace prefix: WordprocessingML elements are
// conventionally prefixed "w:" but the prefix is declared per document.

func childByTag(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func childrenByTag(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// descendantByTag does a depth-first search for the first element with the
// given local tag name.
func descendantByTag(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
		if d := descendantByTag(c, tag); d != nil {
			return d
		}
	}
	return nil
}

// attrValue returns an attribute's value matched by local key name, ignoring
// the namespace prefix ("w:val" and "val" both match key "val").
func attrValue(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

// ChildByTag is the exported form of childByTag for sibling packages walking
// paragraph internals.
func ChildByTag(el *etree.Element, tag string) *etree.Element {
	return childByTag(el, tag)
}

// ChildrenByTag returns all direct children with the given local tag name.
func ChildrenByTag(el *etree.Element, tag string) []*etree.Element {
	return childrenByTag(el, tag)
}

// DescendantByTag returns the first descendant with the given local tag name.
func DescendantByTag(el *etree.Element, tag string) *etree.Element {
	return descendantByTag(el, tag)
}

// AttrValue returns an attribute value matched by local key name.
func AttrValue(el *etree.Element, key string) string {
	return attrValue(el, key)
}

// RunText returns the text content of a w:r element. Tab elements count as
// exactly one character, matching the offset convention of field bindings.
func RunText(run *etree.Element) string {
	var sb strings.Builder
	for _, c := range run.ChildElements() {
		switch c.Tag {
		case "t":
			sb.WriteString(c.Text())
		case "tab":
			sb.WriteByte('\t')
		}
	}
	return sb.String()
}

// SetRunText replaces the text content of a run's first w:t element,
// creating one when the run has none. Text with leading or trailing spaces
// is marked xml:space="preserve" so Word does not trim it.
func SetRunText(run *etree.Element, text string) {
	t := childByTag(run, "t")
	if t == nil {
		t = run.CreateElement("w:t")
	}
	t.SetText(text)
	if text != strings.TrimSpace(text) {
		t.CreateAttr("xml:space", "preserve")
	}
}

// EnsureCellParagraphs synthesizes an empty w:p into every table cell that
// has no block content, recursively through nested tables. Rendering and
// insertion both call this before BuildIndex so every cell exposes at least
// one addressable paragraph and the two walks agree on paths.
func EnsureCellParagraphs(body *etree.Element) {
	if body == nil {
		return
	}
	for _, tbl := range childrenByTag(body, "tbl") {
		ensureTableCellParagraphs(tbl)
	}
}

func ensureTableCellParagraphs(tbl *etree.Element) {
	for _, tr := range childrenByTag(tbl, "tr") {
		for _, tc := range childrenByTag(tr, "tc") {
			hasBlock := false
			for _, c := range tc.ChildElements() {
				switch c.Tag {
				case "p":
					hasBlock = true
				case "tbl":
					hasBlock = true
					ensureTableCellParagraphs(c)
				}
			}
			if !hasBlock {
				tc.CreateElement("w:p")
			}
		}
	}
}

// SetRunContent replaces a run's text-bearing children (w:t and w:tab) with
// content rebuilt from text, where every '\t' becomes a w:tab element.
// Other children (w:rPr, drawings, field chars) stay in place.
func SetRunContent(run *etree.Element, text string) {
	for _, c := range childrenByTag(run, "t") {
		run.RemoveChild(c)
	}
	for _, c := range childrenByTag(run, "tab") {
		run.RemoveChild(c)
	}
	appendRunContent(run, text)
}

func appendRunContent(run *etree.Element, text string) {
	for i, chunk := range strings.Split(text, "\t") {
		if i > 0 {
			run.CreateElement("w:tab")
		}
		if chunk == "" {
			continue
		}
		t := run.CreateElement("w:t")
		t.SetText(chunk)
		if chunk != strings.TrimSpace(chunk) {
			t.CreateAttr("xml:space", "preserve")
		}
	}
}

// NewRun builds a fresh w:r with the given text content and an optional
// run-properties element, which is attached as-is (callers pass a copy).
func NewRun(text string, rPr *etree.Element) *etree.Element {
	run := etree.NewElement("w:r")
	if rPr != nil {
		run.AddChild(rPr)
	}
	appendRunContent(run, text)
	return run
}

// RunPropsCopy returns a deep copy of a run's w:rPr, or nil when absent.
func RunPropsCopy(run *etree.Element) *etree.Element {
	if rPr := childByTag(run, "rPr"); rPr != nil {
		return rPr.Copy()
	}
	return nil
}

// InsertAfter places el immediately after ref among ref's parent's children.
func InsertAfter(ref, el *etree.Element) {
	parent := ref.Parent()
	if parent == nil {
		return
	}
	parent.InsertChildAt(ref.Index()+1, el)
}

// ParagraphText concatenates the text of all runs directly under a
// paragraph, in document order.
func ParagraphText(p *etree.Element) string {
	var sb strings.Builder
	for _, c := range p.ChildElements() {
		if c.Tag == "r" {
			sb.WriteString(RunText(c))
		}
	}
	return sb.String()
}
