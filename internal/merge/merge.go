// Package merge fills rendered template HTML and DOCX documents with field
// values. The HTML side works on the parsed node tree, so only spans the
// renderer emitted as placeholders are touched; placeholder-shaped text that
// happens to appear in document content is left alone.
package merge

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/Leolion08/ctom-sub000/internal/field"
)

const (
	classField = "merge-field"
	classValue = "merge-value"
	classEmpty = "merge-empty"
)

// RenderHTML substitutes values into a mapping-rendered HTML fragment.
// Every span carrying the merge-field class is rewritten: fields with a
// value become merge-value spans holding the formatted value, fields
// without one become merge-empty spans holding the literal token, which
// keeps unfilled positions visible for review.
func RenderHTML(fragment string, fields []field.Def, values map[string]string) (string, error) {
	types := make(map[string]field.Type, len(fields))
	for _, f := range fields {
		types[f.Name] = f.Type
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", err
	}

	for _, n := range nodes {
		walkFields(n, func(span *html.Node, name string) {
			raw, ok := values[name]
			if ok && raw != "" {
				setClass(span, classField, classValue)
				setText(span, FormatValue(types[name], raw))
				return
			}
			setClass(span, classField, classEmpty)
			setText(span, field.Token(name))
		})
	}

	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// walkFields visits every merge-field span under n in document order.
func walkFields(n *html.Node, fn func(span *html.Node, name string)) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Span && hasClass(n, classField) {
		if name := attr(n, "data-field"); name != "" {
			fn(n, name)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkFields(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func setClass(n *html.Node, from, to string) {
	for i, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		classes := strings.Fields(a.Val)
		for j, c := range classes {
			if c == from {
				classes[j] = to
			}
		}
		n.Attr[i].Val = strings.Join(classes, " ")
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: to})
}

func setText(n *html.Node, text string) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
