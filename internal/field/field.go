// Package field defines the placeholder token convention shared by the
// renderer, the insertion engine, the merge renderer and the DOCX export.
//
// A mapped field lives inside a document as the literal text <<FieldName>>.
// No out-of-band registry of field positions exists: the document itself is
// the registry, and TokenRe is the single source of truth for finding them.
package field

import "regexp"

// NameRe matches a complete, valid field name.
var NameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// TokenRe matches an embedded placeholder token and captures the field name.
// The delimiter pair and character class must not change: the same pattern is
// applied by highlighting, merge and re-mapping against stored documents.
var TokenRe = regexp.MustCompile(`<<([A-Za-z0-9_]+)>>`)

// Token returns the placeholder text for a field name.
func Token(name string) string {
	return "<<" + name + ">>"
}

// ValidName reports whether name is usable as a field name.
func ValidName(name string) bool {
	return NameRe.MatchString(name)
}

// Type describes how a field value is formatted during merge.
type Type string

const (
	TypeText   Type = "TEXT"
	TypeNumber Type = "NUMBER"
	TypeDate   Type = "DATE"
)

// Def declares a data-entry field on a template.
type Def struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Label string `json:"label,omitempty"`
}

// Names extracts all distinct field names from text, in first-seen order.
func Names(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range TokenRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
