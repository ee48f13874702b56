package docxml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Kind identifies the kind of an addressable node.
type Kind string

const (
	KindParagraph Kind = "p"
	KindRun       Kind = "r"
	KindTable     Kind = "tbl"
	KindCell      Kind = "tc"
)

// Node is one addressable position in a document body.
//
// ID is assigned from a single monotonically increasing counter, prefixed by
// the node kind, and is only valid for the index (or render pass) that
// produced it. Path encodes the node's structural position from the body
// root and is stable as long as the tree structure does not change.
//
// Depth is 1 for body-level content and grows by one on entry to each table;
// a table element and its cells share the incremented value.
type Node struct {
	Kind  Kind
	ID    string
	Path  string
	Depth int
	Elem  *etree.Element

	// Paragraph is the owning w:p for run nodes, nil otherwise.
	Paragraph *etree.Element
}

// Index is the id- and path-addressable view of one document body, built by
// a structural walk in document order. The insertion engine resolves binding
// locators against an Index built from the same traversal rules the renderer
// uses, so ids line up between the rendered HTML and the engine as long as
// both operate on a structurally identical tree.
type Index struct {
	Nodes  []Node
	ByID   map[string]Node
	ByPath map[string]Node
	byElem map[*etree.Element]Node
}

// BuildIndex walks a w:body and assigns ids and paths to every paragraph,
// run, table and cell in document order.
func BuildIndex(body *etree.Element) *Index {
	ix := &Index{
		ByID:   make(map[string]Node),
		ByPath: make(map[string]Node),
		byElem: make(map[*etree.Element]Node),
	}
	if body != nil {
		w := &walker{ix: ix}
		w.container(body, "", 1)
	}
	return ix
}

// Of returns the addressing of a specific element in the walked tree.
func (ix *Index) Of(el *etree.Element) (Node, bool) {
	n, ok := ix.byElem[el]
	return n, ok
}

// Resolve looks a locator up as an element id first, then as a docx path.
func (ix *Index) Resolve(locator string) (Node, bool) {
	if n, ok := ix.ByID[locator]; ok {
		return n, true
	}
	n, ok := ix.ByPath[locator]
	return n, ok
}

type walker struct {
	ix   *Index
	next int
}

func (w *walker) id(kind Kind) string {
	w.next++
	return fmt.Sprintf("%s-%d", kind, w.next)
}

func (w *walker) add(n Node) {
	w.ix.Nodes = append(w.ix.Nodes, n)
	w.ix.ByID[n.ID] = n
	w.ix.ByPath[n.Path] = n
	w.ix.byElem[n.Elem] = n
}

// container walks the direct children of a body or cell element. Paragraphs
// and tables keep separate per-level indices, matching the path convention
// p[i] / tbl[i].
func (w *walker) container(el *etree.Element, prefix string, depth int) {
	pIdx, tblIdx := 0, 0
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "p":
			w.paragraph(child, joinPath(prefix, fmt.Sprintf("p[%d]", pIdx)), depth)
			pIdx++
		case "tbl":
			w.table(child, joinPath(prefix, fmt.Sprintf("tbl[%d]", tblIdx)), depth)
			tblIdx++
		}
	}
}

func (w *walker) paragraph(p *etree.Element, path string, depth int) {
	w.add(Node{Kind: KindParagraph, ID: w.id(KindParagraph), Path: path, Depth: depth, Elem: p})
	rIdx := 0
	for _, child := range p.ChildElements() {
		if child.Tag != "r" {
			continue
		}
		w.add(Node{
			Kind:      KindRun,
			ID:        w.id(KindRun),
			Path:      joinPath(path, fmt.Sprintf("r[%d]", rIdx)),
			Depth:     depth,
			Elem:      child,
			Paragraph: p,
		})
		rIdx++
	}
}

func (w *walker) table(tbl *etree.Element, path string, depth int) {
	// Entering a table increments the nesting depth; the table node and its
	// cells share the incremented value.
	inner := depth + 1
	w.add(Node{Kind: KindTable, ID: w.id(KindTable), Path: path, Depth: inner, Elem: tbl})
	for trIdx, tr := range childrenByTag(tbl, "tr") {
		for tcIdx, tc := range childrenByTag(tr, "tc") {
			cellPath := joinPath(path, fmt.Sprintf("tr[%d].tc[%d]", trIdx, tcIdx))
			w.add(Node{Kind: KindCell, ID: w.id(KindCell), Path: cellPath, Depth: inner, Elem: tc})
			w.container(tc, cellPath, inner)
		}
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// MaxAllowedDepth converts the configured maximum table nesting level into
// the deepest Node.Depth that remains mappable.
func MaxAllowedDepth(maxTableNestingLevel int) int {
	return maxTableNestingLevel + 1
}

// DescribeNestingLimit renders a configured nesting level in human terms,
// for mapping-rejection messages.
func DescribeNestingLimit(maxTableNestingLevel int) string {
	switch maxTableNestingLevel {
	case 0:
		return "only content outside tables is mappable"
	case 1:
		return "only top-level table allowed"
	case 2:
		return "top-level table and one level of nesting"
	default:
		return fmt.Sprintf("top-level table and %d levels of nesting", maxTableNestingLevel-1)
	}
}

// PathDepth derives the nesting depth encoded in a docx path: 1 plus the
// number of table segments it crosses.
func PathDepth(path string) int {
	return 1 + strings.Count(path, "tbl[")
}
