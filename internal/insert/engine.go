// Package insert splices placeholder tokens into DOCX documents at
// structurally addressed positions. Bindings carry a locator (element id or
// docx path), a character offset, and the field to place there; the engine
// resolves locators against a fresh structural index of the document and
// rewrites only the runs an insertion actually touches.
package insert

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/Leolion08/ctom-sub000/internal/docxml"
	"github.com/Leolion08/ctom-sub000/internal/field"
)

// Binding positions one field inside a document.
type Binding struct {
	// Locator is an element id (valid only against the render pass that
	// produced it) or a docx path.
	Locator string `json:"locator"`
	// Offset is the character offset into the target paragraph's
	// concatenated run text. Tabs count as one character. Offsets past the
	// end clamp to the end.
	Offset int `json:"offset"`
	// FieldName must match the field name grammar; the inserted token is
	// <<FieldName>>.
	FieldName string `json:"fieldName"`
	// NestedDepth is the depth the caller saw when the position was picked.
	// Zero means unknown, in which case the resolved node's depth is used.
	NestedDepth int `json:"nestedDepth"`
	// Seq breaks ties between bindings that share a locator and offset:
	// lower Seq lands further left.
	Seq int `json:"seq"`
}

// Result reports what an insertion batch did.
type Result struct {
	Data       []byte
	Inserted   int
	Unresolved []string
}

// NestingLimitError rejects a whole batch when any binding targets a
// position nested deeper than the configured table nesting level allows.
// No insertion from the batch is applied.
type NestingLimitError struct {
	Fields               []string
	MaxTableNestingLevel int
}

func (e *NestingLimitError) Error() string {
	return fmt.Sprintf("insertion rejected for %s: nesting limit is %d (%s)",
		strings.Join(e.Fields, ", "),
		e.MaxTableNestingLevel,
		docxml.DescribeNestingLimit(e.MaxTableNestingLevel))
}

// Engine inserts placeholder tokens into documents.
type Engine struct {
	// MaxTableNestingLevel bounds how deep inside nested tables an
	// insertion may land. 0 allows body-level content only.
	MaxTableNestingLevel int
	Log                  *slog.Logger
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// resolved pairs a binding with the node its locator named.
type resolved struct {
	b    Binding
	node docxml.Node
}

// Insert applies a batch of bindings to a document and returns the new
// document bytes. Nesting violations reject the whole batch before any
// mutation. Bindings whose locator no longer resolves (stale ids after a
// structural edit) are skipped and reported in Result.Unresolved.
func (e *Engine) Insert(data []byte, bindings []Binding) (*Result, error) {
	for _, b := range bindings {
		if !field.ValidName(b.FieldName) {
			return nil, fmt.Errorf("invalid field name %q", b.FieldName)
		}
	}

	doc, err := docxml.FromBytes(data)
	if err != nil {
		return nil, err
	}
	body, err := doc.Body()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("document has no body")
	}
	docxml.EnsureCellParagraphs(body)
	ix := docxml.BuildIndex(body)

	var (
		hits       []resolved
		unresolved []string
		tooDeep    []string
	)
	maxDepth := docxml.MaxAllowedDepth(e.MaxTableNestingLevel)
	for _, b := range bindings {
		node, ok := ix.Resolve(b.Locator)
		if !ok {
			e.log().Warn("binding locator did not resolve",
				"locator", b.Locator, "field", b.FieldName)
			unresolved = append(unresolved, b.FieldName)
			continue
		}
		depth := b.NestedDepth
		if depth <= 0 {
			depth = node.Depth
		}
		if depth > maxDepth || node.Depth > maxDepth {
			tooDeep = append(tooDeep, b.FieldName)
			continue
		}
		if node.Kind != docxml.KindParagraph && node.Kind != docxml.KindRun {
			e.log().Warn("binding locator names a non-insertable node",
				"locator", b.Locator, "kind", string(node.Kind))
			unresolved = append(unresolved, b.FieldName)
			continue
		}
		hits = append(hits, resolved{b: b, node: node})
	}
	if len(tooDeep) > 0 {
		sort.Strings(tooDeep)
		return nil, &NestingLimitError{Fields: tooDeep, MaxTableNestingLevel: e.MaxTableNestingLevel}
	}

	inserted := 0
	for _, group := range groupByParagraph(hits) {
		inserted += e.applyToParagraph(doc, group)
	}

	if inserted > 0 {
		doc.MarkDirty(docxml.MainPart)
	}
	out, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	return &Result{Data: out, Inserted: inserted, Unresolved: unresolved}, nil
}

// paragraphGroup collects every binding that lands in one paragraph, with
// run-locator offsets already translated to paragraph offsets.
type paragraphGroup struct {
	para *etree.Element
	ins  []insertion
}

func groupByParagraph(hits []resolved) []paragraphGroup {
	var groups []paragraphGroup
	byPara := make(map[*etree.Element]int)
	for _, h := range hits {
		para := h.node.Elem
		base := 0
		if h.node.Kind == docxml.KindRun {
			para = h.node.Paragraph
			base = runStartOffset(para, h.node.Elem)
		}
		gi, ok := byPara[para]
		if !ok {
			gi = len(groups)
			byPara[para] = gi
			groups = append(groups, paragraphGroup{para: para})
		}
		groups[gi].ins = append(groups[gi].ins, insertion{
			offset: base + h.b.Offset,
			seq:    h.b.Seq,
			token:  field.Token(h.b.FieldName),
		})
	}
	return groups
}

// runStartOffset is the paragraph offset at which a run's text begins.
func runStartOffset(para, run *etree.Element) int {
	off := 0
	for _, r := range docxml.ChildrenByTag(para, "r") {
		if r == run {
			break
		}
		off += len([]rune(docxml.RunText(r)))
	}
	return off
}

// applyToParagraph rewrites one paragraph's runs per the insertion plan.
// Runs the plan leaves intact keep their original elements untouched, so
// formatting and non-text run content survive.
func (e *Engine) applyToParagraph(doc *docxml.Document, g paragraphGroup) int {
	runs := docxml.ChildrenByTag(g.para, "r")
	texts := make([]string, len(runs))
	for i, r := range runs {
		texts[i] = docxml.RunText(r)
	}

	plan := planInsertions(texts, g.ins)

	var anchor *etree.Element
	seen := make(map[int]bool)
	for _, pc := range plan {
		switch {
		case pc.placeholder:
			run := docxml.NewRun(pc.text, e.placeholderProps(doc, runs, pc.source))
			e.attach(g.para, anchor, run)
			anchor = run
		case !seen[pc.source]:
			seen[pc.source] = true
			orig := runs[pc.source]
			if pc.text != texts[pc.source] {
				docxml.SetRunContent(orig, pc.text)
			}
			anchor = orig
		default:
			// Tail of a split run: a fresh element with copied properties.
			run := docxml.NewRun(pc.text, docxml.RunPropsCopy(runs[pc.source]))
			e.attach(g.para, anchor, run)
			anchor = run
		}
	}
	return len(g.ins)
}

func (e *Engine) attach(para, anchor, run *etree.Element) {
	if anchor != nil {
		docxml.InsertAfter(anchor, run)
		return
	}
	// No preceding run: place before the first existing run, or at the end
	// of the paragraph (after pPr) when it has none.
	if first := docxml.ChildByTag(para, "r"); first != nil {
		para.InsertChildAt(first.Index(), run)
		return
	}
	para.AddChild(run)
}

// placeholderProps picks the run properties for an inserted token: a copy of
// the properties of the run the token splices into, or the document's
// default run properties when the paragraph has no runs at all.
func (e *Engine) placeholderProps(doc *docxml.Document, runs []*etree.Element, source int) *etree.Element {
	if source >= 0 && source < len(runs) {
		if rPr := docxml.RunPropsCopy(runs[source]); rPr != nil {
			return rPr
		}
	}
	return doc.Styles().DefaultRunProperties()
}
