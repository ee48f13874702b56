package insert

import (
	"errors"
	"testing"

	"github.com/beevik/etree"

	"github.com/Leolion08/ctom-sub000/internal/docxml"
	"github.com/Leolion08/ctom-sub000/internal/docxml/docxtest"
)

// indexOf builds the structural index a caller would have been handed by a
// mapping render of the same bytes.
func indexOf(t *testing.T, data []byte) *docxml.Index {
	t.Helper()
	doc, err := docxml.FromBytes(data)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	body, err := doc.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	docxml.EnsureCellParagraphs(body)
	return docxml.BuildIndex(body)
}

func firstOfKind(t *testing.T, ix *docxml.Index, kind docxml.Kind) docxml.Node {
	t.Helper()
	for _, n := range ix.Nodes {
		if n.Kind == kind {
			return n
		}
	}
	t.Fatalf("no %s node in index", kind)
	return docxml.Node{}
}

func paragraphTexts(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := docxml.FromBytes(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	body, err := doc.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	var out []string
	for _, p := range docxml.ChildrenByTag(body, "p") {
		out = append(out, docxml.ParagraphText(p))
	}
	return out
}

func TestInsertAtStartMiddleEnd(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Paragraph("Hello"))
	ix := indexOf(t, data)
	p := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: p.ID, Offset: 0, FieldName: "A", Seq: 1},
		{Locator: p.ID, Offset: 5, FieldName: "B", Seq: 2},
		{Locator: p.ID, Offset: 2, FieldName: "C", Seq: 3},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res.Inserted != 3 {
		t.Fatalf("Inserted = %d, want 3", res.Inserted)
	}
	if len(res.Unresolved) != 0 {
		t.Fatalf("Unresolved = %v, want none", res.Unresolved)
	}
	got := paragraphTexts(t, res.Data)
	want := "<<A>>He<<C>>llo<<B>>"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("paragraph text = %q, want %q", got, want)
	}
}

func TestInsertByPathLocator(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Paragraph("one")+docxtest.Paragraph("two"))
	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: "p[1]", Offset: 3, FieldName: "Tail", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got := paragraphTexts(t, res.Data)
	if got[0] != "one" || got[1] != "two<<Tail>>" {
		t.Fatalf("paragraph texts = %q", got)
	}
}

func TestInsertRunLocatorOffsetIsRunRelative(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Runs("AB", "CD"))
	ix := indexOf(t, data)
	var second docxml.Node
	count := 0
	for _, n := range ix.Nodes {
		if n.Kind == docxml.KindRun {
			count++
			if count == 2 {
				second = n
			}
		}
	}
	if count != 2 {
		t.Fatalf("index has %d runs, want 2", count)
	}

	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: second.ID, Offset: 1, FieldName: "M", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got := paragraphTexts(t, res.Data)
	if got[0] != "ABC<<M>>D" {
		t.Fatalf("paragraph text = %q, want %q", got[0], "ABC<<M>>D")
	}
}

func TestInsertLeavesUntouchedRunsAlone(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Runs("AB", "CD"))
	ix := indexOf(t, data)
	p := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: p.ID, Offset: 3, FieldName: "M", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	doc, err := docxml.FromBytes(res.Data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	body, _ := doc.Body()
	para := docxml.ChildByTag(body, "p")
	runs := docxml.ChildrenByTag(para, "r")
	var texts []string
	for _, r := range runs {
		texts = append(texts, docxml.RunText(r))
	}
	want := []string{"AB", "C", "<<M>>", "D"}
	if len(texts) != len(want) {
		t.Fatalf("run texts = %q, want %q", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("run texts = %q, want %q", texts, want)
		}
	}
}

func TestInsertNestingLimitRejectsWholeBatch(t *testing.T) {
	inner := docxtest.Table(docxtest.Paragraph("deep"))
	body := docxtest.Paragraph("surface") + docxtest.Table(inner)
	data := docxtest.Bytes(t, body)

	ix := indexOf(t, data)
	var deepPara docxml.Node
	for _, n := range ix.Nodes {
		if n.Kind == docxml.KindParagraph && n.Depth == 3 {
			deepPara = n
		}
	}
	if deepPara.ID == "" {
		t.Fatal("no paragraph at depth 3 in fixture")
	}
	surface := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	_, err := eng.Insert(data, []Binding{
		{Locator: surface.ID, Offset: 0, FieldName: "Ok", Seq: 1},
		{Locator: deepPara.ID, Offset: 0, FieldName: "TooDeep", Seq: 2},
	})
	var nle *NestingLimitError
	if !errors.As(err, &nle) {
		t.Fatalf("err = %v, want NestingLimitError", err)
	}
	if len(nle.Fields) != 1 || nle.Fields[0] != "TooDeep" {
		t.Fatalf("Fields = %v, want [TooDeep]", nle.Fields)
	}
	// The valid binding from the batch must not have been applied either.
	got := paragraphTexts(t, data)
	if got[0] != "surface" {
		t.Fatalf("source document changed: %q", got[0])
	}
}

func TestInsertClaimedDepthIsChecked(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Paragraph("Hello"))
	ix := indexOf(t, data)
	p := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	_, err := eng.Insert(data, []Binding{
		{Locator: p.ID, Offset: 0, FieldName: "F", NestedDepth: 3, Seq: 1},
	})
	var nle *NestingLimitError
	if !errors.As(err, &nle) {
		t.Fatalf("err = %v, want NestingLimitError", err)
	}
}

func TestInsertSkipsUnresolvedLocators(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Paragraph("Hello"))
	ix := indexOf(t, data)
	p := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: p.ID, Offset: 0, FieldName: "Good", Seq: 1},
		{Locator: "p-9999", Offset: 0, FieldName: "Ghost", Seq: 2},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", res.Inserted)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "Ghost" {
		t.Fatalf("Unresolved = %v, want [Ghost]", res.Unresolved)
	}
	got := paragraphTexts(t, res.Data)
	if got[0] != "<<Good>>Hello" {
		t.Fatalf("paragraph text = %q", got[0])
	}
}

func TestInsertIntoEmptyParagraphUsesDefaultProperties(t *testing.T) {
	data := docxtest.Bytes(t, `<w:p/>`)
	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: "p[0]", Offset: 0, FieldName: "Lonely", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	doc, err := docxml.FromBytes(res.Data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	body, _ := doc.Body()
	para := docxml.ChildByTag(body, "p")
	run := docxml.ChildByTag(para, "r")
	if run == nil {
		t.Fatal("no run created in empty paragraph")
	}
	if docxml.RunText(run) != "<<Lonely>>" {
		t.Fatalf("run text = %q", docxml.RunText(run))
	}
	if docxml.ChildByTag(run, "rPr") == nil {
		t.Fatal("inserted run has no run properties")
	}
}

func TestInsertCopiesSourceRunProperties(t *testing.T) {
	body := `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Hi</w:t></w:r></w:p>`
	data := docxtest.Bytes(t, body)
	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: "p[0]", Offset: 1, FieldName: "F", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	doc, err := docxml.FromBytes(res.Data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	body2, _ := doc.Body()
	para := docxml.ChildByTag(body2, "p")
	var placeholder *etree.Element
	for _, r := range docxml.ChildrenByTag(para, "r") {
		if docxml.RunText(r) == "<<F>>" {
			placeholder = r
		}
	}
	if placeholder == nil {
		t.Fatal("placeholder run not found")
	}
	rPr := docxml.ChildByTag(placeholder, "rPr")
	if rPr == nil || docxml.ChildByTag(rPr, "b") == nil {
		t.Fatal("placeholder run did not inherit bold from its source run")
	}
}

func TestInsertRejectsInvalidFieldName(t *testing.T) {
	data := docxtest.Bytes(t, docxtest.Paragraph("Hello"))
	eng := &Engine{MaxTableNestingLevel: 1}
	if _, err := eng.Insert(data, []Binding{
		{Locator: "p[0]", Offset: 0, FieldName: "bad name", Seq: 1},
	}); err == nil {
		t.Fatal("expected error for invalid field name")
	}
}

func TestInsertIntoSynthesizedCellParagraph(t *testing.T) {
	// A cell with no paragraph gets one synthesized, with the same path the
	// renderer reports for it.
	body := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="2400"/></w:tblGrid><w:tr><w:tc><w:tcPr/></w:tc></w:tr></w:tbl>`
	data := docxtest.Bytes(t, body)
	ix := indexOf(t, data)
	p := firstOfKind(t, ix, docxml.KindParagraph)

	eng := &Engine{MaxTableNestingLevel: 1}
	res, err := eng.Insert(data, []Binding{
		{Locator: p.Path, Offset: 0, FieldName: "CellField", Seq: 1},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if res.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", res.Inserted)
	}
	ix2 := indexOf(t, res.Data)
	n, ok := ix2.ByPath[p.Path]
	if !ok {
		t.Fatalf("path %q missing after insertion", p.Path)
	}
	if got := docxml.ParagraphText(n.Elem); got != "<<CellField>>" {
		t.Fatalf("cell paragraph text = %q", got)
	}
}
