package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/Leolion08/ctom-sub000/internal/docxml/docxtest"
)

func renderMapping(t *testing.T, bodyXML string) string {
	t.Helper()
	out, err := HTML(docxtest.Bytes(t, bodyXML), Options{MaxTableNestingLevel: 1, Mapping: true})
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	return out
}

func renderView(t *testing.T, bodyXML string) string {
	t.Helper()
	out, err := HTML(docxtest.Bytes(t, bodyXML), Options{MaxTableNestingLevel: 1})
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	return out
}

func TestRenderViewCarriesNoAddressingMetadata(t *testing.T) {
	bodyXML := docxtest.Paragraph("Hello <<Name>>") + docxtest.Table(docxtest.Paragraph("cell"))
	out := renderView(t, bodyXML)
	for _, forbidden := range []string{"data-element-id", "data-docx-path", "data-mappable", "data-nested-depth", "merge-field", "contenteditable"} {
		if strings.Contains(out, forbidden) {
			t.Errorf("view output contains %q:\n%s", forbidden, out)
		}
	}
	if !strings.Contains(out, "Hello &lt;&lt;Name&gt;&gt;") {
		t.Errorf("view output lost the literal token:\n%s", out)
	}
}

func TestRenderMappingAnnotatesEveryBlock(t *testing.T) {
	bodyXML := docxtest.Paragraph("Hello") + docxtest.Table(docxtest.Paragraph("cell"))
	out := renderMapping(t, bodyXML)
	for _, want := range []string{
		`data-element-id="p-`,
		`data-element-id="r-`,
		`data-element-id="tbl-`,
		`data-element-id="tc-`,
		`data-docx-path="p[0]"`,
		`data-docx-path="tbl[0]"`,
		`data-docx-path="tbl[0].tr[0].tc[0].p[0]"`,
		`data-nested-depth="1"`,
		`data-nested-depth="2"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mapping output missing %q:\n%s", want, out)
		}
	}
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func TestRenderViewAndMappingShareVisibleText(t *testing.T) {
	// Mapping mode only adds markup around the same text the view shows:
	// stripping tags from both renders must leave identical content. Bullets
	// and checkboxes are excluded here since their glyphs legitimately differ
	// between the modes.
	bodyXML := docxtest.Paragraph("Kính gửi <<CustomerName>>, trân trọng") +
		docxtest.Runs("  số tiền: ", "<<Amount>>", "\t") +
		docxtest.Table(docxtest.Paragraph("ô bảng"), docxtest.Paragraph("giá trị.....:")) +
		`<w:p/>`

	view := htmlTagRe.ReplaceAllString(renderView(t, bodyXML), "")
	mapping := htmlTagRe.ReplaceAllString(renderMapping(t, bodyXML), "")
	if view != mapping {
		t.Fatalf("visible text differs between modes:\nview:    %q\nmapping: %q", view, mapping)
	}
}

func TestRenderDeterministic(t *testing.T) {
	bodyXML := docxtest.Paragraph("a") + docxtest.Table(docxtest.Paragraph("b")) + docxtest.Paragraph("c")
	first := renderMapping(t, bodyXML)
	second := renderMapping(t, bodyXML)
	if first != second {
		t.Fatal("two renders of the same document differ")
	}
}

func TestRenderNestingLimitMarksDeepContent(t *testing.T) {
	inner := docxtest.Table(docxtest.Paragraph("deep"))
	out := renderMapping(t, docxtest.Paragraph("top")+docxtest.Table(inner))

	if !strings.Contains(out, `data-mappable="true"`) {
		t.Errorf("no mappable content found:\n%s", out)
	}
	if !strings.Contains(out, `data-mappable="false" data-nested-depth="3"`) {
		t.Errorf("depth-3 content not marked unmappable:\n%s", out)
	}
}

func TestRenderPlaceholderTokensHighlighted(t *testing.T) {
	out := renderMapping(t, docxtest.Paragraph("Dear <<CustomerName>>, welcome"))
	want := `<span class="merge-field" data-field="CustomerName" contenteditable="false">&lt;&lt;CustomerName&gt;&gt;</span>`
	if !strings.Contains(out, want) {
		t.Fatalf("mapping output missing placeholder span:\n%s", out)
	}
}

func TestRenderDotLeaderCollapses(t *testing.T) {
	out := renderView(t, docxtest.Paragraph("Tên khách hàng..........: "))
	if strings.Contains(out, "...") {
		t.Fatalf("leader dots survived:\n%s", out)
	}
	if !strings.Contains(out, "Tên khách hàng    :") {
		t.Fatalf("leader gap missing:\n%s", out)
	}
}

func TestRenderTabOnlyRun(t *testing.T) {
	bodyXML := `<w:p><w:r><w:tab/><w:tab/></w:r></w:p>`
	out := renderView(t, bodyXML)
	if got := strings.Count(out, `<span class="docx-tab">`); got != 2 {
		t.Fatalf("tab span count = %d, want 2:\n%s", got, out)
	}
}

func TestRenderEmptyParagraph(t *testing.T) {
	out := renderView(t, `<w:p/>`)
	if !strings.Contains(out, ">&nbsp;</p>") {
		t.Fatalf("empty paragraph not held open:\n%s", out)
	}
}

func TestRenderEmptyCellGetsAddressableParagraph(t *testing.T) {
	bodyXML := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="1000"/></w:tblGrid><w:tr><w:tc><w:tcPr/></w:tc></w:tr></w:tbl>`
	out := renderMapping(t, bodyXML)
	if !strings.Contains(out, `data-docx-path="tbl[0].tr[0].tc[0].p[0]"`) {
		t.Fatalf("empty cell has no addressable paragraph:\n%s", out)
	}
}

func TestRenderCheckboxGlyphRun(t *testing.T) {
	bodyXML := docxtest.Paragraph("☐")
	if out := renderMapping(t, bodyXML); !strings.Contains(out, `<span class="docx-checkbox" data-mappable="false">☐</span>`) {
		t.Errorf("mapping output missing checkbox span:\n%s", out)
	}
	if out := renderView(t, bodyXML); !strings.Contains(out, "☐") || strings.Contains(out, "docx-checkbox") {
		t.Errorf("view output should carry the bare glyph:\n%s", out)
	}
}

func TestRenderListBullet(t *testing.T) {
	bodyXML := `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>item</w:t></w:r></w:p>`
	if out := renderMapping(t, bodyXML); !strings.Contains(out, `<span class="docx-bullet" data-mappable="false">•&nbsp;</span>`) {
		t.Errorf("mapping output missing bullet span:\n%s", out)
	}
	if out := renderView(t, bodyXML); !strings.Contains(out, ">- <span") {
		t.Errorf("view output should normalize the bullet to a dash:\n%s", out)
	}
}

func TestRenderTableBorders(t *testing.T) {
	out := renderView(t, docxtest.Table(docxtest.Paragraph("x")))
	if !strings.Contains(out, "border-collapse:collapse") {
		t.Errorf("bordered table missing border-collapse:\n%s", out)
	}
	if !strings.Contains(out, "border:0.5pt solid #c0c0c0") {
		t.Errorf("cell without own borders missing default border:\n%s", out)
	}

	plain := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="1000"/></w:tblGrid><w:tr><w:tc><w:tcPr/><w:p><w:r><w:t>x</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`
	out = renderView(t, plain)
	if strings.Contains(out, "border:0.5pt") {
		t.Errorf("borderless table got default cell borders:\n%s", out)
	}
}

func TestRenderColgroupProportions(t *testing.T) {
	bodyXML := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="3000"/><w:gridCol w:w="1000"/></w:tblGrid><w:tr><w:tc><w:tcPr/><w:p/></w:tc><w:tc><w:tcPr/><w:p/></w:tc></w:tr></w:tbl>`
	out := renderView(t, bodyXML)
	if !strings.Contains(out, `width:75.0%`) || !strings.Contains(out, `width:25.0%`) {
		t.Fatalf("column widths not proportional:\n%s", out)
	}
}

func TestRenderMalformedNumericAttributes(t *testing.T) {
	// A width with trailing junk is not a number; the column contributes
	// nothing instead of its numeric prefix.
	bodyXML := `<w:tbl><w:tblPr/><w:tblGrid><w:gridCol w:w="3000abc"/><w:gridCol w:w="1000"/></w:tblGrid><w:tr><w:tc><w:tcPr/><w:p/></w:tc><w:tc><w:tcPr/><w:p/></w:tc></w:tr></w:tbl>`
	out := renderView(t, bodyXML)
	if !strings.Contains(out, `width:0.0%`) || !strings.Contains(out, `width:100.0%`) {
		t.Fatalf("malformed width was not discarded:\n%s", out)
	}
	if strings.Contains(out, `width:75.0%`) {
		t.Fatalf("numeric prefix of malformed width was accepted:\n%s", out)
	}
}

func TestHardenSpaces(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{" a", "\u00a0a"},
		{"a ", "a\u00a0"},
		{"a b", "a b"},
		{"a  b", "a\u00a0\u00a0b"},
		{"  a b  ", "\u00a0\u00a0a b\u00a0\u00a0"},
	}
	for _, tc := range cases {
		if got := hardenSpaces(tc.in); got != tc.want {
			t.Errorf("hardenSpaces(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderPreservedSpacesHardened(t *testing.T) {
	bodyXML := `<w:p><w:r><w:t xml:space="preserve">  ký tên  </w:t></w:r></w:p>`
	out := renderView(t, bodyXML)
	if !strings.Contains(out, "\u00a0\u00a0ký tên\u00a0\u00a0") {
		t.Fatalf("preserved spaces not hardened:\n%s", out)
	}
}
