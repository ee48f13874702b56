// Package render converts a DOCX body into an HTML fragment.
//
// Two modes exist. View mode emits plain markup for human preview. Mapping
// mode additionally annotates every paragraph, run, table and cell with the
// addressing attributes (data-element-id, data-docx-path, data-mappable,
// data-nested-depth) the mapping UI uses to let a user pick an insertion
// point. The attribute values come from the same structural walk the
// insertion engine replays, so a mapping-mode id resolves to the same node
// when the binding payload comes back.
package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/Leolion08/ctom-sub000/internal/docxml"
	"github.com/Leolion08/ctom-sub000/internal/field"
)

// Options configures one render pass.
type Options struct {
	// MaxTableNestingLevel bounds how deep inside nested tables content may
	// still be mapped. 0 permits body-level content only.
	MaxTableNestingLevel int
	// Mapping selects mapping mode; false renders the plain view.
	Mapping bool
}

// HTML renders a DOCX byte buffer to an HTML fragment. A document whose
// main part has no body yields an empty string; a buffer that cannot be
// opened at all is an error.
func HTML(data []byte, opts Options) (string, error) {
	doc, err := docxml.FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return Document(doc, opts)
}

// Document renders an already-open package. The element-id counter and node
// index are scoped to this call; two concurrent renders never share state.
func Document(doc *docxml.Document, opts Options) (string, error) {
	body, err := doc.Body()
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	if body == nil {
		return "", nil
	}

	docxml.EnsureCellParagraphs(body)

	r := &renderer{
		doc:       doc,
		styles:    doc.Styles(),
		numbering: doc.NumberingDefs(),
		ix:        docxml.BuildIndex(body),
		opts:      opts,
	}
	r.container(body)
	return r.sb.String(), nil
}

type renderer struct {
	doc       *docxml.Document
	styles    *docxml.Stylesheet
	numbering *docxml.Numbering
	ix        *docxml.Index
	opts      Options
	sb        strings.Builder
}

func (r *renderer) mappable(depth int) bool {
	return depth <= docxml.MaxAllowedDepth(r.opts.MaxTableNestingLevel)
}

// addrAttrs emits the mapping-mode addressing attributes for a node. View
// mode emits nothing: the two modes fork strictly on metadata.
func (r *renderer) addrAttrs(n docxml.Node) string {
	if !r.opts.Mapping {
		return ""
	}
	return fmt.Sprintf(` data-element-id=%q data-docx-path=%q data-mappable="%t" data-nested-depth="%d"`,
		n.ID, n.Path, r.mappable(n.Depth), n.Depth)
}

func (r *renderer) container(el *etree.Element) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "p":
			r.paragraph(child)
		case "tbl":
			r.table(child)
		}
	}
}

func (r *renderer) paragraph(p *etree.Element) {
	node, _ := r.ix.Of(p)
	pf := r.styles.ResolveParaFormat(p)

	r.sb.WriteString("<p")
	r.sb.WriteString(r.addrAttrs(node))
	if css := paraStyleCSS(pf); css != "" {
		fmt.Fprintf(&r.sb, " style=%q", css)
	}
	r.sb.WriteString(">")

	if glyph, ok := r.listBullet(p); ok {
		r.bulletSpan(glyph)
	}

	wrote := false
	first := true
	for _, child := range p.ChildElements() {
		switch child.Tag {
		case "r":
			if r.run(child, p, first) {
				wrote = true
			}
			first = false
		case "hyperlink":
			for _, run := range docxml.ChildrenByTag(child, "r") {
				if r.plainRun(run, p) {
					wrote = true
				}
			}
			first = false
		case "sdt":
			if r.structuredTag(child, p) {
				wrote = true
			}
			first = false
		}
	}
	if !wrote {
		r.sb.WriteString("&nbsp;")
	}
	r.sb.WriteString("</p>")
}

// listBullet resolves the paragraph's numbering reference to a bullet glyph.
func (r *renderer) listBullet(p *etree.Element) (string, bool) {
	numID, ilvl, ok := docxml.ParagraphNumbering(p)
	if !ok {
		return "", false
	}
	def, found := r.numbering.Level(numID, ilvl)
	if !found {
		return defaultBulletGlyph, true
	}
	switch def.Format {
	case "bullet":
		if def.Text != "" {
			if g, ok := bulletGlyph(def.Text, def.Font); ok {
				return g, true
			}
			runes := []rune(def.Text)
			if len(runes) == 1 {
				if g, ok := symbolFontGlyph(def.Font, runes[0]); ok {
					return g, true
				}
			}
		}
		return defaultBulletGlyph, true
	case "":
		return defaultBulletGlyph, true
	default:
		// Numbered formats (decimal, lowerRoman, ...) keep a generic marker;
		// computing running counters is out of scope for the mapping view.
		return defaultBulletGlyph, true
	}
}

func (r *renderer) bulletSpan(glyph string) {
	if !r.opts.Mapping {
		// The view normalizes decorative glyphs to a plain dash.
		r.sb.WriteString("- ")
		return
	}
	fmt.Fprintf(&r.sb, `<span class="docx-bullet" data-mappable="false">%s&nbsp;</span>`, html.EscapeString(glyph))
}

// run renders one run and reports whether it emitted visible content.
// Classification priority: checkbox, bullet glyph, image, tab, text.
func (r *renderer) run(run, p *etree.Element, firstRun bool) bool {
	text := docxml.RunText(run)

	if glyph, ok := r.checkboxRun(run, text); ok {
		r.checkboxSpan(glyph)
		return true
	}
	if glyph, ok := r.bulletRun(run, p, text, firstRun); ok {
		r.bulletSpan(glyph)
		return true
	}
	if r.imageRun(run) {
		return true
	}
	if text == "" {
		return false
	}
	if strings.Trim(text, "\t") == "" {
		r.tabSpan(len(text))
		return true
	}

	node, _ := r.ix.Of(run)
	rf := r.styles.ResolveRunFormat(run, p)

	r.sb.WriteString("<span")
	r.sb.WriteString(r.addrAttrs(node))
	fmt.Fprintf(&r.sb, " style=%q>", runStyleCSS(rf))
	r.text(run, text)
	r.sb.WriteString("</span>")
	return true
}

// plainRun renders a run without addressing metadata (hyperlink and
// structured-tag content is never mappable).
func (r *renderer) plainRun(run, p *etree.Element) bool {
	text := docxml.RunText(run)
	if text == "" {
		return false
	}
	rf := r.styles.ResolveRunFormat(run, p)
	fmt.Fprintf(&r.sb, "<span style=%q>", runStyleCSS(rf))
	r.text(run, text)
	r.sb.WriteString("</span>")
	return true
}

// checkboxRun classifies legacy form-field checkboxes, and runs whose text
// is exactly one checkbox glyph.
func (r *renderer) checkboxRun(run *etree.Element, text string) (string, bool) {
	if cb := docxml.DescendantByTag(run, "checkBox"); cb != nil {
		if checked := docxml.ChildByTag(cb, "checked"); checked != nil && docxml.AttrValue(checked, "val") != "0" {
			return "☒", true
		}
		if def := docxml.ChildByTag(cb, "default"); def != nil && docxml.AttrValue(def, "val") == "1" {
			return "☒", true
		}
		return "☐", true
	}
	return checkboxGlyph(text)
}

func (r *renderer) checkboxSpan(glyph string) {
	if !r.opts.Mapping {
		r.sb.WriteString(html.EscapeString(glyph))
		return
	}
	fmt.Fprintf(&r.sb, `<span class="docx-checkbox" data-mappable="false">%s</span>`, html.EscapeString(glyph))
}

// bulletRun classifies bullet glyph runs: a known single-character bullet,
// or a lone "-" opening an indented or numbered paragraph.
func (r *renderer) bulletRun(run, p *etree.Element, text string, firstRun bool) (string, bool) {
	trimmed := strings.TrimSpace(text)
	font := r.styles.ResolveRunFormat(run, p).Font
	if g, ok := bulletGlyph(trimmed, font); ok && trimmed == text {
		return g, true
	}
	if firstRun && trimmed == "-" {
		pf := r.styles.ResolveParaFormat(p)
		_, _, numbered := docxml.ParagraphNumbering(p)
		if numbered || pf.IndentLeft > 0 || pf.FirstLine > 0 || pf.Hanging > 0 {
			return "-", true
		}
	}
	return "", false
}

// imageRun renders an embedded image as an inline base64 img tag. Images
// are never mappable and carry no addressing metadata.
func (r *renderer) imageRun(run *etree.Element) bool {
	drawing := docxml.ChildByTag(run, "drawing")
	if drawing == nil {
		drawing = docxml.ChildByTag(run, "pict")
	}
	if drawing == nil {
		return false
	}
	blip := docxml.DescendantByTag(drawing, "blip")
	if blip == nil {
		// A drawing with no bitmap reference (e.g. a shape) renders nothing.
		return true
	}
	relID := docxml.AttrValue(blip, "embed")
	data, mime, ok := r.doc.MediaBytes(relID)
	if !ok {
		return true
	}
	fmt.Fprintf(&r.sb, `<img class="docx-image" src="data:%s;base64,%s"/>`,
		mime, base64.StdEncoding.EncodeToString(data))
	return true
}

func (r *renderer) tabSpan(n int) {
	for i := 0; i < n; i++ {
		r.sb.WriteString(`<span class="docx-tab">&nbsp;&nbsp;&nbsp;&nbsp;</span>`)
	}
}

// dotLeaderRe matches runs of three or more dot-family characters: leader
// dots authors type to draw fill-in lines.
var dotLeaderRe = regexp.MustCompile(`[.\x{00B7}\x{2024}\x{2025}\x{2026}\x{22EF}\x{FE52}]{3,}`)

// text renders a run's text content: leader dots collapse to a gap,
// preserved spaces harden to non-breaking spaces, and in mapping mode every
// embedded placeholder token is wrapped in a non-editable span carrying its
// field name.
func (r *renderer) text(run *etree.Element, text string) {
	preserve := false
	if t := docxml.ChildByTag(run, "t"); t != nil {
		preserve = docxml.AttrValue(t, "space") == "preserve"
	}

	text = dotLeaderRe.ReplaceAllString(text, "    ")
	text = strings.ReplaceAll(text, "\t", "    ")

	emit := func(segment string) {
		s := html.EscapeString(segment)
		if preserve {
			s = hardenSpaces(s)
		}
		r.sb.WriteString(s)
	}

	if !r.opts.Mapping {
		emit(text)
		return
	}

	last := 0
	for _, m := range field.TokenRe.FindAllStringSubmatchIndex(text, -1) {
		emit(text[last:m[0]])
		name := text[m[2]:m[3]]
		fmt.Fprintf(&r.sb, `<span class="merge-field" data-field="%s" contenteditable="false">%s</span>`,
			name, html.EscapeString(text[m[0]:m[1]]))
		last = m[1]
	}
	emit(text[last:])
}

// hardenSpaces converts leading, trailing and repeated internal spaces to
// non-breaking spaces so HTML whitespace collapsing cannot change the
// visual width of a preserved-space run.
func hardenSpaces(s string) string {
	n := len(s)
	lead := 0
	for lead < n && s[lead] == ' ' {
		lead++
	}
	trail := 0
	for trail < n-lead && s[n-1-trail] == ' ' {
		trail++
	}
	mid := s[lead : n-trail]
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", lead))
	spaces := 0
	for _, c := range mid {
		if c == ' ' {
			spaces++
			continue
		}
		if spaces == 1 {
			sb.WriteByte(' ')
		} else if spaces > 1 {
			sb.WriteString(strings.Repeat(" ", spaces))
		}
		spaces = 0
		sb.WriteRune(c)
	}
	if spaces == 1 {
		sb.WriteByte(' ')
	} else if spaces > 1 {
		sb.WriteString(strings.Repeat(" ", spaces))
	}
	sb.WriteString(strings.Repeat(" ", trail))
	return sb.String()
}

// structuredTag renders a w:sdt: checkbox content controls become fixed
// checkbox spans, everything else renders its content runs unaddressed.
func (r *renderer) structuredTag(sdt, p *etree.Element) bool {
	content := docxml.ChildByTag(sdt, "sdtContent")
	if pr := docxml.ChildByTag(sdt, "sdtPr"); pr != nil {
		if cb := docxml.DescendantByTag(pr, "checkbox"); cb != nil {
			glyph := "☐"
			if checked := docxml.ChildByTag(cb, "checked"); checked != nil && docxml.AttrValue(checked, "val") == "1" {
				glyph = "☒"
			}
			r.checkboxSpan(glyph)
			return true
		}
	}
	if content == nil {
		return false
	}
	wrote := false
	for _, run := range docxml.ChildrenByTag(content, "r") {
		if r.plainRun(run, p) {
			wrote = true
		}
	}
	return wrote
}

func (r *renderer) table(tbl *etree.Element) {
	node, _ := r.ix.Of(tbl)
	hasBorders := tableHasBorders(tbl)

	r.sb.WriteString("<table")
	r.sb.WriteString(r.addrAttrs(node))
	if hasBorders {
		r.sb.WriteString(` style="border-collapse:collapse;width:100%"`)
	} else {
		r.sb.WriteString(` style="width:100%"`)
	}
	r.sb.WriteString(">")

	r.colgroup(tbl)

	for _, tr := range docxml.ChildrenByTag(tbl, "tr") {
		r.sb.WriteString("<tr>")
		for _, tc := range docxml.ChildrenByTag(tr, "tc") {
			r.cell(tc, hasBorders)
		}
		r.sb.WriteString("</tr>")
	}
	r.sb.WriteString("</table>")
}

// colgroup converts the table's absolute column-width grid to percentages
// so the HTML table keeps the source proportions.
func (r *renderer) colgroup(tbl *etree.Element) {
	grid := docxml.ChildByTag(tbl, "tblGrid")
	if grid == nil {
		return
	}
	cols := docxml.ChildrenByTag(grid, "gridCol")
	total := 0
	widths := make([]int, 0, len(cols))
	for _, c := range cols {
		w := atoiDefault(docxml.AttrValue(c, "w"), 0)
		widths = append(widths, w)
		total += w
	}
	if total <= 0 {
		return
	}
	r.sb.WriteString("<colgroup>")
	for _, w := range widths {
		fmt.Fprintf(&r.sb, `<col style="width:%.1f%%"/>`, float64(w)*100.0/float64(total))
	}
	r.sb.WriteString("</colgroup>")
}

func (r *renderer) cell(tc *etree.Element, tableBordered bool) {
	node, _ := r.ix.Of(tc)

	r.sb.WriteString("<td")
	r.sb.WriteString(r.addrAttrs(node))
	if span := cellGridSpan(tc); span > 1 {
		fmt.Fprintf(&r.sb, ` colspan="%d"`, span)
	}
	if css := cellBorderCSS(tc, tableBordered); css != "" {
		fmt.Fprintf(&r.sb, " style=%q", css)
	}
	r.sb.WriteString(">")
	r.container(tc)
	r.sb.WriteString("</td>")
}

// tableHasBorders reports whether the table configures any border at all.
// When it doesn't, cell borders are suppressed entirely; when it does,
// cells without their own definition get a light default so nested
// structure stays legible.
func tableHasBorders(tbl *etree.Element) bool {
	tblPr := docxml.ChildByTag(tbl, "tblPr")
	if tblPr == nil {
		return false
	}
	borders := docxml.ChildByTag(tblPr, "tblBorders")
	if borders == nil {
		return false
	}
	for _, b := range borders.ChildElements() {
		if v := docxml.AttrValue(b, "val"); v != "" && v != "none" && v != "nil" {
			return true
		}
	}
	return false
}

func cellBorderCSS(tc *etree.Element, tableBordered bool) string {
	if tcPr := docxml.ChildByTag(tc, "tcPr"); tcPr != nil {
		if borders := docxml.ChildByTag(tcPr, "tcBorders"); borders != nil {
			var parts []string
			for _, b := range borders.ChildElements() {
				side := cssBorderSide(b.Tag)
				if side == "" {
					continue
				}
				val := docxml.AttrValue(b, "val")
				if val == "none" || val == "nil" {
					parts = append(parts, "border-"+side+":none")
					continue
				}
				width := float64(atoiDefault(docxml.AttrValue(b, "sz"), 4)) / 8.0 // eighths of a point
				color := docxml.AttrValue(b, "color")
				if color == "" || strings.EqualFold(color, "auto") {
					color = "000000"
				}
				parts = append(parts, fmt.Sprintf("border-%s:%.1fpt solid #%s", side, width, color))
			}
			if len(parts) > 0 {
				return strings.Join(parts, ";")
			}
		}
	}
	if tableBordered {
		return "border:0.5pt solid #c0c0c0"
	}
	return ""
}

func cssBorderSide(tag string) string {
	switch tag {
	case "top":
		return "top"
	case "bottom":
		return "bottom"
	case "left", "start":
		return "left"
	case "right", "end":
		return "right"
	default:
		return ""
	}
}

func cellGridSpan(tc *etree.Element) int {
	if tcPr := docxml.ChildByTag(tc, "tcPr"); tcPr != nil {
		if span := docxml.ChildByTag(tcPr, "gridSpan"); span != nil {
			return atoiDefault(docxml.AttrValue(span, "val"), 1)
		}
	}
	return 1
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
