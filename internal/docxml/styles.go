package docxml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Document-wide fallbacks used when neither direct formatting, the style
// chain, nor the document defaults specify a value.
const (
	DefaultFontFamily   = "Times New Roman"
	DefaultSizeHalfPts  = 22 // 11pt
	defaultStyleChainMax = 8 // guards against basedOn cycles
)

// RunFormat is the fully resolved inline formatting of one run.
type RunFormat struct {
	Bold       bool
	Italic     bool
	Underline  string // w:u val, "" when absent or "none"
	Font       string
	SizeHalfPt int
	Color      string // hex without '#', "" for automatic
	Highlight  string // named highlight color
}

// ParaFormat is the fully resolved block formatting of one paragraph.
// Measurements are in twentieths of a point (twips), straight from the
// document; conversion to CSS points is the renderer's concern.
type ParaFormat struct {
	Align         string
	SpacingBefore int
	SpacingAfter  int
	Line          int
	LineRule      string
	IndentLeft    int
	IndentRight   int
	FirstLine     int
	Hanging       int
}

// Stylesheet resolves formatting through the named-style inheritance chain
// of word/styles.xml. Lookups never fail: anything unresolved falls back to
// the document defaults and finally to the hard-coded serif defaults.
type Stylesheet struct {
	styles         map[string]*etree.Element // styleId -> w:style
	defaultRunPr   *etree.Element            // docDefaults rPr
	defaultParaPr  *etree.Element            // docDefaults pPr
	defaultStyleID map[string]string         // style type -> default styleId
}

func emptyStylesheet() *Stylesheet {
	return &Stylesheet{
		styles:         make(map[string]*etree.Element),
		defaultStyleID: make(map[string]string),
	}
}

func newStylesheet(doc *etree.Document) *Stylesheet {
	ss := emptyStylesheet()
	root := doc.Root()
	if root == nil {
		return ss
	}

	if dd := childByTag(root, "docDefaults"); dd != nil {
		if rd := childByTag(dd, "rPrDefault"); rd != nil {
			ss.defaultRunPr = childByTag(rd, "rPr")
		}
		if pd := childByTag(dd, "pPrDefault"); pd != nil {
			ss.defaultParaPr = childByTag(pd, "pPr")
		}
	}

	for _, st := range childrenByTag(root, "style") {
		id := attrValue(st, "styleId")
		if id == "" {
			continue
		}
		ss.styles[id] = st
		if attrValue(st, "default") == "1" || attrValue(st, "default") == "true" {
			ss.defaultStyleID[attrValue(st, "type")] = id
		}
	}
	return ss
}

// chain returns a style and its basedOn ancestors, nearest first.
func (ss *Stylesheet) chain(styleID string) []*etree.Element {
	var out []*etree.Element
	seen := make(map[string]bool)
	for styleID != "" && !seen[styleID] && len(out) < defaultStyleChainMax {
		st, ok := ss.styles[styleID]
		if !ok {
			break
		}
		seen[styleID] = true
		out = append(out, st)
		styleID = ""
		if based := childByTag(st, "basedOn"); based != nil {
			styleID = attrValue(based, "val")
		}
	}
	return out
}

// ResolveRunFormat resolves a run's formatting: direct rPr first, then the
// run style chain, then the paragraph style chain's run properties, then the
// document defaults, and finally the serif fallback.
func (ss *Stylesheet) ResolveRunFormat(run, para *etree.Element) RunFormat {
	f := RunFormat{Font: DefaultFontFamily, SizeHalfPt: DefaultSizeHalfPts}

	// Collect rPr sources from lowest to highest precedence, then apply in
	// that order so later (more direct) sources win.
	var sources []*etree.Element
	if ss.defaultRunPr != nil {
		sources = append(sources, ss.defaultRunPr)
	}
	if para != nil {
		if pPr := childByTag(para, "pPr"); pPr != nil {
			if st := childByTag(pPr, "pStyle"); st != nil {
				sources = append(sources, ss.chainRunPrs(attrValue(st, "val"))...)
			}
		}
	}
	var directRPr *etree.Element
	if run != nil {
		directRPr = childByTag(run, "rPr")
	}
	if directRPr != nil {
		if st := childByTag(directRPr, "rStyle"); st != nil {
			sources = append(sources, ss.chainRunPrs(attrValue(st, "val"))...)
		}
		sources = append(sources, directRPr)
	}

	for _, rPr := range sources {
		applyRunPr(&f, rPr)
	}
	return f
}

// chainRunPrs returns the rPr elements along a style chain, farthest
// ancestor first so nearer styles override.
func (ss *Stylesheet) chainRunPrs(styleID string) []*etree.Element {
	chain := ss.chain(styleID)
	var out []*etree.Element
	for i := len(chain) - 1; i >= 0; i-- {
		if rPr := childByTag(chain[i], "rPr"); rPr != nil {
			out = append(out, rPr)
		}
	}
	return out
}

func applyRunPr(f *RunFormat, rPr *etree.Element) {
	for _, c := range rPr.ChildElements() {
		switch c.Tag {
		case "b":
			f.Bold = onOff(c)
		case "i":
			f.Italic = onOff(c)
		case "u":
			val := attrValue(c, "val")
			if val == "none" {
				f.Underline = ""
			} else if val == "" {
				f.Underline = "single"
			} else {
				f.Underline = val
			}
		case "rFonts":
			if v := attrValue(c, "ascii"); v != "" {
				f.Font = v
			}
		case "sz":
			if n, err := strconv.Atoi(attrValue(c, "val")); err == nil && n > 0 {
				f.SizeHalfPt = n
			}
		case "color":
			v := attrValue(c, "val")
			if v != "" && !strings.EqualFold(v, "auto") {
				f.Color = v
			}
		case "highlight":
			f.Highlight = attrValue(c, "val")
		}
	}
}

// onOff interprets a WML on/off element: present means on unless its val
// says otherwise.
func onOff(el *etree.Element) bool {
	switch attrValue(el, "val") {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// ResolveParaFormat resolves a paragraph's block formatting through its
// style chain and the document defaults.
func (ss *Stylesheet) ResolveParaFormat(para *etree.Element) ParaFormat {
	var f ParaFormat

	var sources []*etree.Element
	if ss.defaultParaPr != nil {
		sources = append(sources, ss.defaultParaPr)
	}
	var direct *etree.Element
	if para != nil {
		direct = childByTag(para, "pPr")
	}
	if direct != nil {
		if st := childByTag(direct, "pStyle"); st != nil {
			chain := ss.chain(attrValue(st, "val"))
			for i := len(chain) - 1; i >= 0; i-- {
				if pPr := childByTag(chain[i], "pPr"); pPr != nil {
					sources = append(sources, pPr)
				}
			}
		}
		sources = append(sources, direct)
	}

	for _, pPr := range sources {
		applyParaPr(&f, pPr)
	}
	return f
}

func applyParaPr(f *ParaFormat, pPr *etree.Element) {
	for _, c := range pPr.ChildElements() {
		switch c.Tag {
		case "jc":
			f.Align = attrValue(c, "val")
		case "spacing":
			setTwips(&f.SpacingBefore, c, "before")
			setTwips(&f.SpacingAfter, c, "after")
			setTwips(&f.Line, c, "line")
			if v := attrValue(c, "lineRule"); v != "" {
				f.LineRule = v
			}
		case "ind":
			setTwips(&f.IndentLeft, c, "left")
			setTwips(&f.IndentLeft, c, "start")
			setTwips(&f.IndentRight, c, "right")
			setTwips(&f.IndentRight, c, "end")
			setTwips(&f.FirstLine, c, "firstLine")
			setTwips(&f.Hanging, c, "hanging")
		}
	}
}

func setTwips(dst *int, el *etree.Element, key string) {
	if v := attrValue(el, key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// DefaultRunProperties builds a fresh w:rPr for runs created from scratch,
// e.g. a placeholder inserted into an empty paragraph. It clones the
// "Normal" (default paragraph) style's run properties when present, the
// document defaults otherwise, and synthesizes the serif fallback when the
// stylesheet has neither.
func (ss *Stylesheet) DefaultRunProperties() *etree.Element {
	if id, ok := ss.defaultStyleID["paragraph"]; ok {
		if st, ok := ss.styles[id]; ok {
			if rPr := childByTag(st, "rPr"); rPr != nil {
				return rPr.Copy()
			}
		}
	}
	if st, ok := ss.styles["Normal"]; ok {
		if rPr := childByTag(st, "rPr"); rPr != nil {
			return rPr.Copy()
		}
	}
	if ss.defaultRunPr != nil {
		return ss.defaultRunPr.Copy()
	}

	rPr := etree.NewElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", DefaultFontFamily)
	fonts.CreateAttr("w:hAnsi", DefaultFontFamily)
	sz := rPr.CreateElement("w:sz")
	sz.CreateAttr("w:val", strconv.Itoa(DefaultSizeHalfPts))
	return rPr
}
