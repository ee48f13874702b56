package docxml

import "github.com/beevik/etree"

// LevelDef is the resolved definition of one numbering level: either a
// literal bullet text or a symbol-font code point the renderer maps through
// its glyph tables.
type LevelDef struct {
	Format string // w:numFmt val, e.g. "bullet", "decimal"
	Text   string // w:lvlText val
	Font   string // rPr rFonts ascii, e.g. "Wingdings", "Symbol"
}

// Numbering resolves a paragraph's numbering reference (numId + indent
// level) through word/numbering.xml: num -> abstractNum -> lvl.
type Numbering struct {
	numToAbstract map[string]string
	abstractLvls  map[string]map[string]*etree.Element // abstractNumId -> ilvl -> w:lvl
}

func emptyNumbering() *Numbering {
	return &Numbering{
		numToAbstract: make(map[string]string),
		abstractLvls:  make(map[string]map[string]*etree.Element),
	}
}

func newNumbering(doc *etree.Document) *Numbering {
	n := emptyNumbering()
	root := doc.Root()
	if root == nil {
		return n
	}

	for _, abs := range childrenByTag(root, "abstractNum") {
		id := attrValue(abs, "abstractNumId")
		if id == "" {
			continue
		}
		lvls := make(map[string]*etree.Element)
		for _, lvl := range childrenByTag(abs, "lvl") {
			lvls[attrValue(lvl, "ilvl")] = lvl
		}
		n.abstractLvls[id] = lvls
	}

	for _, num := range childrenByTag(root, "num") {
		id := attrValue(num, "numId")
		abs := childByTag(num, "abstractNumId")
		if id == "" || abs == nil {
			continue
		}
		n.numToAbstract[id] = attrValue(abs, "val")
	}
	return n
}

// Level resolves a numbering reference. The second return is false when the
// reference points nowhere, in which case the caller falls back to the
// default bullet glyph.
func (n *Numbering) Level(numID, ilvl string) (LevelDef, bool) {
	absID, ok := n.numToAbstract[numID]
	if !ok {
		return LevelDef{}, false
	}
	lvls, ok := n.abstractLvls[absID]
	if !ok {
		return LevelDef{}, false
	}
	lvl, ok := lvls[ilvl]
	if !ok && ilvl == "" {
		lvl, ok = lvls["0"]
	}
	if !ok {
		return LevelDef{}, false
	}

	var def LevelDef
	if f := childByTag(lvl, "numFmt"); f != nil {
		def.Format = attrValue(f, "val")
	}
	if t := childByTag(lvl, "lvlText"); t != nil {
		def.Text = attrValue(t, "val")
	}
	if rPr := childByTag(lvl, "rPr"); rPr != nil {
		if fonts := childByTag(rPr, "rFonts"); fonts != nil {
			def.Font = attrValue(fonts, "ascii")
		}
	}
	return def, true
}

// ParagraphNumbering extracts a paragraph's numId and ilvl references, with
// ok=false when the paragraph carries no numbering.
func ParagraphNumbering(p *etree.Element) (numID, ilvl string, ok bool) {
	pPr := childByTag(p, "pPr")
	if pPr == nil {
		return "", "", false
	}
	numPr := childByTag(pPr, "numPr")
	if numPr == nil {
		return "", "", false
	}
	if id := childByTag(numPr, "numId"); id != nil {
		numID = attrValue(id, "val")
	}
	if lvl := childByTag(numPr, "ilvl"); lvl != nil {
		ilvl = attrValue(lvl, "val")
	}
	return numID, ilvl, numID != ""
}
