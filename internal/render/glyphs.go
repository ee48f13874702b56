package render

// Glyph classification is table-driven: plain code-point lookups, so new
// symbol fonts or bullet characters are added as data, not logic.

// checkboxGlyphs are Unicode characters rendered as form checkboxes when a
// run consists of exactly one of them (exact match, never substring).
var checkboxGlyphs = map[rune]string{
	'☐': "☐", // ballot box
	'☑': "☑", // ballot box with check
	'☒': "☒", // ballot box with X
	'□': "☐", // white square
	'■': "☒", // black square
	'◻': "☐",
	'◼': "☒",
}

// bulletGlyphs are Unicode characters treated as list bullets when they make
// up a whole run.
var bulletGlyphs = map[rune]string{
	'•': "•", // bullet
	'●': "•", // black circle
	'○': "◦", // white circle
	'◦': "◦", // white bullet
	'▪': "▪", // black small square
	'▫': "▪",
	'‣': "‣", // triangular bullet
	'⁃': "⁃", // hyphen bullet
	'·': "·", // middle dot
	'–': "-",      // en dash
	'—': "-",      // em dash
	'Ø': "•", // legacy Symbol-font bullets pasted as Latin text
	'§': "▪",
}

// wingdingsGlyphs maps Wingdings code points (both raw and in the F0xx
// private-use range Word writes) to display glyphs.
var wingdingsGlyphs = map[rune]string{
	0x6C: "●", // l -> black circle
	0x6D: "○",
	0x6E: "■", // n -> black square
	0x6F: "□", // o -> white square
	0x70: "☐",
	0x71: "☐", // q -> ballot box
	0x72: "☑",
	0x73: "◆",
	0x75: "◆",
	0x76: "❖",
	0x77: "●",
	0xA1: "○",
	0xA7: "▪", // section sign slot -> small square
	0xA8: "□",
	0xB7: "•",
	0xD8: "•",
	0xDC: "⇒",
	0xFC: "✓", // check mark
	0xFD: "✗",
	0xFE: "☒", // checked box
	0xFF: "☐",
}

// symbolGlyphs maps Symbol-font code points to display glyphs.
var symbolGlyphs = map[rune]string{
	0xB7: "•", // bullet
	0xD8: "•",
	0xB4: "×",
	0xA7: "▪",
	0xA8: "□",
	0xB1: "±",
	0xB2: "″",
	0x2D: "-",
}

// courierBulletGlyphs covers the "Courier New" degree-sign bullet Word uses
// for second-level lists.
var courierBulletGlyphs = map[rune]string{
	0x6F: "◦", // o -> white bullet
	0xB0: "◦",
}

// symbolFontGlyph maps a symbol-font code point to a safe display glyph.
// Word stores symbol-font characters either as raw bytes or shifted into
// the U+F000 private-use page; both forms resolve identically.
func symbolFontGlyph(font string, r rune) (string, bool) {
	if r >= 0xF000 && r <= 0xF0FF {
		r -= 0xF000
	}
	var table map[rune]string
	switch font {
	case "Wingdings", "Wingdings 2", "Wingdings 3", "Webdings":
		table = wingdingsGlyphs
	case "Symbol":
		table = symbolGlyphs
	case "Courier New":
		table = courierBulletGlyphs
	default:
		return "", false
	}
	g, ok := table[r]
	return g, ok
}

// checkboxGlyph reports whether a run text is exactly one known checkbox
// character, returning its normalized display form.
func checkboxGlyph(text string) (string, bool) {
	runes := []rune(text)
	if len(runes) != 1 {
		return "", false
	}
	g, ok := checkboxGlyphs[runes[0]]
	return g, ok
}

// bulletGlyph reports whether a run text is exactly one known bullet
// character, returning its normalized display form.
func bulletGlyph(text string, font string) (string, bool) {
	runes := []rune(text)
	if len(runes) != 1 {
		return "", false
	}
	if g, ok := symbolFontGlyph(font, runes[0]); ok {
		return g, true
	}
	g, ok := bulletGlyphs[runes[0]]
	return g, ok
}

// defaultBulletGlyph is the fallback for unresolvable numbering references.
const defaultBulletGlyph = "•"
