package render

import (
	"fmt"
	"strings"

	"github.com/Leolion08/ctom-sub000/internal/docxml"
)

// maxRightIndentPt caps the right indentation carried into CSS; larger
// values in the source document would squeeze the HTML view into an
// unreadable column.
const maxRightIndentPt = 150.0

// twipsToPt converts twentieths of a point to CSS points.
func twipsToPt(tw int) float64 {
	return float64(tw) / 20.0
}

// halfPtToPt converts half-points (the WML font size unit) to CSS points.
func halfPtToPt(hp int) float64 {
	return float64(hp) / 2.0
}

// fmtPt renders a point measurement trimming a trailing ".0".
func fmtPt(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	s = strings.TrimSuffix(s, ".0")
	return s + "pt"
}

// paraStyleCSS builds the inline style of a rendered paragraph.
func paraStyleCSS(f docxml.ParaFormat) string {
	var parts []string
	switch f.Align {
	case "center":
		parts = append(parts, "text-align:center")
	case "right", "end":
		parts = append(parts, "text-align:right")
	case "both", "distribute":
		parts = append(parts, "text-align:justify")
	}
	if f.SpacingBefore > 0 {
		parts = append(parts, "margin-top:"+fmtPt(twipsToPt(f.SpacingBefore)))
	}
	if f.SpacingAfter > 0 {
		parts = append(parts, "margin-bottom:"+fmtPt(twipsToPt(f.SpacingAfter)))
	}
	if f.Line > 0 {
		switch f.LineRule {
		case "exact", "atLeast":
			parts = append(parts, "line-height:"+fmtPt(twipsToPt(f.Line)))
		default:
			// Proportional: 240 twips = single spacing.
			parts = append(parts, fmt.Sprintf("line-height:%.2f", float64(f.Line)/240.0))
		}
	}
	indentLeft := twipsToPt(f.IndentLeft)
	if f.Hanging > 0 {
		parts = append(parts, "text-indent:-"+fmtPt(twipsToPt(f.Hanging)))
	} else if f.FirstLine > 0 {
		parts = append(parts, "text-indent:"+fmtPt(twipsToPt(f.FirstLine)))
	}
	if indentLeft > 0 {
		parts = append(parts, "margin-left:"+fmtPt(indentLeft))
	}
	if right := twipsToPt(f.IndentRight); right > 0 {
		if right > maxRightIndentPt {
			right = maxRightIndentPt
		}
		parts = append(parts, "margin-right:"+fmtPt(right))
	}
	return strings.Join(parts, ";")
}

// runStyleCSS builds the inline style of a rendered text run.
func runStyleCSS(f docxml.RunFormat) string {
	var parts []string
	parts = append(parts, "font-family:'"+f.Font+"'")
	parts = append(parts, "font-size:"+fmtPt(halfPtToPt(f.SizeHalfPt)))
	if f.Bold {
		parts = append(parts, "font-weight:bold")
	}
	if f.Italic {
		parts = append(parts, "font-style:italic")
	}
	if f.Underline != "" {
		parts = append(parts, "text-decoration:underline")
	}
	if f.Color != "" {
		parts = append(parts, "color:#"+f.Color)
	}
	if f.Highlight != "" {
		parts = append(parts, "background-color:"+highlightColor(f.Highlight))
	}
	return strings.Join(parts, ";")
}

// highlightColor maps WML highlight names to CSS colors.
func highlightColor(name string) string {
	switch name {
	case "yellow":
		return "#ffff00"
	case "green":
		return "#00ff00"
	case "cyan":
		return "#00ffff"
	case "magenta":
		return "#ff00ff"
	case "red":
		return "#ff0000"
	case "blue":
		return "#0000ff"
	case "darkYellow":
		return "#808000"
	case "lightGray":
		return "#d3d3d3"
	case "darkGray":
		return "#a9a9a9"
	default:
		return "#ffff00"
	}
}
