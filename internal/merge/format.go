package merge

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/Leolion08/ctom-sub000/internal/field"
)

// outputDateLayout is the presentation format for DATE fields.
const outputDateLayout = "02/01/2006"

// dateLayouts are the layouts accepted for raw DATE values, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
}

// vi renders numbers with Vietnamese separators: dot for grouping, comma
// for decimals.
var vi = message.NewPrinter(language.Vietnamese)

// FormatValue renders a raw field value for presentation. NUMBER values are
// regrouped in Vietnamese convention keeping the decimal count of the
// source, DATE values are reformatted to dd/MM/yyyy, TEXT passes through.
// Values that do not parse for their declared type pass through unchanged.
func FormatValue(t field.Type, raw string) string {
	switch t {
	case field.TypeNumber:
		return formatNumber(raw)
	case field.TypeDate:
		return formatDate(raw)
	default:
		return raw
	}
}

func formatNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}
	// Values may arrive with either decimal convention; a lone comma is
	// treated as the decimal separator.
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return raw
	}
	return vi.Sprintf("%v", number.Decimal(f, number.Scale(decimalCount(s))))
}

func decimalCount(s string) int {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func formatDate(raw string) string {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(outputDateLayout)
		}
	}
	return raw
}
