package merge

import (
	"testing"

	"github.com/Leolion08/ctom-sub000/internal/field"
)

func TestFormatValueNumber(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"1234.5", "1.234,5"},
		{"1234567", "1.234.567"},
		{"1234,5", "1.234,5"},
		{"0.25", "0,25"},
		{"1000000.00", "1.000.000,00"},
		{"-9876.1", "-9.876,1"},
		{"12", "12"},
		{"not a number", "not a number"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatValue(field.TypeNumber, tc.raw); got != tc.want {
			t.Errorf("FormatValue(NUMBER, %q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFormatValueDate(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"2026-01-05", "05/01/2026"},
		{"05/01/2026", "05/01/2026"},
		{"5/1/2026", "05/01/2026"},
		{"31-12-2025", "31/12/2025"},
		{"not a date", "not a date"},
	}
	for _, tc := range cases {
		if got := FormatValue(field.TypeDate, tc.raw); got != tc.want {
			t.Errorf("FormatValue(DATE, %q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestFormatValueTextPassesThrough(t *testing.T) {
	raw := "  Nguyễn Văn A  "
	if got := FormatValue(field.TypeText, raw); got != raw {
		t.Errorf("FormatValue(TEXT, %q) = %q", raw, got)
	}
}
