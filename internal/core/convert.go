package core

// convert.go provides cell cleanup and type conversion from source data
// to PostgreSQL types.
//
// These functions handle the messy reality of operator-exported spreadsheets:
//   - Multiple date formats (ISO, US, EU, dotted)
//   - Currency symbols and thousand separators in numbers
//   - Excel formula prefixes (="value")
//   - Placeholder cells that mean "no value" ("-", "n/a", "없음")
//
// All ToPg* functions return pgtype values with Valid=false for empty or
// invalid input, so absent values persist as NULL rather than a misleading
// zero.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "2006. 1. 2.",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// placeholders are cell values operators use to mean "no value".
var placeholders = map[string]bool{
	"-":    true,
	"--":   true,
	".":    true,
	"n/a":  true,
	"na":   true,
	"none": true,
	"null": true,
	"없음":   true,
	"해당없음": true,
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// trims whitespace, strips the Excel formula prefix (="..."), and
// removes surrounding quotes. Placeholder values collapse to "".
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	if placeholders[strings.ToLower(s)] {
		return ""
	}
	return s
}

// NormalizeText collapses runs of whitespace and control characters in
// free-text fields to single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	currentYear := time.Now().Year()
	pivotYear := currentYear + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, "₩", "") // Won
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ToPgInt4 converts a string to pgtype.Int4.
// Accepts thousands separators ("1,234").
func ToPgInt4(s string) pgtype.Int4 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return pgtype.Int4{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

// Canonical string forms used for fingerprinting. Invalid values render
// as "" so an absent field and an empty field fingerprint identically.

// DateString returns the canonical YYYY-MM-DD form of a date.
func DateString(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// Int4String returns the canonical decimal form of an int.
func Int4String(i pgtype.Int4) string {
	if !i.Valid {
		return ""
	}
	return strconv.FormatInt(int64(i.Int32), 10)
}

// TextString returns the text value or "" when absent.
func TextString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// NumericString returns the canonical plain-decimal form of a numeric
// value, with trailing fractional zeros trimmed so "12.50" and "12.5"
// fingerprint identically.
func NumericString(n pgtype.Numeric) string {
	if !n.Valid || n.Int == nil {
		return ""
	}
	if n.NaN {
		return "NaN"
	}
	if n.Int.Sign() == 0 {
		return "0"
	}

	s := n.Int.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	exp := int(n.Exp)
	switch {
	case exp >= 0:
		s += strings.Repeat("0", exp)
	default:
		d := -exp
		if len(s) <= d {
			s = strings.Repeat("0", d-len(s)+1) + s
		}
		s = s[:len(s)-d] + "." + s[len(s)-d:]
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}

	if neg {
		s = "-" + s
	}
	return s
}

// MakeHeaderIndex maps cleaned, lowercased header names to their column
// position in the source.
func MakeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanCell(h))] = i
	}
	return idx
}
