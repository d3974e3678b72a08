package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common date patterns found in UK bank statements.
var (
	// DD/MM/YYYY or DD/MM/YY
	datePatternSlash = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`)
	// DD Mon YYYY (e.g., 15 Jan 2024)
	datePatternText = regexp.MustCompile(`(?i)\b(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{2,4})\b`)
	// DD-Mon-YYYY or DD-Mon-YY
	datePatternDash = regexp.MustCompile(`(?i)\b(\d{1,2}-(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*-\d{2,4})\b`)
	// DD Mon without year (e.g., "4 Dec"), used by Barclays business statements
	datePatternShort = regexp.MustCompile(`(?i)^(\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec))(?:\s|→|$)`)
	// ISO dates occasionally appear in exported statements
	datePatternISO = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
)

// parseAmount converts a string like "1,234.56" or "-£1,234.56" to a float64.
func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "Â£", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")

	if s == "" || s == "-" {
		return 0, nil
	}

	return strconv.ParseFloat(s, 64)
}

// normalizeLine cleans up common PDF extraction artifacts.
func normalizeLine(line string) string {
	line = strings.ReplaceAll(line, "Â£", "£")
	line = strings.ReplaceAll(line, "​", "")
	line = strings.ReplaceAll(line, " ", " ")
	return strings.TrimSpace(line)
}

// startsWithDate checks if a line begins with a date pattern.
func startsWithDate(line string) bool {
	return extractDate(line) != ""
}

// extractDate returns the date found at the start of a line, or "".
func extractDate(line string) string {
	line = strings.TrimSpace(line)
	for _, re := range []*regexp.Regexp{datePatternSlash, datePatternText, datePatternDash, datePatternISO} {
		if loc := re.FindStringIndex(line); loc != nil && loc[0] < 3 {
			return re.FindString(line)
		}
	}
	if m := datePatternShort.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// parseDate resolves a statement date string against the candidate layouts,
// most specific first. Returns the zero time when nothing fits.
func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Year-less short dates ("4 Dec") parse into year 0; accept them, the
	// caller only compares relative order within one statement.
	if t, err := time.Parse("2 Jan", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// defaultDateLayouts covers every format the builtin profiles use.
var defaultDateLayouts = []string{
	"02/01/2006", "02/01/06", "2/1/2006", "2/1/06",
	"2 Jan 2006", "2 Jan 06", "2 January 2006",
	"2-Jan-2006", "2-Jan-06",
	"2006-01-02",
}

// amountCellPattern matches a single monetary amount, optionally prefixed
// with a pound sign.
var amountCellPattern = regexp.MustCompile(`£?([\d,]+\.\d{2})`)

// findAmounts returns every monetary amount on a line, left to right.
func findAmounts(line string) []string {
	var out []string
	for _, m := range amountCellPattern.FindAllStringSubmatch(line, -1) {
		out = append(out, m[1])
	}
	return out
}

// extractPeriod looks for a "statement period" style line and pulls the
// date range out of it.
func extractPeriod(text string) (from, to string) {
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "statement period") && !strings.Contains(lower, "period") {
			continue
		}
		if dates := datePatternSlash.FindAllString(line, 2); len(dates) == 2 {
			return dates[0], dates[1]
		}
		if dates := datePatternText.FindAllString(line, 2); len(dates) == 2 {
			return dates[0], dates[1]
		}
	}
	return "", ""
}

func isDebitDescription(desc string) bool {
	lower := strings.ToLower(desc)
	debitKeywords := []string{
		"card payment", "direct debit", "debit", "payment", "withdrawal",
		"transfer out", "standing order", "dd ", "pos ", "atm ",
		"purchase", "fee", "charge",
	}
	for _, kw := range debitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
