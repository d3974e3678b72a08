// Package profile holds the bank-format registry: per-bank detection
// signatures and parsing rule templates, plus the detector that scores a
// document's text against every registered signature.
package profile

import (
	"regexp"
	"strings"
)

// Pattern is a compiled regex that keeps its source string for logging and
// serialization.
type Pattern struct {
	Source string
	re     *regexp.Regexp
}

// MustPattern compiles source, panicking on error. Builtin profiles are
// static so a bad pattern is a programming error.
func MustPattern(source string) Pattern {
	return Pattern{Source: source, re: regexp.MustCompile(source)}
}

func (p Pattern) MatchString(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

func (p Pattern) FindString(s string) string {
	if p.re == nil {
		return ""
	}
	return p.re.FindString(s)
}

// Identification is a profile's detection signature. Keywords and
// identifiers are matched case-insensitively against document text plus
// the filename.
type Identification struct {
	LogoKeywords        []string
	UniqueIdentifiers   []string
	AccountPatterns     []Pattern
	CurrencySymbols     []string
	ConfidenceThreshold float64
}

// ColumnConfig describes how a bank lays out its transaction table.
type ColumnConfig struct {
	// Order lists the expected columns left to right.
	Order []string
	// MergedAmounts means one signed amount column instead of separate
	// paid-out and paid-in columns.
	MergedAmounts bool
	// BalanceLast is set when the running balance is the rightmost column.
	BalanceLast bool
}

// SpecialRules carries a bank's row-level parsing quirks.
type SpecialRules struct {
	DateFormats          []string
	SkipPatterns         []Pattern
	OpeningBalanceRows   []Pattern
	ClosingBalanceRows   []Pattern
	ContinuationPatterns []Pattern
	ThousandsSeparator   string
	DecimalSeparator     string
}

// BankProfile is an immutable description of one bank's statement format.
// Construct once, register, never mutate.
type BankProfile struct {
	ID             string
	Name           string
	Region         string
	Identification Identification
	Columns        ColumnConfig
	Rules          SpecialRules
	// Generic marks the fallback profile, excluded from scored detection.
	Generic bool
}

// ShouldSkipRow reports whether a row is a header, summary or footer line
// the extractor should not treat as a transaction.
func (p *BankProfile) ShouldSkipRow(row string) bool {
	return matchAny(p.Rules.SkipPatterns, row)
}

// IsOpeningBalanceRow reports whether a row opens a statement segment.
func (p *BankProfile) IsOpeningBalanceRow(row string) bool {
	return matchAny(p.Rules.OpeningBalanceRows, row)
}

// IsClosingBalanceRow reports whether a row closes a statement segment.
func (p *BankProfile) IsClosingBalanceRow(row string) bool {
	return matchAny(p.Rules.ClosingBalanceRows, row)
}

// IsContinuationRow reports whether a row continues the previous
// transaction's description rather than starting a new one.
func (p *BankProfile) IsContinuationRow(row string) bool {
	return matchAny(p.Rules.ContinuationPatterns, row)
}

func matchAny(patterns []Pattern, row string) bool {
	row = strings.TrimSpace(row)
	if row == "" {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(row) {
			return true
		}
	}
	return false
}
