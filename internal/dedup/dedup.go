// Package dedup finds transactions that appear in more than one source
// file. Detection is advisory: matches are flagged and annotated, never
// removed.
package dedup

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// Options tunes pair matching.
type Options struct {
	// DateTolerance is the maximum calendar-day difference for a pair.
	DateTolerance int
	// RequireExactAmount demands exact equality of signed amounts.
	RequireExactAmount bool
	// AmountTolerance is the allowed fractional difference relative to the
	// larger magnitude when exact matching is off.
	AmountTolerance float64
	// DescriptionSimilarityThreshold is the minimum normalized description
	// similarity for a pair.
	DescriptionSimilarityThreshold float64
}

// DefaultOptions returns the tolerances used in production.
func DefaultOptions() Options {
	return Options{
		DateTolerance:                  1,
		RequireExactAmount:             true,
		AmountTolerance:                0.0,
		DescriptionSimilarityThreshold: 0.7,
	}
}

// Entry is one transaction tagged with its origin in the combined list.
type Entry struct {
	Index      int
	FileIndex  int
	SourceFile string
	Txn        *models.ParsedTransaction
}

// Report is the outcome of one detection run.
type Report struct {
	Groups       []models.DuplicateGroup
	TotalFlagged int
	Warnings     []string
}

// Detect runs the pairwise comparison over all entries. Statement-scale
// inputs keep the O(n²) scan cheap and the logic auditable. Pairs from the
// same file are never compared: duplicates are cross-file by definition.
func Detect(entries []Entry, opts Options) Report {
	uf := newUnionFind(len(entries))
	pairConf := make(map[int]float64) // root -> best pair confidence

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[i].FileIndex == entries[j].FileIndex {
				continue
			}
			conf, ok := comparePair(entries[i], entries[j], opts)
			if !ok {
				continue
			}
			// Merging two groups keeps the best confidence seen in either.
			ra, rb := uf.find(i), uf.find(j)
			best := math.Max(conf, math.Max(pairConf[ra], pairConf[rb]))
			delete(pairConf, ra)
			delete(pairConf, rb)
			uf.union(i, j)
			pairConf[uf.find(i)] = best
		}
	}

	return buildReport(entries, uf, pairConf)
}

// comparePair applies the three gates in order and returns the blended
// confidence when all pass. Symmetric in its arguments.
func comparePair(a, b Entry, opts Options) (float64, bool) {
	daysDiff, ok := dateDifferenceDays(a.Txn.Date, b.Txn.Date)
	if !ok || daysDiff > opts.DateTolerance {
		return 0, false
	}

	amountConf, ok := amountMatch(models.TransactionAmount(a.Txn), models.TransactionAmount(b.Txn), opts)
	if !ok {
		return 0, false
	}

	descSim := descriptionSimilarity(a.Txn.Description, b.Txn.Description)
	if descSim < opts.DescriptionSimilarityThreshold {
		return 0, false
	}

	dateConf := 1 - float64(daysDiff)/float64(opts.DateTolerance+1)
	return 0.3*dateConf + 0.4*amountConf + 0.3*descSim, true
}

// amountMatch gates on signed amounts so a debit never pairs with a credit
// of the same magnitude. Decimal comparison sidesteps float representation
// noise in the exact case.
func amountMatch(a, b float64, opts Options) (float64, bool) {
	da := decimal.NewFromFloat(a).Round(2)
	db := decimal.NewFromFloat(b).Round(2)
	if da.Equal(db) {
		return 1.0, true
	}
	if opts.RequireExactAmount {
		return 0, false
	}
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return 0, false
	}
	frac := math.Abs(a-b) / larger
	if frac > opts.AmountTolerance {
		return 0, false
	}
	return 1 - frac, true
}

// dateDifferenceDays parses both dates and returns their distance in
// calendar days. Unparseable dates disqualify the pair rather than
// guessing.
func dateDifferenceDays(a, b string) (int, bool) {
	ta, ok := ParseTransactionDate(a)
	if !ok {
		return 0, false
	}
	tb, ok := ParseTransactionDate(b)
	if !ok {
		return 0, false
	}
	days := int(math.Abs(ta.Sub(tb).Hours()) / 24)
	return days, true
}

var dedupDateLayouts = []string{
	"2006-01-02", "02/01/2006", "02/01/06", "2/1/2006",
	"2 Jan 2006", "2 Jan 06", "2-Jan-2006", "2-Jan-06", "2 Jan",
	"01/02/2006", // US ordering last, only reached when UK forms fail
}

// ParseTransactionDate resolves a statement date string against the known
// layouts. Shared with the merger, which orders transactions by the same
// rules duplicates are detected under.
func ParseTransactionDate(s string) (time.Time, bool) {
	for _, layout := range dedupDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func buildReport(entries []Entry, uf *unionFind, pairConf map[int]float64) Report {
	members := make(map[int][]int)
	for i := range entries {
		root := uf.find(i)
		members[root] = append(members[root], i)
	}

	var roots []int
	for root, m := range members {
		if len(m) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	var report Report
	for _, root := range roots {
		m := members[root]
		group := models.DuplicateGroup{
			Confidence: pairConf[root],
			Reason:     "matching date, amount and description across files",
		}
		seenFiles := make(map[string]bool)
		for _, idx := range m {
			group.TransactionIndices = append(group.TransactionIndices, entries[idx].Index)
			if f := entries[idx].SourceFile; f != "" && !seenFiles[f] {
				seenFiles[f] = true
				group.SourceFiles = append(group.SourceFiles, f)
			}
		}
		sort.Ints(group.TransactionIndices)
		report.Groups = append(report.Groups, group)
		report.TotalFlagged += len(m)
	}
	if report.TotalFlagged > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%d transactions flagged as possible cross-file duplicates in %d groups",
			report.TotalFlagged, len(report.Groups)))
	}
	return report
}

// FlagDuplicates annotates every grouped transaction: status drops to at
// worst warning (an existing error is kept) and a note records the group
// confidence. Nothing is deleted; disposition is the caller's decision.
func FlagDuplicates(entries []Entry, report Report) {
	byIndex := make(map[int]*models.ParsedTransaction, len(entries))
	for _, e := range entries {
		byIndex[e.Index] = e.Txn
	}
	for _, group := range report.Groups {
		for _, idx := range group.TransactionIndices {
			txn, ok := byIndex[idx]
			if !ok {
				continue
			}
			if txn.ValidationStatus != models.StatusError {
				txn.ValidationStatus = models.StatusWarning
			}
			txn.AddNote("possible duplicate across files (confidence %.0f%%)", group.Confidence*100)
		}
	}
}
