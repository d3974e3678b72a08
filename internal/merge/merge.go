// Package merge combines several parsed statement documents into one
// synthetic document: sorted, duplicate-flagged, gap-checked and
// re-indexed. Input documents are never mutated.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/insightdelivered/statement-pipeline/internal/dedup"
	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// Options controls merge behavior.
type Options struct {
	// SortByDate orders the combined transactions ascending by date.
	SortByDate bool
	// ValidateContinuity flags gaps over a day between consecutive files'
	// statement ranges.
	ValidateContinuity bool
	// Dedup tunes the duplicate detector run over the combined list.
	Dedup dedup.Options
}

// DefaultOptions enables everything with production tolerances.
func DefaultOptions() Options {
	return Options{
		SortByDate:         true,
		ValidateContinuity: true,
		Dedup:              dedup.DefaultOptions(),
	}
}

// Report carries merge diagnostics alongside the merged document.
type Report struct {
	Duplicates []models.DuplicateGroup
	Warnings   []string
}

// Merge combines documents into one. Zero documents produce an empty,
// well-formed placeholder; a single document passes through untouched with
// no merge machinery invoked.
func Merge(docs []*models.ParsedDocument, fileNames []string, opts Options) (*models.ParsedDocument, Report) {
	switch len(docs) {
	case 0:
		empty := &models.ParsedDocument{FileName: "merged"}
		empty.Recount()
		return empty, Report{}
	case 1:
		return docs[0], Report{}
	}

	var report Report

	// Flatten with origin tags. Transactions are copied so flagging and
	// re-indexing never touch the inputs.
	type tagged struct {
		txn      models.ParsedTransaction
		fileIdx  int
		fileName string
	}
	var combined []tagged
	for fileIdx, doc := range docs {
		name := doc.FileName
		if fileIdx < len(fileNames) && fileNames[fileIdx] != "" {
			name = fileNames[fileIdx]
		}
		for _, t := range doc.Transactions() {
			cp := *t
			cp.Notes = append([]string(nil), t.Notes...)
			cp.SourceFile = name
			cp.FileIndex = fileIdx
			combined = append(combined, tagged{txn: cp, fileIdx: fileIdx, fileName: name})
		}
	}

	if opts.SortByDate {
		// Stable: unparseable dates compare equal and keep relative order.
		sort.SliceStable(combined, func(i, j int) bool {
			ti, oki := dedup.ParseTransactionDate(combined[i].txn.Date)
			tj, okj := dedup.ParseTransactionDate(combined[j].txn.Date)
			if !oki || !okj {
				return false
			}
			return ti.Before(tj)
		})
	}

	if opts.ValidateContinuity {
		report.Warnings = append(report.Warnings, continuityWarnings(docs, fileNames)...)
	}

	entries := make([]dedup.Entry, len(combined))
	for i := range combined {
		entries[i] = dedup.Entry{
			Index:      i,
			FileIndex:  combined[i].fileIdx,
			SourceFile: combined[i].fileName,
			Txn:        &combined[i].txn,
		}
	}
	dupReport := dedup.Detect(entries, opts.Dedup)
	dedup.FlagDuplicates(entries, dupReport)
	report.Duplicates = dupReport.Groups
	report.Warnings = append(report.Warnings, dupReport.Warnings...)

	// Merge is a one-way transform: original row indices are gone.
	merged := &models.ParsedDocument{
		FileName:   "merged",
		Segments:   []models.DocumentSegment{{}},
		TotalPages: totalPages(docs),
	}
	seg := &merged.Segments[0]
	for i := range combined {
		combined[i].txn.RowIndex = i
		seg.Transactions = append(seg.Transactions, combined[i].txn)
	}
	merged.Recount()
	return merged, report
}

// continuityWarnings orders the files by statement date range and flags
// any gap over one day between a file's last transaction and the next
// file's first. Informational only: a gap is a warning, never an error.
func continuityWarnings(docs []*models.ParsedDocument, fileNames []string) []string {
	type span struct {
		name     string
		min, max time.Time
	}
	var spans []span
	for i, doc := range docs {
		name := doc.FileName
		if i < len(fileNames) && fileNames[i] != "" {
			name = fileNames[i]
		}
		var sp span
		sp.name = name
		seen := false
		for _, t := range doc.Transactions() {
			d, ok := dedup.ParseTransactionDate(t.Date)
			if !ok {
				continue
			}
			if !seen || d.Before(sp.min) {
				sp.min = d
			}
			if !seen || d.After(sp.max) {
				sp.max = d
			}
			seen = true
		}
		if seen {
			spans = append(spans, sp)
		}
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].min.Before(spans[j].min) })

	var warnings []string
	for i := 1; i < len(spans); i++ {
		gap := spans[i].min.Sub(spans[i-1].max)
		if gap > 24*time.Hour {
			days := int(gap.Hours() / 24)
			warnings = append(warnings, fmt.Sprintf(
				"%d day gap between %s (ends %s) and %s (starts %s)",
				days, spans[i-1].name, spans[i-1].max.Format("2006-01-02"),
				spans[i].name, spans[i].min.Format("2006-01-02")))
		}
	}
	return warnings
}

func totalPages(docs []*models.ParsedDocument) int {
	n := 0
	for _, d := range docs {
		n += d.TotalPages
	}
	return n
}
