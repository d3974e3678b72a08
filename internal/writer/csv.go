// Package writer serializes parsed documents for output.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// CSVWriter writes a parsed document's transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes the document to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, doc *models.ParsedDocument) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, doc)
}

// Write writes the document's transactions in CSV format. Segments are
// emitted in order; metadata rows are prefixed with # when enabled.
func (w *CSVWriter) Write(out io.Writer, doc *models.ParsedDocument) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	if w.IncludeHeader {
		if doc.FileName != "" {
			writer.Write([]string{"# Source", doc.FileName})
		}
		if doc.DetectedLocale != "" {
			writer.Write([]string{"# Locale", doc.DetectedLocale})
		}
		for i, seg := range doc.Segments {
			if seg.Period.From != "" {
				writer.Write([]string{
					fmt.Sprintf("# Segment %d Period", i+1),
					seg.Period.From + " to " + seg.Period.To,
				})
			}
		}
	}

	header := []string{"Date", "Description", "Debit", "Credit", "Balance", "Status", "Notes"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range doc.Transactions() {
		row := []string{
			txn.Date,
			txn.Description,
			formatAmount(txn.Debit),
			formatAmount(txn.Credit),
			formatAmount(txn.Balance),
			string(txn.ValidationStatus),
			strings.Join(txn.Notes, "; "),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}

func formatAmount(amount *float64) string {
	if amount == nil {
		return ""
	}
	return strconv.FormatFloat(*amount, 'f', 2, 64)
}
