package extractor

import (
	"strings"
	"unicode"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// commonWords appear in virtually every bank statement. Extracted text that
// contains none of them is almost certainly mis-decoded font garbage.
var commonWords = []string{
	"bank", "account", "balance", "date", "payment", "statement",
	"total", "amount", "credit", "debit", "transaction", "sort code",
	"money", "paid", "opening", "closing", "transfer", "direct",
	"number", "page", "period",
}

// isReadable checks that extracted pages contain enough text, that the text
// is mostly plain ASCII (not decode garbage), and that at least one
// statement word appears. Identity-encoded fonts produce accented soup that
// unicode.IsLetter happily accepts, hence the strict ASCII check.
func isReadable(pages [][]models.TextElement) bool {
	combined := CombinedText(pages)
	if len(strings.TrimSpace(combined)) <= 50 {
		return false
	}
	if textQuality(combined) <= 0.6 {
		return false
	}
	lower := strings.ToLower(combined)
	for _, word := range commonWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// textQuality returns the ratio of basic readable characters to total.
func textQuality(text string) float64 {
	total, readable := 0, 0
	for _, r := range text {
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
			strings.ContainsRune(`.,-/:;()'"£$€%&@#!?+=*`, r) {
			readable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}
