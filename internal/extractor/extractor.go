// Package extractor pulls positioned text out of PDF byte buffers. It tries
// the structured text layer first, then progressively cruder fallbacks, and
// never returns garbage text: every method's output must pass a readability
// gate before it is accepted.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// ExtractTextElements returns the text-layer elements for every page,
// indexed by zero-based page. maxPages <= 0 means all pages.
//
// Method order: Page.Content() with coordinates (best), GetTextByRow
// (layout-preserving, no X positions), raw content-stream decoding (handles
// CIDFont/Type0 encodings the library can't). The first method whose
// combined output passes the readability gate wins.
func ExtractTextElements(data []byte, maxPages int) ([][]models.TextElement, error) {
	r, err := openReader(data)
	if err != nil {
		return nil, fmt.Errorf("PDF open failed: %w", err)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if maxPages > 0 && numPages > maxPages {
		numPages = maxPages
	}

	pages := extractByContent(r, numPages)
	if isReadable(pages) {
		return pages, nil
	}

	pages = extractByRows(r, numPages)
	if isReadable(pages) {
		return pages, nil
	}

	if lines := rawTextFallback(data); len(lines) > 0 {
		pages = [][]models.TextElement{lineElements(lines, 1)}
		if isReadable(pages) {
			return pages, nil
		}
	}

	return nil, fmt.Errorf("no readable text could be extracted: the file may be image-based or use font encodings that cannot be decoded")
}

// ExtractPageText returns the plain text of a single 1-based page. Used by
// the page classifier, which only ever needs page 1.
func ExtractPageText(data []byte, pageNum int) (string, error) {
	r, err := openReader(data)
	if err != nil {
		return "", fmt.Errorf("PDF open failed: %w", err)
	}
	if pageNum < 1 || pageNum > r.NumPage() {
		return "", fmt.Errorf("page %d out of range (1..%d)", pageNum, r.NumPage())
	}

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	content := safeContent(page)
	var b strings.Builder
	for _, t := range content.Text {
		b.WriteString(t.S)
		b.WriteByte(' ')
	}
	if b.Len() > 0 {
		return b.String(), nil
	}

	// Empty content stream text: fall back to the row API.
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", nil
	}
	for _, row := range rows {
		for _, word := range row.Content {
			b.WriteString(word.S)
			b.WriteByte(' ')
		}
	}
	return b.String(), nil
}

// openReader wraps the library constructor with panic recovery: the reader
// crashes on some malformed cross-reference tables.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// safeContent reads page content with panic recovery.
func safeContent(page pdf.Page) (content pdf.Content) {
	defer func() {
		if rec := recover(); rec != nil {
			content = pdf.Content{}
		}
	}()
	return page.Content()
}

// extractByContent builds one element per text object, with coordinates and
// font metadata. PDF Y grows upward; consumers that need reading order sort
// by (page, -Y, X).
func extractByContent(r *pdf.Reader, numPages int) [][]models.TextElement {
	pages := make([][]models.TextElement, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := safeContent(page)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			el := models.TextElement{
				Text: t.S,
				Bounds: models.BoundingBox{
					X:      t.X,
					Y:      t.Y,
					Width:  t.W,
					Height: t.FontSize,
				},
				PageNumber: i,
				Confidence: 1.0,
				Source:     models.SourceTextLayer,
			}
			if t.Font != "" {
				el.Font = &models.FontInfo{
					FontName: t.Font,
					FontSize: t.FontSize,
					IsBold:   strings.Contains(strings.ToLower(t.Font), "bold"),
					IsItalic: strings.Contains(strings.ToLower(t.Font), "italic"),
				}
			}
			pages[i-1] = append(pages[i-1], el)
		}
	}
	return pages
}

// extractByRows uses the library's row reconstruction. Rows carry a
// vertical position but no horizontal detail, so each row becomes one
// element with column gaps already collapsed to spaces.
func extractByRows(r *pdf.Reader, numPages int) [][]models.TextElement {
	pages := make([][]models.TextElement, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			line := strings.TrimSpace(strings.Join(parts, " "))
			if line == "" {
				continue
			}
			pages[i-1] = append(pages[i-1], models.TextElement{
				Text:       line,
				Bounds:     models.BoundingBox{Y: float64(row.Position)},
				PageNumber: i,
				Confidence: 1.0,
				Source:     models.SourceTextLayer,
			})
		}
	}
	return pages
}

// lineElements wraps plain text lines as synthetic elements on one page,
// with the line index standing in for a vertical position.
func lineElements(lines []string, pageNum int) []models.TextElement {
	var els []models.TextElement
	y := 0.0
	for _, line := range lines {
		for _, l := range strings.Split(line, "\n") {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			els = append(els, models.TextElement{
				Text:       l,
				Bounds:     models.BoundingBox{Y: y},
				PageNumber: pageNum,
				Confidence: 1.0,
				Source:     models.SourceTextLayer,
			})
			y++
		}
	}
	return els
}

// CombinedText joins all elements' text, page by page, for detection and
// debugging.
func CombinedText(pages [][]models.TextElement) string {
	var b strings.Builder
	for _, page := range pages {
		for _, el := range page {
			b.WriteString(el.Text)
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	return b.String()
}
