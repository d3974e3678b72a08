package parser

import (
	"sort"
	"strings"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// Row is one reconstructed line of statement text.
type Row struct {
	PageNumber int
	Y          float64
	Text       string
	FromOCR    bool
}

// rowYTolerance groups elements whose vertical positions differ by less
// than this into the same row. Statement body text is 8-12pt, so half a
// line height is a safe band for both text-layer points and OCR pixels
// after normalizing per element height.
const rowYTolerance = 4.0

// buildRows reconstructs reading-order lines from positioned elements,
// page by page. Text-layer coordinates grow upward, OCR coordinates grow
// downward; rows come out top-to-bottom either way. Elements sharing a row
// are joined left to right, with a wide horizontal gap rendered as a
// double space so downstream column regexes can still see the boundary.
func buildRows(pages [][]models.TextElement) []Row {
	var rows []Row
	for pageIdx, els := range pages {
		if len(els) == 0 {
			continue
		}
		rows = append(rows, buildPageRows(pageIdx+1, els)...)
	}
	return rows
}

func buildPageRows(pageNum int, els []models.TextElement) []Row {
	ocr := els[0].Source == models.SourceOCR

	sorted := make([]models.TextElement, len(els))
	copy(sorted, els)
	sort.SliceStable(sorted, func(i, j int) bool {
		yi, yj := sorted[i].Bounds.Y, sorted[j].Bounds.Y
		if !ocr {
			// PDF origin is bottom-left; larger Y is higher on the page.
			yi, yj = -yi, -yj
		}
		if abs64(yi-yj) > rowYTolerance {
			return yi < yj
		}
		return sorted[i].Bounds.X < sorted[j].Bounds.X
	})

	var rows []Row
	var cur []models.TextElement
	flush := func() {
		if len(cur) == 0 {
			return
		}
		rows = append(rows, Row{
			PageNumber: pageNum,
			Y:          cur[0].Bounds.Y,
			Text:       joinRow(cur),
			FromOCR:    ocr,
		})
		cur = nil
	}
	for _, el := range sorted {
		if len(cur) > 0 {
			prevY, y := cur[0].Bounds.Y, el.Bounds.Y
			if abs64(y-prevY) > rowYTolerance {
				flush()
			}
		}
		cur = append(cur, el)
	}
	flush()
	return rows
}

// joinRow concatenates a row's elements left to right. A gap wider than
// roughly three character widths becomes a double space, narrower gaps a
// single space.
func joinRow(els []models.TextElement) string {
	var b strings.Builder
	for i, el := range els {
		if i > 0 {
			prev := els[i-1]
			gap := el.Bounds.X - (prev.Bounds.X + prev.Bounds.Width)
			charW := prev.Bounds.Height * 0.5
			if charW <= 0 {
				charW = 5
			}
			if gap > charW*3 {
				b.WriteString("  ")
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(el.Text)
	}
	return strings.TrimSpace(b.String())
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
