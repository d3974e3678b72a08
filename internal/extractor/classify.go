package extractor

import (
	"strings"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// textBasedThreshold is the trimmed character count on page 1 above which a
// document is treated as digitally generated. A real text layer produces
// hundreds of characters on a statement's first page; scanned documents
// yield at most a few stray artifacts.
const textBasedThreshold = 200

// ClassifyFirstPage decides between the text-layer and OCR paths by
// measuring only page 1. The decision is authoritative for the whole
// document: it is never re-evaluated per page (the pipeline's OCR-fallback
// retry is the only override). A page-1 extraction failure is fatal for the
// file and is propagated as-is.
func ClassifyFirstPage(data []byte) (models.PageType, error) {
	text, err := ExtractPageText(data, 1)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) > textBasedThreshold {
		return models.PageTypeTextBased, nil
	}
	return models.PageTypeScanned, nil
}

// ClassifyText applies the same rule to already-extracted page-1 text.
func ClassifyText(firstPageText string) models.PageType {
	if len(strings.TrimSpace(firstPageText)) > textBasedThreshold {
		return models.PageTypeTextBased
	}
	return models.PageTypeScanned
}
