package extractor

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// relaxedConf accepts the structurally sloppy PDFs banks actually produce.
func relaxedConf() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// ValidatePDF checks that the buffer is a structurally sound PDF before any
// stage touches it. Relaxed validation: reject the truly broken, tolerate
// the merely untidy.
func ValidatePDF(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty file")
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("not a PDF file (missing %%PDF header)")
	}
	if err := api.Validate(bytes.NewReader(data), relaxedConf()); err != nil {
		return fmt.Errorf("PDF validation failed: %w", err)
	}
	return nil
}

// ValidatedPageCount returns the page count from the cross-reference table.
// More robust against damaged files than the text-layer reader's count.
func ValidatedPageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), relaxedConf())
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}
