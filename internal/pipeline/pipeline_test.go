package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-pipeline/internal/models"
	"github.com/insightdelivered/statement-pipeline/internal/parser"
)

func TestSendProgressNilChannel(t *testing.T) {
	assert.NotPanics(t, func() {
		sendProgress(nil, models.StageExtract, 40, "extracting")
	})
}

func TestSendProgressNeverBlocks(t *testing.T) {
	ch := make(chan models.Progress, 1)
	sendProgress(ch, models.StageExtract, 40, "first")
	// The buffer is full; this send must be dropped, not block.
	sendProgress(ch, models.StageOCR, 50, "second")

	got := <-ch
	assert.Equal(t, models.StageExtract, got.Stage)
	assert.Equal(t, 40, got.Percent)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second update: %+v", extra)
	default:
	}
}

func TestPipelineErrorFormatting(t *testing.T) {
	cause := errors.New("broken xref table")
	perr := fatal("document failed to load", cause)

	assert.Equal(t, CodePDFProcessing, perr.Code)
	assert.False(t, perr.Recoverable)
	assert.Contains(t, perr.Error(), "PDF_PROCESSING_ERROR")
	assert.Contains(t, perr.Error(), "document failed to load")
	assert.Contains(t, perr.Error(), "broken xref table")
	assert.ErrorIs(t, perr, cause)

	bare := &PipelineError{Code: CodePDFProcessing, Message: "no cause"}
	assert.Equal(t, "PDF_PROCESSING_ERROR: no cause", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestProcessPDFRejectsInvalidBytes(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessPDF(context.Background(), "bogus.pdf", []byte("not a pdf"), DefaultOptions())

	assert.False(t, result.Success)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], CodePDFProcessing)
	assert.Empty(t, result.Transactions)
}

func TestProcessPDFRejectsEmptyInput(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessPDF(context.Background(), "empty.pdf", nil, DefaultOptions())

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
}

func TestProcessBatchNoFiles(t *testing.T) {
	p := NewProcessor(nil)
	result := p.ProcessBatch(context.Background(), nil, DefaultBatchOptions())

	assert.NotEmpty(t, result.BatchID)
	assert.Empty(t, result.Files)
	require.NotNil(t, result.Merged)
	assert.Zero(t, result.Merged.TotalTransactions)
}

func TestProcessBatchInvalidFilesReported(t *testing.T) {
	p := NewProcessor(nil)
	files := []BatchFile{
		{Name: "a.pdf", Data: []byte("junk")},
		{Name: "b.pdf", Data: nil},
	}
	result := p.ProcessBatch(context.Background(), files, DefaultBatchOptions())

	require.Len(t, result.Files, 2)
	for _, fs := range result.Files {
		assert.False(t, fs.Success)
		assert.NotEmpty(t, fs.Error)
		assert.Zero(t, fs.TotalTransactions)
	}
	require.NotNil(t, result.Merged, "an all-failed batch still merges to an empty document")
	assert.Zero(t, result.Merged.TotalTransactions)
}

func TestShouldRetryWithOCR(t *testing.T) {
	empty := func() parser.Result {
		return parser.Result{Success: true, Document: &models.ParsedDocument{}}
	}
	withTxns := empty()
	withTxns.Document.TotalTransactions = 3
	failed := parser.Result{Success: false, Document: &models.ParsedDocument{}}

	tests := []struct {
		name     string
		res      parser.Result
		usedOCR  bool
		forceOCR bool
		want     bool
	}{
		{"empty text-layer parse retries", empty(), false, false, true},
		{"transactions present, no retry", withTxns, false, false, false},
		{"OCR already ran, no retry", empty(), true, false, false},
		{"forced OCR is terminal when empty", empty(), false, true, false},
		{"parse failure is not retried", failed, false, false, false},
		{"nil document is not retried", parser.Result{Success: true}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetryWithOCR(tt.res, tt.usedOCR, tt.forceOCR))
		})
	}
}

func TestOCRFallbackIsOneShot(t *testing.T) {
	empty := parser.Result{Success: true, Document: &models.ParsedDocument{}}

	// First pass over the text layer: the fallback fires once.
	require.True(t, shouldRetryWithOCR(empty, false, false))
	// The retry runs with OCR, so a second empty result never fires again.
	assert.False(t, shouldRetryWithOCR(empty, true, false))
}

func TestOCRFallbackWarningText(t *testing.T) {
	assert.Contains(t, ocrFallbackWarning, "OCR fallback")
	assert.Contains(t, ocrFallbackWarning, "no transactions")
}
