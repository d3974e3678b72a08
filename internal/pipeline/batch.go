package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/statement-pipeline/internal/merge"
	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// BatchFile is one input to batch processing.
type BatchFile struct {
	Name string
	Data []byte
}

// BatchOptions extends the per-file options with merge behavior.
type BatchOptions struct {
	Options
	Merge merge.Options
}

// DefaultBatchOptions returns the production batch configuration.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Options: DefaultOptions(),
		Merge:   merge.DefaultOptions(),
	}
}

// ProcessBatch converts several files and merges the successful results.
// Files are processed strictly one at a time to bound peak memory. A batch
// where every file fails still returns a well-formed empty result.
func (p *Processor) ProcessBatch(ctx context.Context, files []BatchFile, opts BatchOptions) models.BatchProcessingResult {
	start := time.Now()
	batchID := uuid.NewString()
	log := p.log.With(slog.String("batch", batchID))
	log.Info("batch started", slog.Int("files", len(files)))

	result := models.BatchProcessingResult{
		BatchID:  batchID,
		Files:    []models.FileStatus{},
		Warnings: []string{},
	}

	var docs []*models.ParsedDocument
	var names []string
	for _, f := range files {
		status := models.FileStatus{FileName: f.Name}
		fileRes := p.ProcessPDF(ctx, f.Name, f.Data, opts.Options)
		if fileRes.Success {
			status.Success = true
			status.TotalTransactions = fileRes.TotalTransactions
			docs = append(docs, fileRes.Document)
			names = append(names, f.Name)
		} else if len(fileRes.Errors) > 0 {
			status.Error = fileRes.Errors[0]
		} else {
			status.Error = "processing failed"
		}
		result.Files = append(result.Files, status)
	}

	sendProgress(opts.Progress, models.StageMerge, 90, "merging results")
	merged, mergeReport := merge.Merge(docs, names, opts.Merge)
	result.Merged = merged
	result.Duplicates = mergeReport.Duplicates
	result.Warnings = append(result.Warnings, mergeReport.Warnings...)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	log.Info("batch complete",
		slog.Int("succeeded", len(docs)),
		slog.Int("failed", len(files)-len(docs)),
		slog.Int("mergedTransactions", merged.TotalTransactions),
		slog.Int64("tookMs", result.ProcessingTimeMs))
	return result
}
