// Package pipeline sequences the stages that turn a statement PDF into a
// processing result: classify, extract or OCR, parse, score. One file at a
// time; batches run files strictly sequentially.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/insightdelivered/statement-pipeline/internal/confidence"
	"github.com/insightdelivered/statement-pipeline/internal/extractor"
	"github.com/insightdelivered/statement-pipeline/internal/models"
	"github.com/insightdelivered/statement-pipeline/internal/ocr"
	"github.com/insightdelivered/statement-pipeline/internal/parser"
	"github.com/insightdelivered/statement-pipeline/internal/preprocess"
	"github.com/insightdelivered/statement-pipeline/internal/profile"
)

// Options configures a processing run.
type Options struct {
	// ForceOCR skips the text layer and recognizes every page.
	ForceOCR bool
	// OCRLanguages are the Tesseract language codes, default eng.
	OCRLanguages []string
	// PreprocessOCR runs the image cleanup pipeline before recognition.
	// On by default via DefaultOptions.
	PreprocessOCR bool
	// MaxPages bounds how many pages are processed; <= 0 means all.
	MaxPages int
	// LocaleDetection tags the document with a currency-derived locale.
	LocaleDetection bool
	// Locale pins the document locale, bypassing detection. BCP 47 tag.
	Locale string
	// ConfidenceThreshold is the OCR per-word filter, default 0.6.
	ConfidenceThreshold float64
	// ProfileID forces a bank profile instead of detection.
	ProfileID string
	// Registry overrides the builtin bank profiles.
	Registry *profile.Registry
	// Progress receives stage updates. Sends never block: a slow consumer
	// misses updates instead of stalling the pipeline.
	Progress chan<- models.Progress
}

// DefaultOptions returns the production configuration.
func DefaultOptions() Options {
	return Options{
		OCRLanguages:        []string{"eng"},
		PreprocessOCR:       true,
		LocaleDetection:     true,
		ConfidenceThreshold: ocr.DefaultConfidenceThreshold,
	}
}

// Processor runs the conversion pipeline. Safe to reuse across files; each
// run acquires and releases its own OCR worker.
type Processor struct {
	log      *slog.Logger
	registry *profile.Registry
}

func NewProcessor(log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{log: log, registry: profile.DefaultRegistry()}
}

// ProcessPDF converts one validated PDF byte buffer. Fatal problems are
// reported in the result's Errors with PDF_PROCESSING_ERROR semantics; the
// function itself returns an error only for context cancellation.
func (p *Processor) ProcessPDF(ctx context.Context, fileName string, data []byte, opts Options) models.ProcessingResult {
	start := time.Now()
	log := p.log.With(slog.String("file", fileName))

	if opts.Registry == nil {
		opts.Registry = p.registry
	}
	if len(opts.OCRLanguages) == 0 {
		opts.OCRLanguages = []string{"eng"}
	}
	if opts.ConfidenceThreshold == 0 {
		opts.ConfidenceThreshold = ocr.DefaultConfidenceThreshold
	}

	report := func(stage string, percent int, message string) {
		sendProgress(opts.Progress, stage, percent, message)
	}

	result := models.ProcessingResult{
		Transactions: []models.ParsedTransaction{},
		Errors:       []string{},
		Warnings:     []string{},
	}
	fail := func(perr *PipelineError) models.ProcessingResult {
		log.Error("processing failed", slog.String("code", perr.Code), slog.Any("error", perr.Err))
		result.Errors = append(result.Errors, perr.Error())
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	report(models.StageUpload, 5, "validating file")
	if err := extractor.ValidatePDF(data); err != nil {
		return fail(fatal("document failed to load", err))
	}
	if n, err := extractor.ValidatedPageCount(data); err == nil {
		log.Info("document validated", slog.Int("pages", n))
		if opts.MaxPages > 0 && n > opts.MaxPages {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"processing first %d of %d pages", opts.MaxPages, n))
		}
	}

	// One worker per run, released on every exit path.
	worker := ocr.NewWorker(log)
	defer worker.Close()

	useOCR := opts.ForceOCR
	pageType := models.PageTypeScanned
	if !opts.ForceOCR {
		report(models.StageClassify, 15, "classifying first page")
		pt, err := extractor.ClassifyFirstPage(data)
		if err != nil {
			return fail(fatal("page 1 extraction failed", err))
		}
		pageType = pt
		useOCR = pt == models.PageTypeScanned
	}
	log.Info("document classified",
		slog.String("pageType", string(pageType)),
		slog.Bool("ocr", useOCR))

	pages, stats, warnings, perr := p.extractElements(ctx, data, useOCR, worker, opts, report)
	if perr != nil {
		return fail(perr)
	}
	result.Warnings = append(result.Warnings, warnings...)

	parserOpts := parser.Options{
		Registry:        opts.Registry,
		ProfileID:       opts.ProfileID,
		LocaleDetection: opts.LocaleDetection,
		Locale:          opts.Locale,
	}

	report(models.StageDetect, 70, "detecting bank format and extracting transactions")
	parseRes := parser.ProcessDocument(fileName, pages, parserOpts)

	if shouldRetryWithOCR(parseRes, useOCR, opts.ForceOCR) {
		log.Warn("text layer yielded no transactions, retrying with OCR")
		result.Warnings = append(result.Warnings, ocrFallbackWarning)
		report(models.StageOCR, 75, "running OCR fallback")

		ocrPages, ocrStats, ocrWarnings, perr := p.extractElements(ctx, data, true, worker, opts, report)
		if perr != nil {
			return fail(perr)
		}
		result.Warnings = append(result.Warnings, ocrWarnings...)
		pages, stats = ocrPages, ocrStats
		parseRes = parser.ProcessDocument(fileName, pages, parserOpts)
	}

	result.Errors = append(result.Errors, parseRes.Errors...)
	result.Warnings = append(result.Warnings, parseRes.Warnings...)
	if !parseRes.Success {
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	parseRes.Stats.OCRUsed = stats.OCRUsed
	parseRes.Stats.OCRConfidence = stats.OCRConfidence
	conf := confidence.NewBuilder().FromStats(parseRes.Stats).Finalize()

	doc := parseRes.Document
	result.Success = true
	result.Document = doc
	result.Confidence = &conf
	for _, t := range doc.Transactions() {
		result.Transactions = append(result.Transactions, *t)
	}
	result.TotalTransactions = doc.TotalTransactions
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	report(models.StageComplete, 100, fmt.Sprintf("%d transactions extracted", doc.TotalTransactions))
	log.Info("processing complete",
		slog.Int("transactions", doc.TotalTransactions),
		slog.String("grade", conf.Grade),
		slog.Int64("tookMs", result.ProcessingTimeMs))
	return result
}

const ocrFallbackWarning = "text-layer extraction found no transactions; OCR fallback applied"

// shouldRetryWithOCR reports whether a parse warrants the one-shot OCR
// fallback: the text-layer path completed cleanly but found no transactions,
// and OCR was neither used nor forced. After the fallback runs, usedOCR is
// true, so a second empty result never retries.
func shouldRetryWithOCR(res parser.Result, usedOCR, forceOCR bool) bool {
	return res.Success && res.Document != nil && res.Document.TotalTransactions == 0 &&
		!usedOCR && !forceOCR
}

// extractElements produces per-page text elements via the text layer or
// the render-preprocess-recognize path. Pages are strictly sequential:
// page N+1 never starts before page N completes.
func (p *Processor) extractElements(
	ctx context.Context,
	data []byte,
	useOCR bool,
	worker *ocr.Worker,
	opts Options,
	report func(stage string, percent int, message string),
) ([][]models.TextElement, models.PipelineStats, []string, *PipelineError) {
	var stats models.PipelineStats
	var warnings []string

	if !useOCR {
		report(models.StageExtract, 40, "extracting text layer")
		pages, err := extractor.ExtractTextElements(data, opts.MaxPages)
		if err != nil {
			return nil, stats, nil, fatal("text extraction failed", err)
		}
		return pages, stats, nil, nil
	}

	report(models.StageOCR, 30, "rendering pages")
	images, err := extractor.RenderPages(ctx, data, extractor.DefaultRenderDPI, opts.MaxPages)
	if err != nil {
		return nil, stats, nil, fatal("page render failed", err)
	}

	stats.OCRUsed = true
	ocrOpts := ocr.Options{
		Languages:           opts.OCRLanguages,
		ConfidenceThreshold: opts.ConfidenceThreshold,
		DPI:                 extractor.DefaultRenderDPI,
	}

	pages := make([][]models.TextElement, len(images))
	var confSum float64
	var confPages int
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, stats, nil, fatal("processing cancelled", err)
		}
		percent := 30 + (40*(i+1))/len(images)
		report(models.StageOCR, percent, fmt.Sprintf("recognizing page %d of %d", i+1, len(images)))

		input := img
		if opts.PreprocessOCR {
			quality := preprocess.AnalyzeScan(img)
			p.log.Debug("scan quality",
				slog.Int("page", i+1),
				slog.Int("dpi", quality.EstimatedDPI),
				slog.Float64("skew", quality.SkewAngle),
				slog.Float64("contrast", quality.Contrast))
			input = preprocess.Run(img, preprocess.Options{})
		}

		pageRes, err := worker.Recognize(ctx, input, i+1, ocrOpts)
		if err != nil {
			return nil, stats, nil, fatal(fmt.Sprintf("OCR failed on page %d", i+1), err)
		}
		pages[i] = pageRes.Elements
		if len(pageRes.Elements) > 0 {
			confSum += pageRes.OverallConfidence
			confPages++
		} else {
			warnings = append(warnings, fmt.Sprintf("page %d produced no confident OCR text", i+1))
		}
	}
	if confPages > 0 {
		stats.OCRConfidence = confSum / float64(confPages)
	}
	return pages, stats, warnings, nil
}

// sendProgress never blocks. Progress is observational; nobody gets to
// stall the pipeline by not reading it.
func sendProgress(ch chan<- models.Progress, stage string, percent int, message string) {
	if ch == nil {
		return
	}
	select {
	case ch <- models.Progress{Stage: stage, Percent: percent, Message: message}:
	default:
	}
}
