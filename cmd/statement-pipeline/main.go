package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/insightdelivered/statement-pipeline/internal/merge"
	"github.com/insightdelivered/statement-pipeline/internal/pipeline"
	"github.com/insightdelivered/statement-pipeline/internal/writer"
)

const version = "1.0.0"

// processTimeout hard-bounds one conversion run; the OCR worker is still
// released when it fires.
const processTimeout = 120 * time.Second

func main() {
	// Optional .env for local overrides such as TESSDATA_PREFIX.
	_ = godotenv.Load()

	bankFlag := flag.String("bank", "", "Bank profile id (auto-detected if omitted)")
	ocrFlag := flag.Bool("ocr", false, "Force OCR even when a text layer exists")
	langsFlag := flag.String("langs", "eng", "Comma-separated OCR language codes")
	noPreprocessFlag := flag.Bool("no-preprocess", false, "Skip image cleanup before OCR")
	maxPagesFlag := flag.Int("max-pages", 0, "Process at most this many pages (0 = all)")
	localeFlag := flag.String("locale", "", "Pin the statement locale instead of auto-detecting (e.g. en-GB)")
	mergeFlag := flag.Bool("merge", false, "Merge multiple inputs into one document")
	outputFlag := flag.String("output", "", "Output CSV file path (defaults to input filename with .csv extension)")
	jsonFlag := flag.Bool("json", false, "Write the full processing result as JSON instead of CSV")
	headerFlag := flag.Bool("header", true, "Include metadata header rows in CSV")
	verboseFlag := flag.Bool("verbose", false, "Enable debug logging")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Bank Statement Processing Pipeline
by Insight Delivered (QEA AutoLens)

Converts scanned or digital bank statement PDFs into structured,
confidence-graded transaction data.

Usage:
  statement-pipeline [flags] <input.pdf> [input2.pdf ...]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Auto-detect the bank format and convert
  statement-pipeline statement.pdf

  # Force OCR on a digital PDF
  statement-pipeline --ocr statement.pdf

  # Merge three months into one deduplicated CSV
  statement-pipeline --merge --output=q1.csv jan.pdf feb.pdf mar.pdf

  # Full machine-readable result
  statement-pipeline --json statement.pdf
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-pipeline v%s\n", version)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	opts := pipeline.DefaultOptions()
	opts.ForceOCR = *ocrFlag
	opts.PreprocessOCR = !*noPreprocessFlag
	opts.MaxPages = *maxPagesFlag
	opts.Locale = *localeFlag
	opts.ProfileID = *bankFlag
	if *langsFlag != "" {
		opts.OCRLanguages = strings.Split(*langsFlag, ",")
	}

	proc := pipeline.NewProcessor(log)

	if *mergeFlag && flag.NArg() > 1 {
		if err := runBatch(proc, flag.Args(), opts, *outputFlag, *jsonFlag, *headerFlag); err != nil {
			log.Error("batch failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	for _, inputPath := range flag.Args() {
		if err := runSingle(proc, inputPath, opts, *outputFlag, *jsonFlag, *headerFlag); err != nil {
			log.Error("processing failed", slog.String("file", inputPath), slog.Any("error", err))
			os.Exit(1)
		}
	}
}

func runSingle(proc *pipeline.Processor, inputPath string, opts pipeline.Options, outputPath string, asJSON, header bool) error {
	data, err := readPDF(inputPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	res := proc.ProcessPDF(ctx, filepath.Base(inputPath), data, opts)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.Success {
		return fmt.Errorf("conversion failed: %s", strings.Join(res.Errors, "; "))
	}

	outPath := outputPath
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + outExt(asJSON)
	}
	if asJSON {
		return writeJSON(outPath, res)
	}
	w := &writer.CSVWriter{IncludeHeader: header}
	if err := w.WriteToFile(outPath, res.Document); err != nil {
		return err
	}
	fmt.Printf("%s: %d transactions, grade %s -> %s\n",
		inputPath, res.TotalTransactions, res.Confidence.Grade, outPath)
	return nil
}

func runBatch(proc *pipeline.Processor, inputPaths []string, opts pipeline.Options, outputPath string, asJSON, header bool) error {
	var files []pipeline.BatchFile
	for _, path := range inputPaths {
		data, err := readPDF(path)
		if err != nil {
			return err
		}
		files = append(files, pipeline.BatchFile{Name: filepath.Base(path), Data: data})
	}

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout*time.Duration(len(files)))
	defer cancel()

	batchOpts := pipeline.DefaultBatchOptions()
	batchOpts.Options = opts
	batchOpts.Merge = merge.DefaultOptions()

	res := proc.ProcessBatch(ctx, files, batchOpts)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, f := range res.Files {
		if !f.Success {
			fmt.Fprintf(os.Stderr, "failed: %s: %s\n", f.FileName, f.Error)
		}
	}

	outPath := outputPath
	if outPath == "" {
		outPath = "merged" + outExt(asJSON)
	}
	if asJSON {
		return writeJSON(outPath, res)
	}
	w := &writer.CSVWriter{IncludeHeader: header}
	if err := w.WriteToFile(outPath, res.Merged); err != nil {
		return err
	}
	fmt.Printf("merged %d files: %d transactions, %d duplicate groups -> %s\n",
		len(files), res.Merged.TotalTransactions, len(res.Duplicates), outPath)
	return nil
}

func readPDF(path string) ([]byte, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil, fmt.Errorf("expected .pdf file, got %q", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func outExt(asJSON bool) string {
	if asJSON {
		return ".json"
	}
	return ".csv"
}
