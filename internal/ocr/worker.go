// Package ocr wraps a reusable Tesseract recognition worker. One worker
// serves a whole processing run; it is keyed by its language set and must be
// closed when the run finishes, on every exit path.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/insightdelivered/statement-pipeline/internal/models"
)

// DefaultConfidenceThreshold is the per-word confidence below which OCR
// output is discarded entirely. Dropping instead of flagging trades recall
// for precision on noisy scans.
const DefaultConfidenceThreshold = 0.6

// Options configures a single Recognize call.
type Options struct {
	Languages           []string
	ConfidenceThreshold float64
	DPI                 int
}

// DefaultOptions returns English recognition with the default word filter.
func DefaultOptions() Options {
	return Options{
		Languages:           []string{"eng"},
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// PageResult is the recognition output for one page image.
type PageResult struct {
	Elements          []models.TextElement
	OverallConfidence float64
	ProcessingTime    time.Duration
}

// Worker owns one long-lived gosseract client. A change of language set
// tears the client down and builds a new one; this is a lifecycle rule, not
// an optimization. Workers are not safe for concurrent use — pages are
// recognized one at a time by design.
type Worker struct {
	client  *gosseract.Client
	langKey string
	log     *slog.Logger
}

// NewWorker creates an idle worker. The underlying client is created lazily
// on the first Recognize call.
func NewWorker(log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{log: log}
}

func languageKey(langs []string) string {
	if len(langs) == 0 {
		return "eng"
	}
	sorted := make([]string, len(langs))
	copy(sorted, langs)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}

func (w *Worker) ensureClient(langs []string) (*gosseract.Client, error) {
	key := languageKey(langs)
	if w.client != nil && w.langKey == key {
		return w.client, nil
	}
	if w.client != nil {
		w.log.Debug("ocr language set changed, replacing worker",
			slog.String("old", w.langKey), slog.String("new", key))
		w.client.Close()
		w.client = nil
	}

	c := gosseract.NewClient()
	if len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			c.Close()
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	// Block-of-text layout with preserved inter-word spacing: tabular column
	// alignment must survive into the flat OCR output.
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetVariable("preserve_interword_spaces", "1"); err != nil {
		c.Close()
		return nil, fmt.Errorf("set preserve_interword_spaces: %w", err)
	}

	w.client = c
	w.langKey = key
	return c, nil
}

// Recognize runs OCR on one page image and returns confidence-filtered text
// elements. Words below opts.ConfidenceThreshold are dropped, not flagged.
func (w *Worker) Recognize(ctx context.Context, img image.Image, page int, opts Options) (PageResult, error) {
	select {
	case <-ctx.Done():
		return PageResult{}, ctx.Err()
	default:
	}

	start := time.Now()
	threshold := opts.ConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}

	c, err := w.ensureClient(opts.Languages)
	if err != nil {
		return PageResult{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return PageResult{}, fmt.Errorf("encode page image: %w", err)
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return PageResult{}, fmt.Errorf("set image: %w", err)
	}
	if opts.DPI > 0 {
		if err := c.SetVariable("user_defined_dpi", fmt.Sprint(opts.DPI)); err != nil {
			return PageResult{}, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return PageResult{}, fmt.Errorf("recognize page %d: %w", page, err)
	}

	var (
		elements []models.TextElement
		sum      float64
		kept     int
	)
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		if conf < threshold {
			continue
		}
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		elements = append(elements, models.TextElement{
			Text: word,
			Bounds: models.BoundingBox{
				X:      float64(b.Box.Min.X),
				Y:      float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			PageNumber: page,
			Confidence: conf,
			Source:     models.SourceOCR,
		})
		sum += conf
		kept++
	}

	result := PageResult{
		Elements:       elements,
		ProcessingTime: time.Since(start),
	}
	if kept > 0 {
		result.OverallConfidence = sum / float64(kept)
	}
	w.log.Debug("ocr page complete",
		slog.Int("page", page),
		slog.Int("words", kept),
		slog.Int("dropped", len(boxes)-kept),
		slog.Duration("took", result.ProcessingTime))
	return result, nil
}

// Close releases the underlying Tesseract client. Safe to call more than
// once and on a worker that never recognized anything.
func (w *Worker) Close() error {
	if w.client == nil {
		return nil
	}
	err := w.client.Close()
	w.client = nil
	w.langKey = ""
	return err
}
