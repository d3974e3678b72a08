package extractor

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultRenderDPI is the rasterization resolution for the OCR path.
// 300 DPI is the sweet spot for Tesseract on A4 statements.
const DefaultRenderDPI = 300

// RenderPages rasterizes every page of a PDF to an image using pdftoppm.
// Requires poppler-utils on PATH. The returned slice is ordered by page;
// pageLimit <= 0 renders all pages.
func RenderPages(ctx context.Context, data []byte, dpi, pageLimit int) ([]image.Image, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not available (install poppler-utils): %w", err)
	}
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}

	tmpDir, err := os.MkdirTemp("", "render-pages-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp PDF: %w", err)
	}

	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if pageLimit > 0 {
		args = append(args, "-f", "1", "-l", strconv.Itoa(pageLimit))
	}
	args = append(args, pdfPath, filepath.Join(tmpDir, "page"))
	cmd := exec.CommandContext(ctx, "pdftoppm", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(out))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("read temp dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			files = append(files, filepath.Join(tmpDir, e.Name()))
		}
	}
	// pdftoppm zero-pads the page counter, so name order is page order.
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}

	images := make([]image.Image, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := imaging.Open(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(f), err)
		}
		images = append(images, img)
	}
	return images, nil
}
