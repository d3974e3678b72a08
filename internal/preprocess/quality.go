package preprocess

import (
	"image"
	"math"
)

// ScanQuality is advisory metadata about a rendered page. It never gates
// processing; low numbers only feed warnings downstream.
type ScanQuality struct {
	EstimatedDPI int     `json:"estimatedDpi"`
	SkewAngle    float64 `json:"skewAngle"`
	// Contrast in [0,1]: normalized standard deviation of sampled luminosity.
	Contrast float64 `json:"contrast"`
}

// a4WidthInches is assumed as the physical page width for DPI estimation.
// Statement scans are overwhelmingly A4 or US Letter; the half-inch
// difference doesn't matter for an advisory number.
const a4WidthInches = 8.27

// AnalyzeScan reports the estimated DPI, detected skew and contrast of a
// rendered page image.
func AnalyzeScan(img image.Image) ScanQuality {
	b := img.Bounds()
	return ScanQuality{
		EstimatedDPI: int(math.Round(float64(b.Dx()) / a4WidthInches)),
		SkewAngle:    DetectSkew(img),
		Contrast:     contrastScore(img),
	}
}

func contrastScore(img image.Image) float64 {
	b := img.Bounds()
	stride := sampleStride(b)
	var sum, sumSq, n float64
	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			l := luma(img.At(x, y))
			sum += l
			sumSq += l * l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / n
	stddev := math.Sqrt(sumSq/n - mean*mean)
	score := stddev / 128.0
	if score > 1 {
		score = 1
	}
	return score
}
