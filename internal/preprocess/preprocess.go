// Package preprocess prepares rendered page bitmaps for OCR. The transform
// order is fixed: deskew, dark-background inversion, grayscale, contrast,
// sharpen, denoise, binarize. Skipping a step that isn't needed (no skew,
// light background) is allowed; reordering is not.
package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// skewThresholdDeg below which deskewing is skipped entirely.
	skewThresholdDeg = 0.5
	// darkMeanThreshold: mean sampled luminosity below this means the page
	// is light-on-dark and must be inverted before binarization.
	darkMeanThreshold = 128
	contrastPercent   = 40 // factor 1.4
	sharpenSigma      = 0.3
)

// Options tunes the preprocessing pipeline. Zero value disables nothing.
type Options struct {
	SkipDeskew   bool
	SkipDenoise  bool
	SkipBinarize bool
}

// Run applies the full transform pipeline and returns a grayscale image
// ready for OCR. The input is never modified.
func Run(img image.Image, opts Options) *image.Gray {
	if !opts.SkipDeskew {
		if angle := DetectSkew(img); math.Abs(angle) > skewThresholdDeg {
			img = imaging.Rotate(img, -angle, color.White)
		}
	}
	if meanLuminosity(img) < darkMeanThreshold {
		img = imaging.Invert(img)
	}

	g := imaging.Grayscale(img)
	g = imaging.AdjustContrast(g, contrastPercent)
	g = imaging.Sharpen(g, sharpenSigma)

	gray := toGray(g)
	if !opts.SkipDenoise {
		gray = medianFilter(gray)
	}
	if !opts.SkipBinarize {
		gray = Binarize(gray)
	}
	return gray
}

// toGray converts any image to image.Gray using the standard luminosity
// weights (imaging.Grayscale already applied them for NRGBA inputs).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return out
}

// meanLuminosity samples the image on a coarse grid and returns the mean
// luminosity in [0,255]. Sampling keeps the cost independent of resolution.
func meanLuminosity(img image.Image) float64 {
	b := img.Bounds()
	stride := sampleStride(b)
	var sum, n float64
	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			sum += luma(img.At(x, y))
			n++
		}
	}
	if n == 0 {
		return 255
	}
	return sum / n
}

func luma(c color.Color) float64 {
	r, g, b, _ := c.RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
}

// sampleStride picks a pixel stride so that sampled work stays bounded
// (~100k samples) regardless of scan resolution.
func sampleStride(b image.Rectangle) int {
	const targetSamples = 100_000
	total := b.Dx() * b.Dy()
	if total <= targetSamples {
		return 1
	}
	stride := int(math.Sqrt(float64(total) / targetSamples))
	if stride < 1 {
		stride = 1
	}
	return stride
}

// medianFilter applies a radius-1 median filter, a light denoise that
// removes salt-and-pepper speckle without blurring glyph edges the way a
// gaussian would.
func medianFilter(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	var window [9]uint8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < b.Min.X || nx >= b.Max.X || ny < b.Min.Y || ny >= b.Max.Y {
						continue
					}
					window[n] = img.GrayAt(nx, ny).Y
					n++
				}
			}
			out.SetGray(x, y, color.Gray{Y: median(window[:n])})
		}
	}
	return out
}

func median(vals []uint8) uint8 {
	// Insertion sort: the window is at most 9 wide.
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	return vals[len(vals)/2]
}
