package preprocess

import (
	"image"
	"math"
)

const (
	skewMaxDeg  = 10.0
	skewStepDeg = 0.5
	// darkPixel: luminosity below this counts as text ink for projection.
	darkPixel = 128
)

// DetectSkew estimates the rotation of text lines in degrees, positive for
// counter-clockwise skew. It projects sampled dark pixels onto the vertical
// axis for candidate angles in −10°..+10° (0.5° steps) and keeps the angle
// whose projection has the highest variance: well-aligned text lines produce
// sharp row peaks.
func DetectSkew(img image.Image) float64 {
	b := img.Bounds()
	if b.Dx() < 8 || b.Dy() < 8 {
		return 0
	}
	stride := sampleStride(b)

	type pt struct{ x, y float64 }
	var dark []pt
	for y := b.Min.Y; y < b.Max.Y; y += stride {
		for x := b.Min.X; x < b.Max.X; x += stride {
			if luma(img.At(x, y)) < darkPixel {
				dark = append(dark, pt{float64(x - b.Min.X), float64(y - b.Min.Y)})
			}
		}
	}
	if len(dark) < 32 {
		return 0
	}

	// A negative candidate angle pushes yr as low as -width*sin(10°); shift
	// the projection by that much so every sample lands in a bin instead of
	// being dropped, which would bias the variance against negative skews.
	shift := float64(b.Dx()) * math.Sin(skewMaxDeg*math.Pi/180)
	bins := (b.Dy()+2*int(shift))/stride + 2
	proj := make([]float64, bins)

	bestAngle, bestVar := 0.0, -1.0
	for angle := -skewMaxDeg; angle <= skewMaxDeg+1e-9; angle += skewStepDeg {
		rad := angle * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)

		for i := range proj {
			proj[i] = 0
		}
		for _, p := range dark {
			yr := p.x*sin + p.y*cos + shift
			bin := int(yr) / stride
			if bin >= 0 && bin < bins {
				proj[bin]++
			}
		}

		v := variance(proj)
		if v > bestVar {
			bestVar = v
			bestAngle = angle
		}
	}
	return bestAngle
}

func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var acc float64
	for _, v := range vals {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(vals))
}
