// Package analyze computes readouts from a displayed pixel buffer.
package analyze

import (
	"math"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	"github.com/unioslo-odont/toothnzoom-edu/tone"
)

// Histogram counts per-channel and luminance frequencies in a single pass
// over buf, O(pixel count).  buf is never mutated; an empty or malformed
// buffer yields an all-zero histogram.
func Histogram(buf *core.PixelBuffer) core.Histogram {
	var h core.Histogram
	if buf.Empty() {
		return h
	}
	for i := 0; i < len(buf.Pix); i += 4 {
		r, g, b := buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]
		h.R[r]++
		h.G[g]++
		h.B[b]++
		lum := int(tone.Luminance(float64(r), float64(g), float64(b)) + 0.5)
		// Guard float rounding at the extremes before bucketing.
		if lum < 0 {
			lum = 0
		}
		if lum > 255 {
			lum = 255
		}
		h.Lum[lum]++
	}
	return h
}

// Stats summarises the tonal content of a buffer for the readout panel.
type Stats struct {
	Mean     float64 // mean luminance
	Contrast float64 // RMS deviation from the mean
	Entropy  float64 // Shannon entropy of the luminance distribution, in bits
}

// Describe derives Stats from an already-computed histogram.
func Describe(h *core.Histogram) Stats {
	total := h.PixelCount()
	if total == 0 {
		return Stats{}
	}

	var sum float64
	for v, c := range h.Lum {
		sum += float64(v) * float64(c)
	}
	mean := sum / float64(total)

	var sqDev, entropy float64
	for v, c := range h.Lum {
		if c == 0 {
			continue
		}
		d := float64(v) - mean
		sqDev += d * d * float64(c)
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}

	return Stats{
		Mean:     mean,
		Contrast: math.Sqrt(sqDev / float64(total)),
		Entropy:  entropy,
	}
}
