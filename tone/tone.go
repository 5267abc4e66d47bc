// Package tone holds the brightness/contrast mapping shared by the bulk
// pixel pipeline and the transfer-curve readout.  Both consumers call the
// same functions, so the on-screen curve is always a truthful preview of
// what the pixel stages do.
package tone

import "math"

// Adjustment domains.  Setters clamp into these before any mapping runs.
const (
	MinBrightness = -100
	MaxBrightness = 100
	MinContrast   = -100
	MaxContrast   = 100
	MinEdge       = 0.0
	MaxEdge       = 10.0

	// Contrast values above extremeContrast switch the mapping from the
	// per-channel linear regime to the luminance sigmoid/threshold regime.
	// Exactly 50 stays linear.
	extremeContrast = 50

	// At or above hardContrast the sigmoid collapses to a hard cut.
	hardContrast = 95
)

// Luminance returns the BT.601 luminance of an RGB triple.
func Luminance(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// Extreme reports whether contrast selects the luminance threshold regime.
func Extreme(contrast int) bool { return contrast > extremeContrast }

// Factor returns the linear-regime contrast gain: 0..1 for contrast in
// [-100,0] and 1..4 for contrast in (0,50].
func Factor(contrast int) float64 {
	if contrast <= 0 {
		return float64(contrast+100) / 100
	}
	return 1 + float64(contrast)/50*3
}

// Threshold returns the extreme-regime cut point in gray levels.
func Threshold(contrast int) float64 {
	return 128 - float64(contrast-extremeContrast)*2.36
}

// Smoothing returns the extreme-regime transition width, floored at 1.
func Smoothing(contrast int) int {
	s := 100 - contrast
	if s < 1 {
		return 1
	}
	return s
}

// Linear maps one channel value through the normal brightness/contrast
// regime.  The result is unclamped.
func Linear(v float64, brightness, contrast int) float64 {
	return (v-128)*Factor(contrast) + 128 + float64(brightness)
}

// Sigmoid maps a luminance value through the extreme regime.  At
// hardContrast and above the soft sigmoid becomes a hard threshold.
func Sigmoid(lum float64, brightness, contrast int) float64 {
	adjusted := lum + float64(brightness)
	threshold := Threshold(contrast)
	if contrast >= hardContrast {
		if adjusted > threshold {
			return 255
		}
		return 0
	}
	k := float64(Smoothing(contrast)) / 10
	return 255 / (1 + math.Exp(-(adjusted-threshold)/k))
}

// Level maps one gray level (a channel value in the linear regime, a
// luminance in the extreme regime) through the active regime and clamps the
// result into [0,255].
func Level(v float64, brightness, contrast int) float64 {
	if Extreme(contrast) {
		return Clamp(Sigmoid(v, brightness, contrast))
	}
	return Clamp(Linear(v, brightness, contrast))
}

// Map is Level followed by inversion.  This is the full pointwise model the
// transfer curve renders; edge enhancement is deliberately absent because it
// depends on neighbouring pixels and has no single-input representation.
func Map(v float64, brightness, contrast int, invert bool) float64 {
	out := Level(v, brightness, contrast)
	if invert {
		out = 255 - out
	}
	return out
}

// Clamp bounds v into [0,255].  NaN maps to 0 so pathological arithmetic can
// never leak a non-finite value into a pixel channel.
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Curve is the sampled transfer function: Curve[i] is the mapped output for
// input gray level i, clamped to [0,255] but still real-valued.
type Curve [256]float64

// CurveOf samples Map at every 8-bit input level.  Edge enhancement has no
// representation here: it reads neighbouring pixels, so it is not a function
// of a single input intensity.
func CurveOf(brightness, contrast int, invert bool) Curve {
	var c Curve
	for i := range c {
		c[i] = Map(float64(i), brightness, contrast, invert)
	}
	return c
}
