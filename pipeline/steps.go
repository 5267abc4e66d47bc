// Package pipeline provides the built-in tone stages and the extensible Step API.
package pipeline

import (
	"context"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
	"github.com/unioslo-odont/toothnzoom-edu/tone"
)

// clamp8 converts a mapped value to a channel byte, rounding half up.
func clamp8(v float64) uint8 {
	return uint8(tone.Clamp(v) + 0.5)
}

// ── Tone (brightness / contrast) ──────────────────────────────────────────────

// ToneStep applies the brightness/contrast mapping.  Contrast values at or
// below 50 map each RGB channel independently through a 256-entry lookup
// table; above 50 the stage switches to the luminance regime and collapses
// every pixel to gray, which is the intended thresholded radiograph look.
type ToneStep struct {
	Brightness int
	Contrast   int
}

func (s *ToneStep) Name() string { return "tone" }

func (s *ToneStep) Execute(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryRender, s.Name(), err)
	}
	if buf.Empty() {
		return buf, nil
	}

	dst := core.NewPixelBuffer(buf.W, buf.H)

	if tone.Extreme(s.Contrast) {
		for i := 0; i < len(buf.Pix); i += 4 {
			lum := tone.Luminance(float64(buf.Pix[i]), float64(buf.Pix[i+1]), float64(buf.Pix[i+2]))
			v := clamp8(tone.Sigmoid(lum, s.Brightness, s.Contrast))
			dst.Pix[i] = v
			dst.Pix[i+1] = v
			dst.Pix[i+2] = v
			dst.Pix[i+3] = buf.Pix[i+3]
		}
		return dst, nil
	}

	// Channel values are 8-bit, so the linear mapping is exactly a table.
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(tone.Linear(float64(i), s.Brightness, s.Contrast))
	}
	for i := 0; i < len(buf.Pix); i += 4 {
		dst.Pix[i] = lut[buf.Pix[i]]
		dst.Pix[i+1] = lut[buf.Pix[i+1]]
		dst.Pix[i+2] = lut[buf.Pix[i+2]]
		dst.Pix[i+3] = buf.Pix[i+3]
	}
	return dst, nil
}

// ── Invert ────────────────────────────────────────────────────────────────────

// InvertStep flips each RGB channel to 255-v.  Alpha is untouched.
type InvertStep struct{}

func (s *InvertStep) Name() string { return "invert" }

func (s *InvertStep) Execute(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryRender, s.Name(), err)
	}
	if buf.Empty() {
		return buf, nil
	}

	dst := core.NewPixelBuffer(buf.W, buf.H)
	for i := 0; i < len(buf.Pix); i += 4 {
		dst.Pix[i] = 255 - buf.Pix[i]
		dst.Pix[i+1] = 255 - buf.Pix[i+1]
		dst.Pix[i+2] = 255 - buf.Pix[i+2]
		dst.Pix[i+3] = buf.Pix[i+3]
	}
	return dst, nil
}

// ── Edge enhancement ──────────────────────────────────────────────────────────

// EdgeStep sharpens with a discrete Laplacian over 3×3 neighbourhoods:
//
//	 0 -1  0
//	-1  4 -1
//	 0 -1  0
//
// applied per RGB channel with intensity Strength*0.1.  It reads the incoming
// buffer (already brightness/contrast/invert adjusted) and writes a new one,
// so it must run last.  The 1-pixel border passes through unmodified; that is
// the accepted edge policy, not clamped or replicated sampling.
type EdgeStep struct {
	Strength float64 // 0-10
}

func (s *EdgeStep) Name() string { return "edge" }

func (s *EdgeStep) Execute(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryRender, s.Name(), err)
	}
	if buf.Empty() {
		return buf, nil
	}

	dst := buf.Clone()
	if buf.W < 3 || buf.H < 3 {
		return dst, nil // no interior pixels to convolve
	}

	intensity := s.Strength * 0.1
	stride := buf.W * 4
	for y := 1; y < buf.H-1; y++ {
		row := y * stride
		for x := 1; x < buf.W-1; x++ {
			o := row + x*4
			for c := 0; c < 3; c++ {
				i := o + c
				sum := 4*int(buf.Pix[i]) -
					int(buf.Pix[i-4]) - int(buf.Pix[i+4]) -
					int(buf.Pix[i-stride]) - int(buf.Pix[i+stride])
				dst.Pix[i] = clamp8(float64(buf.Pix[i]) + float64(sum)*intensity)
			}
		}
	}
	return dst, nil
}
