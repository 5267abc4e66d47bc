package core

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	"math"
	"time"

	"github.com/unioslo-odont/toothnzoom-edu/tone"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatTIFF    Format = "tiff"
	FormatUnknown Format = "unknown"
)

// PixelBuffer is a width×height grid of RGBA pixels, one byte per channel, laid
// out row-major as R,G,B,A.  Transforms never mutate a buffer in place; each
// stage allocates a fresh one so the loaded original stays untouched and
// adjustments are always computed from the same baseline.
type PixelBuffer struct {
	W, H int
	Pix  []uint8 // len == 4*W*H
}

// NewPixelBuffer allocates a zeroed buffer.
func NewPixelBuffer(w, h int) *PixelBuffer {
	if w <= 0 || h <= 0 {
		return &PixelBuffer{}
	}
	return &PixelBuffer{W: w, H: h, Pix: make([]uint8, 4*w*h)}
}

// FromImage copies any image.Image into a non-premultiplied RGBA buffer.
func FromImage(img image.Image) *PixelBuffer {
	if img == nil {
		return &PixelBuffer{}
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return &PixelBuffer{}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &PixelBuffer{W: b.Dx(), H: b.Dy(), Pix: dst.Pix}
}

// Empty reports whether the buffer has no processable pixels.  A malformed
// buffer (byte length not matching its dimensions) counts as empty; stages
// pass it through rather than failing.
func (p *PixelBuffer) Empty() bool {
	return p == nil || p.W <= 0 || p.H <= 0 || len(p.Pix) != 4*p.W*p.H
}

// Clone returns a deep copy.  Clone of nil is nil.
func (p *PixelBuffer) Clone() *PixelBuffer {
	if p == nil {
		return nil
	}
	out := &PixelBuffer{W: p.W, H: p.H, Pix: make([]uint8, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// Equal reports dimension and byte equality.
func (p *PixelBuffer) Equal(o *PixelBuffer) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.W == o.W && p.H == o.H && bytes.Equal(p.Pix, o.Pix)
}

// At returns the RGBA channels at (x, y).  Intended for tests and spot
// checks; bulk code indexes Pix directly.
func (p *PixelBuffer) At(x, y int) (r, g, b, a uint8) {
	i := (y*p.W + x) * 4
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3]
}

// Image wraps the buffer as an *image.NRGBA without copying.  The returned
// image shares Pix with the buffer.
func (p *PixelBuffer) Image() *image.NRGBA {
	if p.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	return &image.NRGBA{Pix: p.Pix, Stride: 4 * p.W, Rect: image.Rect(0, 0, p.W, p.H)}
}

// Adjustments is the immutable parameter bundle driving the tone pipeline.
// The zero value is the identity adjustment.
type Adjustments struct {
	Brightness      int     // [-100, 100]
	Contrast        int     // [-100, 100]
	EdgeEnhancement float64 // [0, 10]
	Invert          bool
}

// Clamped returns a copy with every field forced into its domain.  Out-of-
// range values are silently clamped, never errors, so slider overshoot can
// not fault the caller.
func (a Adjustments) Clamped() Adjustments {
	a.Brightness = clampInt(a.Brightness, tone.MinBrightness, tone.MaxBrightness)
	a.Contrast = clampInt(a.Contrast, tone.MinContrast, tone.MaxContrast)
	a.EdgeEnhancement = clampFloat(a.EdgeEnhancement, tone.MinEdge, tone.MaxEdge)
	return a
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Histogram holds per-channel and luminance frequency counts.  Index i counts
// pixels whose channel value (rounded, for luminance) equals i.
type Histogram struct {
	R, G, B, Lum [256]uint32
}

// PixelCount returns the total number of pixels counted, i.e. the sum of the
// luminance channel.
func (h *Histogram) PixelCount() uint64 {
	var n uint64
	for _, c := range h.Lum {
		n += uint64(c)
	}
	return n
}

// MaxLum returns the largest luminance bucket, used to normalise bar heights.
func (h *Histogram) MaxLum() uint32 {
	var m uint32
	for _, c := range h.Lum {
		if c > m {
			m = c
		}
	}
	return m
}

// Metadata describes a decoded source image.
type Metadata struct {
	Width     int
	Height    int
	Format    Format
	SizeBytes int64
	HasAlpha  bool
}

// Frame is one completed render pass: the displayed buffer plus the readouts
// computed from it, handed to the presentation layer.
type Frame struct {
	Buffer    *PixelBuffer
	Histogram Histogram
	Curve     tone.Curve
	Params    Adjustments

	// Observability.
	Seq          uint64
	Elapsed      time.Duration
	StageTimings map[string]time.Duration
}

// Step is the fundamental pipeline building block.  Each Step transforms a
// *PixelBuffer into a new one and must be safe for concurrent use across
// goroutines.
type Step interface {
	Name() string
	Execute(ctx context.Context, buf *PixelBuffer) (*PixelBuffer, error)
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stage string, buf *PixelBuffer)
	AfterStage(ctx context.Context, stage string, buf *PixelBuffer, d time.Duration, err error)
}
