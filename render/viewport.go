// Package render turns completed frames into presentable images: a pan/zoom
// viewport over the displayed buffer and a histogram readout panel with the
// transfer curve overlaid.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	"github.com/unioslo-odont/toothnzoom-edu/utils"
)

// Zoom bounds.  SetZoom clamps into this range.
const (
	MinZoom = 0.0625
	MaxZoom = 32.0
)

var backdrop = color.RGBA{18, 18, 18, 255}

// Viewport maps a window of the displayed buffer onto a fixed-size
// destination.  The offset is stored in source coordinates so it is
// independent of zoom.
type Viewport struct {
	DstW, DstH int
	SrcW, SrcH int
	Zoom       float64
	OffX, OffY float64

	// Resampler controls quality vs speed.  Defaults to draw.BiLinear.
	Resampler xdraw.Interpolator
}

// NewViewport creates a 1:1 viewport of the given destination size.  Call
// SetSource (and usually Fit) once an image is available.
func NewViewport(dstW, dstH int) *Viewport {
	return &Viewport{DstW: dstW, DstH: dstH, Zoom: 1}
}

// SetSource records the dimensions of the buffer being viewed and re-clamps
// the pan against them.
func (v *Viewport) SetSource(w, h int) {
	v.SrcW, v.SrcH = w, h
	v.clamp()
}

// Fit picks the zoom that shows the whole source, centred.
func (v *Viewport) Fit() {
	if v.SrcW <= 0 || v.SrcH <= 0 || v.DstW <= 0 || v.DstH <= 0 {
		v.Zoom = 1
		v.OffX, v.OffY = 0, 0
		return
	}
	zx := float64(v.DstW) / float64(v.SrcW)
	zy := float64(v.DstH) / float64(v.SrcH)
	if zx < zy {
		v.Zoom = clampZoom(zx)
	} else {
		v.Zoom = clampZoom(zy)
	}
	v.center()
}

// SetZoom changes the zoom, keeping the viewport centre fixed on the same
// source point.
func (v *Viewport) SetZoom(z float64) {
	z = clampZoom(z)
	if v.Zoom == z {
		return
	}
	cx := v.OffX + float64(v.DstW)/(2*v.Zoom)
	cy := v.OffY + float64(v.DstH)/(2*v.Zoom)
	v.Zoom = z
	v.OffX = cx - float64(v.DstW)/(2*z)
	v.OffY = cy - float64(v.DstH)/(2*z)
	v.clamp()
}

// ZoomBy multiplies the current zoom.
func (v *Viewport) ZoomBy(f float64) { v.SetZoom(v.Zoom * f) }

// Pan moves the window by (dx, dy) destination pixels.
func (v *Viewport) Pan(dx, dy float64) {
	v.OffX += dx / v.Zoom
	v.OffY += dy / v.Zoom
	v.clamp()
}

// Visible returns the source rectangle currently inside the viewport,
// clipped to the source bounds.
func (v *Viewport) Visible() image.Rectangle {
	r := image.Rect(
		int(math.Floor(v.OffX)),
		int(math.Floor(v.OffY)),
		int(math.Ceil(v.OffX+float64(v.DstW)/v.Zoom)),
		int(math.Ceil(v.OffY+float64(v.DstH)/v.Zoom)),
	)
	return r.Intersect(image.Rect(0, 0, v.SrcW, v.SrcH))
}

// Blit draws the visible window of buf into a freshly allocated image of the
// viewport's destination size.  Area not covered by the image is filled with
// the backdrop colour.
func (v *Viewport) Blit(buf *core.PixelBuffer) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, v.DstW, v.DstH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	if buf.Empty() {
		return dst
	}

	// Destination rectangle of the whole source; Scale clips to dst bounds.
	x0 := int(math.Round(-v.OffX * v.Zoom))
	y0 := int(math.Round(-v.OffY * v.Zoom))
	x1 := int(math.Round((float64(buf.W) - v.OffX) * v.Zoom))
	y1 := int(math.Round((float64(buf.H) - v.OffY) * v.Zoom))

	sampler := v.Resampler
	if sampler == nil {
		sampler = xdraw.BiLinear
	}
	src := buf.Image()
	sampler.Scale(dst, image.Rect(x0, y0, x1, y1), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// center positions the source midpoint at the viewport midpoint.  With a
// fitted zoom the offsets go to or below zero, which Blit renders as
// letterbox margins.
func (v *Viewport) center() {
	v.OffX = (float64(v.SrcW) - float64(v.DstW)/v.Zoom) / 2
	v.OffY = (float64(v.SrcH) - float64(v.DstH)/v.Zoom) / 2
}

// clamp keeps the window on the image: no blank margin while the scaled
// image overflows an axis, centred letterboxing once it does not.
func (v *Viewport) clamp() {
	if v.SrcW <= 0 || v.SrcH <= 0 {
		return
	}
	v.OffX = clampOffset(v.OffX, v.SrcW, v.DstW, v.Zoom)
	v.OffY = clampOffset(v.OffY, v.SrcH, v.DstH, v.Zoom)
}

func clampOffset(off float64, src, dst int, zoom float64) float64 {
	window := float64(dst) / zoom
	max := float64(src) - window
	if max < 0 {
		return max / 2
	}
	if off < 0 {
		return 0
	}
	if off > max {
		return max
	}
	return off
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) || z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}

// Scale resamples buf to the requested size, preserving aspect ratio when one
// axis is 0.  A nil sampler means draw.BiLinear.
func Scale(buf *core.PixelBuffer, width, height int, sampler xdraw.Interpolator) *core.PixelBuffer {
	if buf.Empty() {
		return buf.Clone()
	}
	dstW, dstH := utils.ScaleDimensions(buf.W, buf.H, width, height)
	if dstW <= 0 || dstH <= 0 || (dstW == buf.W && dstH == buf.H) {
		return buf.Clone()
	}
	if sampler == nil {
		sampler = xdraw.BiLinear
	}
	src := buf.Image()
	dst := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	sampler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return &core.PixelBuffer{W: dstW, H: dstH, Pix: dst.Pix}
}
