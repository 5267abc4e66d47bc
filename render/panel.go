package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/unioslo-odont/toothnzoom-edu/analyze"
	"github.com/unioslo-odont/toothnzoom-edu/core"
)

var (
	panelBG  = color.RGBA{24, 24, 28, 255}
	gridCol  = color.RGBA{52, 52, 60, 255}
	barCol   = color.RGBA{92, 138, 200, 255}
	curveCol = color.RGBA{235, 198, 82, 255}
	textCol  = color.RGBA{202, 202, 208, 255}
)

// Panel draws the luminance histogram of a frame with its transfer curve
// overlaid, plus a one-line stats readout.  Input gray level runs left to
// right, output bottom to top, so the identity curve is the main diagonal.
func Panel(frame *core.Frame, w, h int) image.Image {
	if w <= 0 || h <= 0 {
		w, h = 512, 200
	}
	dc := gg.NewContext(w, h)
	dc.SetColor(panelBG)
	dc.Clear()
	if frame == nil {
		return dc.Image()
	}

	const margin = 8.0
	const textH = 16.0
	plotW := float64(w) - 2*margin
	plotH := float64(h) - 2*margin - textH
	if plotW < 1 || plotH < 1 {
		return dc.Image()
	}
	x0, y0 := margin, margin

	// Quartile grid lines.
	dc.SetColor(gridCol)
	dc.SetLineWidth(1)
	for i := 1; i < 4; i++ {
		x := x0 + plotW*float64(i)/4
		dc.MoveTo(x, y0)
		dc.LineTo(x, y0+plotH)
	}
	dc.Stroke()

	// Histogram bars, normalised to the tallest luminance bucket.
	hist := &frame.Histogram
	if max := hist.MaxLum(); max > 0 {
		dc.SetColor(barCol)
		bw := plotW / 256
		for i, c := range hist.Lum {
			if c == 0 {
				continue
			}
			bh := plotH * float64(c) / float64(max)
			dc.DrawRectangle(x0+float64(i)*bw, y0+plotH-bh, bw, bh)
		}
		dc.Fill()
	}

	// Transfer curve overlay.
	dc.SetColor(curveCol)
	dc.SetLineWidth(2)
	for i, v := range frame.Curve {
		x := x0 + plotW*float64(i)/255
		y := y0 + plotH - plotH*v/255
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	// Stats readout along the bottom edge.
	stats := analyze.Describe(hist)
	label := fmt.Sprintf("mean %.1f  contrast %.1f  entropy %.2f  |  b%+d c%+d e%.1f",
		stats.Mean, stats.Contrast, stats.Entropy,
		frame.Params.Brightness, frame.Params.Contrast, frame.Params.EdgeEnhancement)
	if frame.Params.Invert {
		label += " inv"
	}
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(textCol)
	dc.DrawString(label, x0, float64(h)-margin)

	return dc.Image()
}
