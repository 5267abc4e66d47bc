// Package decoder provides format-specific radiograph decoders.
package decoder

import (
	"context"
	"image"
	"image/jpeg"
	"io"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// JPEG decodes JPEG images using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}

	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}
	return toBuffer(img, core.FormatJPEG)
}

// toBuffer converts a decoded image.Image into the pixel buffer plus metadata
// every decoder in this package returns.
func toBuffer(img image.Image, f core.Format) (*core.PixelBuffer, core.Metadata, error) {
	buf := core.FromImage(img)
	if buf.Empty() {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, string(f)+".decode", apperrors.ErrInvalidDimensions)
	}
	meta := core.Metadata{
		Width:    buf.W,
		Height:   buf.H,
		Format:   f,
		HasAlpha: hasAlpha(img),
	}
	return buf, meta, nil
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}
