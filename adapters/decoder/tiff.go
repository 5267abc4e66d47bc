package decoder

import (
	"context"
	"io"

	"golang.org/x/image/tiff"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// TIFF decodes TIFF images using golang.org/x/image/tiff.  Scanned
// radiographs are routinely archived as TIFF, so this decoder is registered
// by default alongside the web formats.
type TIFF struct{}

func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) CanDecode(format core.Format) bool {
	return format == core.FormatTIFF
}

func (t *TIFF) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}

	img, err := tiff.Decode(r)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "tiff.decode", err)
	}
	return toBuffer(img, core.FormatTIFF)
}
