package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
	"github.com/unioslo-odont/toothnzoom-edu/utils"
)

// WebP decodes WebP images using golang.org/x/image/webp.
// NOTE: golang.org/x/image/webp only supports lossy WebP decoding.
// For lossless or animated WebP, register the libvips backend instead.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	// Buffer the reader; the webp decoder wants random access for its chunks.
	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "webp.drain", err)
	}
	defer utils.ReleaseBuffer(buf)

	img, err := webp.Decode(utils.BytesReader(buf.Bytes()))
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	return toBuffer(img, core.FormatWebP)
}
