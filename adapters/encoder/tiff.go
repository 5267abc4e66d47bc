package encoder

import (
	"bytes"
	"context"

	"golang.org/x/image/tiff"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// TIFF encodes buffers to Deflate-compressed TIFF, the format radiograph
// archives expect for lossless interchange.
type TIFF struct{}

func NewTIFF() *TIFF { return &TIFF{} }

func (t *TIFF) CanEncode(format core.Format) bool { return format == core.FormatTIFF }

func (t *TIFF) Encode(ctx context.Context, src *core.PixelBuffer, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "tiff.encode", err)
	}
	if src.Empty() {
		return nil, apperrors.New(apperrors.CategoryEncode, "tiff.encode", apperrors.ErrEmptyInput)
	}

	var buf bytes.Buffer
	err := tiff.Encode(&buf, src.Image(), &tiff.Options{
		Compression: tiff.Deflate,
		Predictor:   true,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "tiff.encode", err)
	}
	return buf.Bytes(), nil
}
