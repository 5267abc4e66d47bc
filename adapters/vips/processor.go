// Package vips provides an optional libvips-powered decode backend.  It
// handles formats the pure-Go decoders cannot (lossless WebP, exotic TIFF
// variants) and is considerably faster on large scans.  Decoded images are
// normalised through a lossless PNG export so the rest of the module only
// ever sees plain pixel buffers.
package vips

import (
	"context"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
	"github.com/unioslo-odont/toothnzoom-edu/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend is a libvips-powered core.Decoder.
// Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatTIFF, core.FormatUnknown:
		return true
	}
	return false
}

func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.PixelBuffer, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}
	defer ref.Close()

	format := vipsFormatToCore(ref.Format())
	pix, err := refToBuffer(ref)
	if err != nil {
		return nil, core.Metadata{}, err
	}

	meta := core.Metadata{
		Width:     pix.W,
		Height:    pix.H,
		Format:    format,
		SizeBytes: int64(len(raw)),
		HasAlpha:  ref.HasAlpha(),
	}
	return pix, meta, nil
}

// ─── Thumbnailer ──────────────────────────────────────────────────────────────

// Thumbnail decodes raw and produces a size×size centre-cropped thumbnail via
// vips_thumbnail().  For JPEG this triggers shrink-on-load, so the full
// bitmap is never allocated; the loader's film-strip scanner uses it when a
// Backend is available.
func (b *Backend) Thumbnail(ctx context.Context, raw []byte, size int) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.thumbnail", err)
	}
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, "vips.thumbnail", apperrors.ErrEmptyInput)
	}

	ref, err := govips.NewThumbnailFromBuffer(raw, size, size, govips.InterestingCentre)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.thumbnail", err)
	}
	defer ref.Close()
	return refToBuffer(ref)
}

// refToBuffer flattens a vips image into a PixelBuffer through a lossless
// PNG round trip, which also resolves orientation and ICC concerns inside
// libvips itself.
func refToBuffer(ref *govips.ImageRef) (*core.PixelBuffer, error) {
	data, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.export", err)
	}
	img, err := png.Decode(utils.BytesReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.export.decode", err)
	}
	return core.FromImage(img), nil
}

// ─── RegisterVipsBackend ──────────────────────────────────────────────────────

// RegisterVipsBackend replaces the pure-Go decoders with libvips for all
// formats the backend handles.
func RegisterVipsBackend(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatTIFF} {
		reg.RegisterDecoder(f, b)
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func vipsFormatToCore(f govips.ImageType) core.Format {
	switch f {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	case govips.ImageTypeTIFF:
		return core.FormatTIFF
	default:
		return core.FormatUnknown
	}
}

// compile-time interface check
var _ core.Decoder = (*Backend)(nil)
