// Package loader acquires radiograph images for the viewer: local files,
// HTTP fetches with transient-error retry, raw byte decoding through the
// codec registry, and export of processed buffers.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/unioslo-odont/toothnzoom-edu/config"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
	"github.com/unioslo-odont/toothnzoom-edu/utils"
)

// Loader resolves image sources into decoded pixel buffers.  Safe for
// concurrent use.
type Loader struct {
	cfg      config.Config
	registry core.Registry
	logger   core.Logger
	client   *http.Client

	// thumbnailer, when set, replaces the pure-Go thumbnail path.  The
	// libvips backend satisfies this.
	thumbnailer Thumbnailer
}

// Thumbnailer produces a size×size thumbnail straight from encoded bytes.
type Thumbnailer interface {
	Thumbnail(ctx context.Context, raw []byte, size int) (*core.PixelBuffer, error)
}

// New creates a Loader using reg for codec lookup.
func New(cfg config.Config, reg core.Registry) *Loader {
	return &Loader{
		cfg:      cfg,
		registry: reg,
		client:   &http.Client{Timeout: cfg.FetchTimeout},
	}
}

// SetLogger attaches a structured logger.
func (l *Loader) SetLogger(log core.Logger) { l.logger = log }

// SetHTTPClient overrides the fetch client (tests inject a stub transport).
func (l *Loader) SetHTTPClient(c *http.Client) { l.client = c }

// SetThumbnailer installs an accelerated thumbnail backend.
func (l *Loader) SetThumbnailer(t Thumbnailer) { l.thumbnailer = t }

// Open reads and decodes a local image file.
func (l *Loader) Open(ctx context.Context, path string) (*core.PixelBuffer, core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryInput, "loader.open", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.Metadata{}, apperrors.Wrap(apperrors.CategoryInput, "loader.open", err)
	}
	return l.Decode(ctx, data)
}

// Fetch downloads and decodes an image from url.  Network failures and
// 5xx/429 responses are retried with the configured delay; other HTTP errors
// fail immediately.
func (l *Loader) Fetch(ctx context.Context, url string) (*core.PixelBuffer, core.Metadata, error) {
	data, err := l.FetchRaw(ctx, url)
	if err != nil {
		return nil, core.Metadata{}, err
	}
	return l.Decode(ctx, data)
}

// FetchRaw downloads the image bytes with the same retry policy as Fetch but
// leaves them undecoded, e.g. for filing the original into a library.
func (l *Loader) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		data, err = l.fetchOnce(ctx, url)
		if err == nil || !apperrors.IsRetryable(err) {
			break
		}
		if attempt < l.cfg.MaxRetries {
			if l.logger != nil {
				l.logger.Warn("loader.fetch.retry", "url", url, "attempt", attempt+1, "error", err.Error())
			}
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(apperrors.CategoryFetch, "loader.fetch", ctx.Err())
			case <-time.After(l.cfg.RetryDelay):
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (l *Loader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryFetch, "loader.fetch", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperrors.Transient("loader.fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.Transient("loader.fetch", fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, apperrors.New(apperrors.CategoryFetch, "loader.fetch", fmt.Errorf("status %d", resp.StatusCode))
	}

	var r io.Reader = resp.Body
	if l.cfg.MaxImageBytes > 0 {
		r = &utils.LimitedReader{R: r, Max: l.cfg.MaxImageBytes}
	}
	buf, err := utils.DrainReader(ctx, r, l.cfg.ChunkSize)
	if err != nil {
		if errors.Is(err, utils.ErrLimit) {
			return nil, apperrors.New(apperrors.CategoryFetch, "loader.fetch", apperrors.ErrImageTooLarge)
		}
		return nil, apperrors.Transient("loader.fetch.read", err)
	}
	data := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return data, nil
}

// Decode sniffs the format of data and decodes it through the registry.
func (l *Loader) Decode(ctx context.Context, data []byte) (*core.PixelBuffer, core.Metadata, error) {
	if len(data) == 0 {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "loader.decode", apperrors.ErrEmptyInput)
	}
	if l.cfg.MaxImageBytes > 0 && int64(len(data)) > l.cfg.MaxImageBytes {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "loader.decode", apperrors.ErrImageTooLarge)
	}

	format := core.Format(utils.DetectFormat(data))
	dec, ok := l.registry.DecoderFor(format)
	if !ok {
		return nil, core.Metadata{}, apperrors.New(apperrors.CategoryDecode, "loader.decode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}

	buf, meta, err := dec.Decode(ctx, utils.BytesReader(data))
	if err != nil {
		return nil, core.Metadata{}, err
	}
	meta.SizeBytes = int64(len(data))
	if l.logger != nil {
		l.logger.Debug("loader.decode",
			"format", meta.Format, "width", meta.Width, "height", meta.Height, "bytes", meta.SizeBytes)
	}
	return buf, meta, nil
}

// Export encodes buf in the given format and writes it to path.  Quality 0
// selects the configured default.
func (l *Loader) Export(ctx context.Context, buf *core.PixelBuffer, format core.Format, quality int, path string) error {
	enc, ok := l.registry.EncoderFor(format)
	if !ok {
		return apperrors.New(apperrors.CategoryEncode, "loader.export",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	if quality <= 0 {
		quality = l.cfg.DefaultQuality
	}

	data, err := enc.Encode(ctx, buf, core.EncodeOptions{Quality: quality})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "loader.export", err)
	}
	defer f.Close()

	w := &utils.ChunkedWriter{W: f, ChunkSize: l.cfg.ChunkSize}
	if _, err := w.Write(data); err != nil {
		return apperrors.Wrap(apperrors.CategoryEncode, "loader.export.write", err)
	}
	return nil
}
