package loader

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// Thumb is one film-strip entry: a square thumbnail plus the path it came
// from, so selecting it can load the full image.
type Thumb struct {
	Path   string
	Buffer *core.PixelBuffer
}

var thumbExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// ScanThumbnails walks dir (non-recursive) and produces a thumbnail for every
// image file, in name order.  Files that fail to decode are logged and
// skipped; a corrupt scan must not empty the whole strip.  Decodes run on a
// bounded worker set.
func (l *Loader) ScanThumbnails(ctx context.Context, dir string) ([]Thumb, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "loader.scan", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !thumbExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, nil
	}

	workers := l.cfg.ScanWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	results := make([]*Thumb, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			buf, err := l.thumbnail(ctx, path)
			if err != nil {
				if l.logger != nil {
					l.logger.Warn("loader.scan.skip", "path", path, "error", err.Error())
				}
				return
			}
			results[idx] = &Thumb{Path: path, Buffer: buf}
		}(i, p)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "loader.scan", err)
	}

	thumbs := make([]Thumb, 0, len(results))
	for _, t := range results {
		if t != nil {
			thumbs = append(thumbs, *t)
		}
	}
	return thumbs, nil
}

// thumbnail produces one square centre-cropped thumb.  The accelerated
// backend gets the raw bytes; the pure-Go path goes through imaging, which
// also applies EXIF orientation from intraoral camera JPEGs.
func (l *Loader) thumbnail(ctx context.Context, path string) (*core.PixelBuffer, error) {
	size := l.cfg.ThumbnailSize

	if l.thumbnailer != nil {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryInput, "loader.thumb", err)
		}
		return l.thumbnailer.Thumbnail(ctx, raw, size)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "loader.thumb", err)
	}
	small := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	return core.FromImage(small), nil
}
