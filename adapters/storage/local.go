// Package storage persists exported radiographs together with the adjustment
// parameters that produced them, so an instructor can reopen a case and
// reproduce the exact rendered view.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// Key addresses one stored export: a course (subdirectory) plus a file name.
type Key struct {
	Course string
	Name   string
}

func (k Key) String() string { return k.Course + "/" + k.Name }

// Library stores exports on the local filesystem.  Adjustments travel as a
// side-car JSON file next to the image.
type Library struct {
	rootDir     string
	permissions os.FileMode
}

// NewLibrary creates a Library rooted at dir.
func NewLibrary(dir string, perm os.FileMode) (*Library, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("library: mkdir %s: %w", dir, err)
	}
	return &Library{rootDir: dir, permissions: perm}, nil
}

func (l *Library) absPath(key Key) string {
	return filepath.Join(l.rootDir, filepath.Clean(key.Course), filepath.Clean(key.Name))
}

func sidecarPath(imagePath string) string { return imagePath + ".adjust.json" }

// Put stores the encoded image bytes from r under key, plus adj as a side-car.
func (l *Library) Put(ctx context.Context, key Key, r io.Reader, adj core.Adjustments) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put", err)
	}

	path := l.absPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put.mkdir", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put.open", err)
	}
	defer f.Close()

	if _, err = io.Copy(f, r); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put.copy", err)
	}

	mf, err := os.OpenFile(sidecarPath(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put.sidecar", err)
	}
	defer mf.Close()
	if err := json.NewEncoder(mf).Encode(adj); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.put.sidecar", err)
	}
	return nil
}

// Get opens the stored image bytes for key.
func (l *Library) Get(ctx context.Context, key Key) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "library.get", err)
	}
	f, err := os.Open(l.absPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "library.get", fmt.Errorf("key not found: %v", key))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "library.get.open", err)
	}
	return f, nil
}

// Adjustments reads the side-car for key.  ok is false when the image exists
// without a side-car (e.g. files dropped into the library by hand).
func (l *Library) Adjustments(ctx context.Context, key Key) (adj core.Adjustments, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return adj, false, apperrors.Wrap(apperrors.CategoryStorage, "library.adjustments", err)
	}
	f, err := os.Open(sidecarPath(l.absPath(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return adj, false, nil
		}
		return adj, false, apperrors.Wrap(apperrors.CategoryStorage, "library.adjustments.open", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&adj); err != nil {
		return adj, false, apperrors.Wrap(apperrors.CategoryStorage, "library.adjustments.decode", err)
	}
	return adj.Clamped(), true, nil
}

// Delete removes the image and its side-car.  Deleting an absent key is not
// an error.
func (l *Library) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.delete", err)
	}
	path := l.absPath(key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "library.delete", err)
	}
	_ = os.Remove(sidecarPath(path))
	return nil
}

// Exists reports whether key has stored image bytes.
func (l *Library) Exists(ctx context.Context, key Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "library.exists", err)
	}
	_, err := os.Stat(l.absPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "library.exists.stat", err)
}

// List returns the sorted keys stored under course, skipping side-car files.
func (l *Library) List(ctx context.Context, course string) ([]Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "library.list", err)
	}
	dir := filepath.Join(l.rootDir, filepath.Clean(course))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "library.list", err)
	}

	var keys []Key
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == ".json" {
			continue
		}
		keys = append(keys, Key{Course: course, Name: e.Name()})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys, nil
}
