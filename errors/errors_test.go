package errors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

func TestError_Format(t *testing.T) {
	err := apperrors.New(apperrors.CategoryDecode, "loader.decode", apperrors.ErrEmptyInput)
	want := "[decode] loader.decode: empty input"
	if got := err.Error(); got != want {
		t.Errorf("Error(): got %q, want %q", got, want)
	}
}

func TestUnwrap_ReachesSentinel(t *testing.T) {
	err := apperrors.New(apperrors.CategoryRender, "viewer.render", apperrors.ErrNoImage)
	if !errors.Is(err, apperrors.ErrNoImage) {
		t.Error("errors.Is failed to find the sentinel")
	}

	nested := apperrors.Wrap(apperrors.CategoryRender, "outer",
		apperrors.New(apperrors.CategoryDecode, "inner", apperrors.ErrEmptyInput))
	if !errors.Is(nested, apperrors.ErrEmptyInput) {
		t.Error("errors.Is failed through two wrapping levels")
	}

	var ve *apperrors.ViewerError
	if !errors.As(nested, &ve) {
		t.Fatal("errors.As failed to find ViewerError")
	}
	if ve.Op != "outer" {
		t.Errorf("As should stop at the outermost wrapper: got op %q", ve.Op)
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if err := apperrors.Wrap(apperrors.CategoryFetch, "loader.fetch", nil); err != nil {
		t.Errorf("Wrap(nil): got %v, want nil", err)
	}
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", apperrors.Transient("loader.fetch", base), true},
		{"plain viewer error", apperrors.New(apperrors.CategoryFetch, "loader.fetch", base), false},
		{"wrapped transient", fmt.Errorf("attempt 2: %w", apperrors.Transient("loader.fetch", base)), true},
		{"bare error", base, false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := apperrors.IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsCategory(t *testing.T) {
	err := apperrors.New(apperrors.CategoryStorage, "library.put", errors.New("disk full"))
	if !apperrors.IsCategory(err, apperrors.CategoryStorage) {
		t.Error("matching category not detected")
	}
	if apperrors.IsCategory(err, apperrors.CategoryDecode) {
		t.Error("mismatched category reported as matching")
	}
	if apperrors.IsCategory(errors.New("bare"), apperrors.CategoryStorage) {
		t.Error("bare error reported as categorised")
	}

	// The outermost wrapper decides the category.
	nested := apperrors.Wrap(apperrors.CategoryRender, "outer",
		apperrors.New(apperrors.CategoryDecode, "inner", errors.New("boom")))
	if !apperrors.IsCategory(nested, apperrors.CategoryRender) {
		t.Error("outermost category not detected")
	}
	if apperrors.IsCategory(nested, apperrors.CategoryDecode) {
		t.Error("inner category should be shadowed by the outer wrapper")
	}
}
