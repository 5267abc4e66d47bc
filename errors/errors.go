package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode    Category = "decode"
	CategoryEncode    Category = "encode"
	CategoryRender    Category = "render"
	CategoryFetch     Category = "fetch"
	CategoryStorage   Category = "storage"
	CategoryConfig    Category = "config"
	CategoryTransient Category = "transient"
	CategoryInput     Category = "input"
)

// ViewerError is the structured error type used throughout the module.
type ViewerError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *ViewerError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ViewerError) Unwrap() error { return e.Err }

// New creates a non-retryable ViewerError.
func New(category Category, op string, err error) *ViewerError {
	return &ViewerError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable ViewerError.  The tone pipeline itself is
// deterministic and never produces these; they come from the loader's
// network path.
func Transient(op string, err error) *ViewerError {
	return &ViewerError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var ve *ViewerError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var ve *ViewerError
	if errors.As(err, &ve) {
		return ve.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrEmptyInput        = errors.New("empty input")
	ErrNoImage           = errors.New("no image loaded")
	ErrImageTooLarge     = errors.New("image exceeds configured size limit")
	ErrViewerClosed      = errors.New("viewer is stopped")
)
