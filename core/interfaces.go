package core

import (
	"context"
	"io"
)

// Decoder converts raw bytes / a reader into a pixel buffer.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns the decoded pixels plus metadata.
	Decode(ctx context.Context, r io.Reader) (*PixelBuffer, Metadata, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// Encoder serialises a pixel buffer to bytes in a target format, used when
// exporting a processed radiograph.  Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, buf *PixelBuffer, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality int // 1-100; 0 = use encoder default
}

// Presenter receives completed frames from the viewer.  Implementations blit
// the buffer and draw the readouts; they are external to the numeric core.
type Presenter interface {
	Present(ctx context.Context, frame *Frame) error
}

// PresenterFunc adapts a function to the Presenter interface.
type PresenterFunc func(ctx context.Context, frame *Frame) error

func (f PresenterFunc) Present(ctx context.Context, frame *Frame) error { return f(ctx, frame) }

// MetricsCollector receives performance observations from render passes.
type MetricsCollector interface {
	RecordProcessingTime(stage string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stage string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}
