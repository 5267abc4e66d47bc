package encoder_test

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/unioslo-odont/toothnzoom-edu/adapters/encoder"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

func noiseBuffer(t testing.TB, w, h int) *core.PixelBuffer {
	t.Helper()
	buf := core.NewPixelBuffer(w, h)
	for i := 0; i < len(buf.Pix); i += 4 {
		v := uint8((i*i + 7*i) % 251)
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = v, v/2, 255-v, 255
	}
	return buf
}

func TestCanEncode(t *testing.T) {
	cases := []struct {
		name string
		enc  core.Encoder
		yes  core.Format
		no   []core.Format
	}{
		{"jpeg", encoder.NewJPEG(90), core.FormatJPEG, []core.Format{core.FormatPNG, core.FormatWebP}},
		{"png", encoder.NewPNG(), core.FormatPNG, []core.Format{core.FormatJPEG, core.FormatTIFF}},
		{"tiff", encoder.NewTIFF(), core.FormatTIFF, []core.Format{core.FormatPNG, core.FormatJPEG}},
	}
	for _, tc := range cases {
		if !tc.enc.CanEncode(tc.yes) {
			t.Errorf("%s: should encode %s", tc.name, tc.yes)
		}
		for _, f := range tc.no {
			if tc.enc.CanEncode(f) {
				t.Errorf("%s: should not encode %s", tc.name, f)
			}
		}
	}
}

func TestPNG_Lossless(t *testing.T) {
	src := noiseBuffer(t, 12, 9)
	raw, err := encoder.NewPNG().Encode(context.Background(), src, core.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if !core.FromImage(img).Equal(src) {
		t.Error("PNG export is not byte-exact")
	}
}

func TestJPEG_QualityControlsSize(t *testing.T) {
	src := noiseBuffer(t, 64, 64)
	enc := encoder.NewJPEG(90)

	lo, err := enc.Encode(context.Background(), src, core.EncodeOptions{Quality: 10})
	if err != nil {
		t.Fatalf("Encode q10: %v", err)
	}
	hi, err := enc.Encode(context.Background(), src, core.EncodeOptions{Quality: 95})
	if err != nil {
		t.Fatalf("Encode q95: %v", err)
	}
	if len(lo) >= len(hi) {
		t.Errorf("quality 10 output (%dB) should be smaller than quality 95 (%dB)", len(lo), len(hi))
	}

	// The output must be a decodable JPEG of the same dimensions.
	img, err := jpeg.Decode(bytes.NewReader(hi))
	if err != nil {
		t.Fatalf("jpeg.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Errorf("decoded size: got %v, want 64x64", b)
	}
}

func TestJPEG_DefaultQuality(t *testing.T) {
	if got := encoder.NewJPEG(0).DefaultQuality; got != 85 {
		t.Errorf("zero default: got %d, want 85", got)
	}
	if got := encoder.NewJPEG(70).DefaultQuality; got != 70 {
		t.Errorf("explicit default: got %d, want 70", got)
	}
}

func TestEncode_EmptyBuffer(t *testing.T) {
	encoders := []struct {
		name string
		enc  core.Encoder
	}{
		{"jpeg", encoder.NewJPEG(90)},
		{"png", encoder.NewPNG()},
		{"tiff", encoder.NewTIFF()},
	}
	for _, tc := range encoders {
		_, err := tc.enc.Encode(context.Background(), &core.PixelBuffer{}, core.EncodeOptions{})
		if !errors.Is(err, apperrors.ErrEmptyInput) {
			t.Errorf("%s: error chain missing ErrEmptyInput: %v", tc.name, err)
		}
	}
}
