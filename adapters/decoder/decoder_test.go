package decoder_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/unioslo-odont/toothnzoom-edu/adapters/decoder"
	"github.com/unioslo-odont/toothnzoom-edu/adapters/encoder"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

func TestCanDecode(t *testing.T) {
	cases := []struct {
		name string
		dec  core.Decoder
		yes  []core.Format
		no   []core.Format
	}{
		{"jpeg", decoder.NewJPEG(), []core.Format{core.FormatJPEG, core.FormatUnknown}, []core.Format{core.FormatPNG, core.FormatTIFF}},
		{"png", decoder.NewPNG(), []core.Format{core.FormatPNG}, []core.Format{core.FormatJPEG, core.FormatUnknown}},
		{"tiff", decoder.NewTIFF(), []core.Format{core.FormatTIFF}, []core.Format{core.FormatPNG, core.FormatWebP}},
		{"webp", decoder.NewWebP(), []core.Format{core.FormatWebP}, []core.Format{core.FormatJPEG, core.FormatTIFF}},
	}
	for _, tc := range cases {
		for _, f := range tc.yes {
			if !tc.dec.CanDecode(f) {
				t.Errorf("%s: should decode %s", tc.name, f)
			}
		}
		for _, f := range tc.no {
			if tc.dec.CanDecode(f) {
				t.Errorf("%s: should not decode %s", tc.name, f)
			}
		}
	}
}

func TestPNG_PreservesAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	var raw bytes.Buffer
	if err := png.Encode(&raw, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	buf, meta, err := decoder.NewPNG().Decode(context.Background(), &raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !meta.HasAlpha {
		t.Error("HasAlpha not detected for NRGBA input")
	}
	if _, _, _, a := buf.At(1, 1); a != 128 {
		t.Errorf("alpha: got %d, want 128 (non-premultiplied)", a)
	}
	if r, g, b, _ := buf.At(0, 0); r != 200 || g != 100 || b != 50 {
		t.Errorf("opaque pixel: got (%d,%d,%d), want (200,100,50)", r, g, b)
	}
}

func TestJPEG_DecodesGrayscale(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 12))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var raw bytes.Buffer
	if err := jpeg.Encode(&raw, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	buf, meta, err := decoder.NewJPEG().Decode(context.Background(), &raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if buf.W != 16 || buf.H != 12 {
		t.Errorf("dimensions: got %dx%d, want 16x12", buf.W, buf.H)
	}
	if meta.HasAlpha {
		t.Error("JPEG should never report an alpha channel")
	}
	// Uniform field survives JPEG compression exactly.
	if r, g, b, _ := buf.At(8, 6); r != 128 || g != 128 || b != 128 {
		t.Errorf("pixel: got (%d,%d,%d), want uniform 128", r, g, b)
	}
}

func TestTIFF_RoundTripsThroughEncoder(t *testing.T) {
	src := core.NewPixelBuffer(6, 4)
	for i := 0; i < len(src.Pix); i += 4 {
		v := uint8(40 + i%160)
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = v, v, v, 255
	}

	raw, err := encoder.NewTIFF().Encode(context.Background(), src, core.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, meta, err := decoder.NewTIFF().Decode(context.Background(), bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if meta.Format != core.FormatTIFF {
		t.Errorf("format: got %s, want tiff", meta.Format)
	}
	if back.W != src.W || back.H != src.H {
		t.Fatalf("dimensions: got %dx%d, want %dx%d", back.W, back.H, src.W, src.H)
	}
	for _, p := range []image.Point{{0, 0}, {3, 2}, {5, 3}} {
		gr, _, _, ga := back.At(p.X, p.Y)
		wr, _, _, _ := src.At(p.X, p.Y)
		if gr != wr || ga != 255 {
			t.Errorf("pixel %v: got (%d, a=%d), want (%d, a=255)", p, gr, ga, wr)
		}
	}
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := decoder.NewPNG().Decode(ctx, bytes.NewReader(nil))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain missing context.Canceled: %v", err)
	}
}

func TestDecode_CorruptData(t *testing.T) {
	_, _, err := decoder.NewPNG().Decode(context.Background(), bytes.NewReader([]byte("not a png")))
	if err == nil {
		t.Fatal("expected error for corrupt data")
	}
	if !apperrors.IsCategory(err, apperrors.CategoryDecode) {
		t.Errorf("category: got %v, want decode", err)
	}
}
