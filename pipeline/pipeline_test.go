package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	"github.com/unioslo-odont/toothnzoom-edu/pipeline"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func uniformBuffer(t testing.TB, w, h int, r, g, b uint8) *core.PixelBuffer {
	t.Helper()
	buf := core.NewPixelBuffer(w, h)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = r, g, b, 255
	}
	return buf
}

// impulseBuffer is a w×h uniform gray field with one brighter pixel at (x, y).
func impulseBuffer(t testing.TB, w, h, x, y int, bg, peak uint8) *core.PixelBuffer {
	t.Helper()
	buf := uniformBuffer(t, w, h, bg, bg, bg)
	i := (y*w + x) * 4
	buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = peak, peak, peak
	return buf
}

// orderHook records the sequence of stage names it observes.
type orderHook struct {
	mu    sync.Mutex
	order []string
}

func (h *orderHook) BeforeStage(_ context.Context, stage string, _ *core.PixelBuffer) {
	h.mu.Lock()
	h.order = append(h.order, stage)
	h.mu.Unlock()
}

func (h *orderHook) AfterStage(_ context.Context, _ string, _ *core.PixelBuffer, _ time.Duration, _ error) {
}

// ── Tone stage ────────────────────────────────────────────────────────────────

func TestToneStep_IdentityAtDefaults(t *testing.T) {
	src := impulseBuffer(t, 8, 8, 3, 3, 90, 200)
	out, err := (&pipeline.ToneStep{}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Equal(src) {
		t.Error("default tone mapping should be the identity")
	}
}

func TestToneStep_Brightness(t *testing.T) {
	src := uniformBuffer(t, 4, 4, 100, 100, 100)
	out, err := (&pipeline.ToneStep{Brightness: 30}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	r, g, b, a := out.At(2, 2)
	if r != 130 || g != 130 || b != 130 {
		t.Errorf("brightness +30 on 100: got (%d,%d,%d), want 130", r, g, b)
	}
	if a != 255 {
		t.Errorf("alpha changed: got %d", a)
	}
}

func TestToneStep_ContrastCollapsesAtMinimum(t *testing.T) {
	// Factor(-100) is 0, so every channel lands on the midpoint.
	src := impulseBuffer(t, 4, 4, 1, 1, 30, 220)
	out, err := (&pipeline.ToneStep{Contrast: -100}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 128 || out.Pix[i+1] != 128 || out.Pix[i+2] != 128 {
			t.Fatalf("pixel %d: got (%d,%d,%d), want 128s",
				i/4, out.Pix[i], out.Pix[i+1], out.Pix[i+2])
		}
	}
}

func TestToneStep_ExtremeGoesGray(t *testing.T) {
	// Above contrast 50 the stage maps luminance, so colour collapses to gray.
	src := uniformBuffer(t, 4, 4, 200, 40, 90)
	out, err := (&pipeline.ToneStep{Contrast: 70}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	r, g, b, a := out.At(1, 1)
	if r != g || g != b {
		t.Errorf("extreme contrast output not gray: (%d,%d,%d)", r, g, b)
	}
	if a != 255 {
		t.Errorf("alpha changed: got %d", a)
	}
}

func TestToneStep_HardThreshold(t *testing.T) {
	// contrast 95: luminance above 21.8 goes white, below goes black.
	dark := uniformBuffer(t, 2, 2, 10, 10, 10)
	bright := uniformBuffer(t, 2, 2, 180, 180, 180)

	outD, err := (&pipeline.ToneStep{Contrast: 95}).Execute(context.Background(), dark)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	outB, err := (&pipeline.ToneStep{Contrast: 95}).Execute(context.Background(), bright)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r, _, _, _ := outD.At(0, 0); r != 0 {
		t.Errorf("dark pixel under hard threshold: got %d, want 0", r)
	}
	if r, _, _, _ := outB.At(0, 0); r != 255 {
		t.Errorf("bright pixel under hard threshold: got %d, want 255", r)
	}
}

// ── Invert stage ──────────────────────────────────────────────────────────────

func TestInvertStep_Involution(t *testing.T) {
	src := impulseBuffer(t, 6, 6, 2, 4, 77, 210)
	ctx := context.Background()

	once, err := (&pipeline.InvertStep{}).Execute(ctx, src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if r, _, _, _ := once.At(0, 0); r != 255-77 {
		t.Errorf("inverted 77: got %d, want %d", r, 255-77)
	}

	twice, err := (&pipeline.InvertStep{}).Execute(ctx, once)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !twice.Equal(src) {
		t.Error("double inversion should restore the original")
	}
}

func TestInvertStep_PerChannel(t *testing.T) {
	src := core.NewPixelBuffer(1, 1)
	src.Pix[0], src.Pix[1], src.Pix[2], src.Pix[3] = 10, 20, 30, 255

	out, err := (&pipeline.InvertStep{}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	r, g, b, a := out.At(0, 0)
	if r != 245 || g != 235 || b != 225 {
		t.Errorf("inverted channels: got %d,%d,%d, want 245,235,225", r, g, b)
	}
	if a != 255 {
		t.Errorf("alpha: got %d, want 255", a)
	}
}

// ── Edge stage ────────────────────────────────────────────────────────────────

func TestEdgeStep_LaplacianValues(t *testing.T) {
	src := impulseBuffer(t, 5, 5, 2, 2, 100, 200)
	out, err := (&pipeline.EdgeStep{Strength: 1}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Centre: 200 + (4*200 - 4*100) * 0.1 = 240.
	if r, _, _, _ := out.At(2, 2); r != 240 {
		t.Errorf("centre: got %d, want 240", r)
	}
	// Interior neighbour of the impulse: 100 + (4*100 - 300 - 200) * 0.1 = 90.
	if r, _, _, _ := out.At(1, 2); r != 90 {
		t.Errorf("neighbour: got %d, want 90", r)
	}
	// Far interior pixel sees a flat neighbourhood: unchanged.
	if r, _, _, _ := out.At(1, 1); r != 100 {
		t.Errorf("flat interior: got %d, want 100", r)
	}
}

func TestEdgeStep_BorderPassesThrough(t *testing.T) {
	// Impulse directly below a border pixel: (2,0) keeps its source value only
	// if the border row is copied rather than convolved.
	src := impulseBuffer(t, 5, 5, 2, 1, 100, 200)
	out, err := (&pipeline.EdgeStep{Strength: 10}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for x := 0; x < 5; x++ {
		for _, y := range []int{0, 4} {
			if r, _, _, _ := out.At(x, y); r != 100 {
				t.Errorf("border (%d,%d): got %d, want 100", x, y, r)
			}
		}
	}
	for y := 0; y < 5; y++ {
		for _, x := range []int{0, 4} {
			if r, _, _, _ := out.At(x, y); r != 100 {
				t.Errorf("border (%d,%d): got %d, want 100", x, y, r)
			}
		}
	}
	// Interior neighbour of the impulse: 100 + (4*100 - 200 - 300) * 1.0 = 0.
	if r, _, _, _ := out.At(2, 2); r != 0 {
		t.Errorf("interior neighbour: got %d, want 0", r)
	}
}

func TestEdgeStep_TooSmallToConvolve(t *testing.T) {
	src := uniformBuffer(t, 2, 2, 50, 60, 70)
	out, err := (&pipeline.EdgeStep{Strength: 5}).Execute(context.Background(), src)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.Equal(src) {
		t.Error("2x2 buffer should pass through unchanged")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("output aliases the input")
	}
}

// ── Pipeline ──────────────────────────────────────────────────────────────────

func TestApply_DefaultsReturnEqualCopy(t *testing.T) {
	src := impulseBuffer(t, 8, 8, 4, 4, 120, 250)
	out, err := pipeline.Apply(context.Background(), src, core.Adjustments{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Equal(src) {
		t.Error("identity adjustments changed the image")
	}
	if &out.Pix[0] == &src.Pix[0] {
		t.Error("output aliases the input")
	}
}

func TestApply_NeverMutatesSource(t *testing.T) {
	src := impulseBuffer(t, 8, 8, 4, 4, 120, 250)
	snapshot := src.Clone()

	params := core.Adjustments{Brightness: 40, Contrast: 80, EdgeEnhancement: 5, Invert: true}
	out, err := pipeline.Apply(context.Background(), src, params)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !src.Equal(snapshot) {
		t.Error("source buffer was mutated")
	}
	out.Pix[0] ^= 0xFF
	if !src.Equal(snapshot) {
		t.Error("output aliases the source")
	}
}

func TestApply_EmptyBufferRoundTrips(t *testing.T) {
	out, err := pipeline.Apply(context.Background(), &core.PixelBuffer{}, core.Adjustments{Brightness: 50})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Empty() {
		t.Error("empty input should yield an empty output")
	}
}

func TestFromAdjustments_StageOrder(t *testing.T) {
	hook := &orderHook{}
	src := uniformBuffer(t, 8, 8, 100, 100, 100)

	pl := pipeline.FromAdjustments(core.Adjustments{
		Brightness: 10, Contrast: 10, EdgeEnhancement: 2, Invert: true,
	})
	pl.AddHook(hook)
	if _, _, err := pl.Run(context.Background(), src); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"tone", "invert", "edge"}
	if len(hook.order) != len(want) {
		t.Fatalf("stage count: got %v, want %v", hook.order, want)
	}
	for i := range want {
		if hook.order[i] != want[i] {
			t.Fatalf("stage order: got %v, want %v", hook.order, want)
		}
	}
}

func TestFromAdjustments_SkipsNeutralStages(t *testing.T) {
	src := uniformBuffer(t, 4, 4, 100, 100, 100)
	pl := pipeline.FromAdjustments(core.Adjustments{EdgeEnhancement: 1})
	_, timings, err := pl.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := timings["tone"]; ok {
		t.Error("neutral tone stage should be skipped")
	}
	if _, ok := timings["invert"]; ok {
		t.Error("invert stage should be skipped")
	}
	if _, ok := timings["edge"]; !ok {
		t.Error("edge stage missing from timings")
	}
}

func TestApply_MatchesManualComposition(t *testing.T) {
	src := impulseBuffer(t, 9, 7, 4, 3, 80, 230)
	ctx := context.Background()
	params := core.Adjustments{Brightness: 20, Contrast: 35, EdgeEnhancement: 2.5}

	step1, err := (&pipeline.ToneStep{Brightness: 20, Contrast: 35}).Execute(ctx, src)
	if err != nil {
		t.Fatalf("tone: %v", err)
	}
	want, err := (&pipeline.EdgeStep{Strength: 2.5}).Execute(ctx, step1)
	if err != nil {
		t.Fatalf("edge: %v", err)
	}

	got, err := pipeline.Apply(ctx, src, params)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !got.Equal(want) {
		t.Error("pipeline result differs from manual tone->edge composition")
	}
}

func TestApply_BorderUntouchedByEdgeStage(t *testing.T) {
	src := uniformBuffer(t, 10, 10, 128, 128, 128)
	ctx := context.Background()
	full := core.Adjustments{Brightness: 25, Contrast: 40, EdgeEnhancement: 7, Invert: true}
	preEdge := full
	preEdge.EdgeEnhancement = 0

	want, err := pipeline.Apply(ctx, src, preEdge)
	if err != nil {
		t.Fatalf("Apply without edge: %v", err)
	}
	got, err := pipeline.Apply(ctx, src, full)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			if y != 0 && y != src.H-1 && x != 0 && x != src.W-1 {
				continue
			}
			gr, gg, gb, ga := got.At(x, y)
			wr, wg, wb, wa := want.At(x, y)
			if gr != wr || gg != wg || gb != wb || ga != wa {
				t.Errorf("border (%d,%d): got %d,%d,%d,%d, want %d,%d,%d,%d",
					x, y, gr, gg, gb, ga, wr, wg, wb, wa)
			}
		}
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := uniformBuffer(t, 4, 4, 100, 100, 100)
	_, _, err := pipeline.FromAdjustments(core.Adjustments{Brightness: 10}).Run(ctx, src)
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error chain does not contain context.Canceled: %v", err)
	}
}

// ── Benchmarks ────────────────────────────────────────────────────────────────

func BenchmarkApply_ToneOnly_1MP(b *testing.B) {
	src := uniformBuffer(b, 1000, 1000, 120, 110, 100)
	params := core.Adjustments{Brightness: 20, Contrast: 30}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pipeline.Apply(context.Background(), src, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply_FullChain_1MP(b *testing.B) {
	src := uniformBuffer(b, 1000, 1000, 120, 110, 100)
	params := core.Adjustments{Brightness: 20, Contrast: 30, EdgeEnhancement: 3, Invert: true}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pipeline.Apply(context.Background(), src, params); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkApply_ExtremeContrast_1MP(b *testing.B) {
	src := uniformBuffer(b, 1000, 1000, 120, 110, 100)
	params := core.Adjustments{Contrast: 80}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pipeline.Apply(context.Background(), src, params); err != nil {
			b.Fatal(err)
		}
	}
}
