// Package toothnzoom is a viewing core for intraoral radiographs: load an
// image, adjust brightness, contrast, edge enhancement, and inversion, and
// get back the displayed pixels together with the histogram and transfer
// curve computed from them.
package toothnzoom

import (
	"context"

	"github.com/unioslo-odont/toothnzoom-edu/adapters/decoder"
	"github.com/unioslo-odont/toothnzoom-edu/adapters/encoder"
	"github.com/unioslo-odont/toothnzoom-edu/analyze"
	"github.com/unioslo-odont/toothnzoom-edu/config"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	"github.com/unioslo-odont/toothnzoom-edu/loader"
	"github.com/unioslo-odont/toothnzoom-edu/pipeline"
	"github.com/unioslo-odont/toothnzoom-edu/tone"
	"github.com/unioslo-odont/toothnzoom-edu/viewer"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
	TIFF = core.FormatTIFF
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Viewer is the primary entry point: a codec registry, a loader, and the
// adjustment/render state wired together.
type Viewer struct {
	inner  *viewer.Viewer
	loader *loader.Loader
	reg    *core.DefaultRegistry
}

// New creates a fully wired Viewer with default JPEG, PNG, WebP, and TIFF
// codecs registered.  Pass a custom config.Config to override defaults.
func New(cfg config.Config) *Viewer {
	reg := core.NewRegistry()
	// Register built-in codecs.  WebP is decode-only.
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatTIFF, decoder.NewTIFF())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.DefaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatTIFF, encoder.NewTIFF())

	return &Viewer{
		inner:  viewer.New(cfg),
		loader: loader.New(cfg, reg),
		reg:    reg,
	}
}

// SetLogger attaches a structured logger to the viewer and the loader.
func (v *Viewer) SetLogger(l core.Logger) {
	v.inner.SetLogger(l)
	v.loader.SetLogger(l)
}

// SetMetrics attaches a metrics collector.
func (v *Viewer) SetMetrics(m core.MetricsCollector) { v.inner.SetMetrics(m) }

// AddHook registers an observer for render stage events.
func (v *Viewer) AddHook(h core.Hook) { v.inner.AddHook(h) }

// SetPresenter attaches the presentation sink receiving completed frames.
func (v *Viewer) SetPresenter(p core.Presenter) { v.inner.SetPresenter(p) }

// RegisterDecoder registers a custom decoder for the given format.
func (v *Viewer) RegisterDecoder(f core.Format, d core.Decoder) { v.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (v *Viewer) RegisterEncoder(f core.Format, e core.Encoder) { v.reg.RegisterEncoder(f, e) }

// Registry exposes the codec registry, e.g. for swapping in the libvips
// backend.
func (v *Viewer) Registry() core.Registry { return v.reg }

// Start launches the background render loop.
func (v *Viewer) Start() { v.inner.Start() }

// Stop shuts down the render loop and waits for an in-flight pass.
func (v *Viewer) Stop() { v.inner.Stop() }

// ── Loading ───────────────────────────────────────────────────────────────────

// OpenFile decodes a radiograph from disk and installs it, resetting all
// adjustments.
func (v *Viewer) OpenFile(ctx context.Context, path string) (core.Metadata, error) {
	buf, meta, err := v.loader.Open(ctx, path)
	if err != nil {
		return core.Metadata{}, err
	}
	v.inner.Load(buf, meta)
	return meta, nil
}

// FetchURL downloads, decodes, and installs a radiograph, retrying transient
// network failures per the configured policy.
func (v *Viewer) FetchURL(ctx context.Context, url string) (core.Metadata, error) {
	buf, meta, err := v.loader.Fetch(ctx, url)
	if err != nil {
		return core.Metadata{}, err
	}
	v.inner.Load(buf, meta)
	return meta, nil
}

// LoadBuffer installs an already-decoded buffer.
func (v *Viewer) LoadBuffer(buf *core.PixelBuffer, meta core.Metadata) {
	v.inner.Load(buf, meta)
}

// DecodeBytes decodes raw image bytes without installing them.
func (v *Viewer) DecodeBytes(ctx context.Context, data []byte) (*core.PixelBuffer, core.Metadata, error) {
	return v.loader.Decode(ctx, data)
}

// ScanThumbnails decodes every recognised image under dir into a film-strip
// thumbnail.
func (v *Viewer) ScanThumbnails(ctx context.Context, dir string) ([]loader.Thumb, error) {
	return v.loader.ScanThumbnails(ctx, dir)
}

// ── Adjustments ───────────────────────────────────────────────────────────────

// SetBrightness sets the brightness offset, clamped to [-100, 100].
func (v *Viewer) SetBrightness(b int) { v.inner.SetBrightness(b) }

// SetContrast sets the contrast, clamped to [-100, 100].
func (v *Viewer) SetContrast(c int) { v.inner.SetContrast(c) }

// SetEdgeEnhancement sets the edge strength, clamped to [0, 10].
func (v *Viewer) SetEdgeEnhancement(e float64) { v.inner.SetEdgeEnhancement(e) }

// SetInvert sets the inversion flag.
func (v *Viewer) SetInvert(on bool) { v.inner.SetInvert(on) }

// ToggleInvert flips the inversion flag.
func (v *Viewer) ToggleInvert() { v.inner.ToggleInvert() }

// SetAdjustments replaces the whole bundle at once, clamped.
func (v *Viewer) SetAdjustments(a core.Adjustments) { v.inner.SetAdjustments(a) }

// Reset restores all adjustments to their defaults.
func (v *Viewer) Reset() { v.inner.Reset() }

// Adjustments returns a copy of the current parameter bundle.
func (v *Viewer) Adjustments() core.Adjustments { return v.inner.Adjustments() }

// Metadata returns the metadata of the loaded image.
func (v *Viewer) Metadata() core.Metadata { return v.inner.Metadata() }

// ── Rendering ─────────────────────────────────────────────────────────────────

// Render runs one full pass synchronously and returns the completed frame.
func (v *Viewer) Render(ctx context.Context) (*core.Frame, error) {
	return v.inner.Render(ctx)
}

// Export encodes buf in the given format and writes it to path.
func (v *Viewer) Export(ctx context.Context, buf *core.PixelBuffer, format core.Format, quality int, path string) error {
	return v.loader.Export(ctx, buf, format, quality, path)
}

// Snapshot renders the current state and exports the displayed buffer.
func (v *Viewer) Snapshot(ctx context.Context, format core.Format, quality int, path string) error {
	frame, err := v.inner.Render(ctx)
	if err != nil {
		return err
	}
	return v.loader.Export(ctx, frame.Buffer, format, quality, path)
}

// Stats returns lightweight render statistics.
func (v *Viewer) Stats() (rendered, errors int64) {
	return v.inner.RenderedCount(), v.inner.ErrorCount()
}

// ── Direct computation ────────────────────────────────────────────────────────

// Process applies the adjustment bundle to buf and returns a fresh buffer.
// buf is never mutated.
func Process(ctx context.Context, buf *core.PixelBuffer, p core.Adjustments) (*core.PixelBuffer, error) {
	return pipeline.Apply(ctx, buf, p.Clamped())
}

// Curve samples the pointwise transfer function for the bundle at every 8-bit
// input level.
func Curve(p core.Adjustments) tone.Curve {
	p = p.Clamped()
	return tone.CurveOf(p.Brightness, p.Contrast, p.Invert)
}

// Analyze computes per-channel and luminance histograms of a buffer.
func Analyze(buf *core.PixelBuffer) core.Histogram { return analyze.Histogram(buf) }

// Describe summarises a histogram for the readout panel.
func Describe(h *core.Histogram) analyze.Stats { return analyze.Describe(h) }

// NewPipeline creates a reusable, standalone pipeline.
func NewPipeline(steps ...core.Step) *pipeline.Pipeline {
	pl := pipeline.New()
	pl.Use(steps...)
	return pl
}

// ── Step constructors ─────────────────────────────────────────────────────────

// Tone returns a brightness/contrast step.
func Tone(brightness, contrast int) core.Step {
	return &pipeline.ToneStep{Brightness: brightness, Contrast: contrast}
}

// Invert returns an inversion step.
func Invert() core.Step { return &pipeline.InvertStep{} }

// Edge returns an edge enhancement step with the given strength.
func Edge(strength float64) core.Step { return &pipeline.EdgeStep{Strength: strength} }
