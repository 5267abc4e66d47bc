// Package viewer owns the adjustment state for one loaded radiograph and
// orchestrates render passes over it.  Every pass starts from the immutable
// original buffer, so adjustments never accumulate across renders.
package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unioslo-odont/toothnzoom-edu/analyze"
	"github.com/unioslo-odont/toothnzoom-edu/config"
	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
	"github.com/unioslo-odont/toothnzoom-edu/pipeline"
	"github.com/unioslo-odont/toothnzoom-edu/tone"
)

// Viewer is the central orchestrator.  Setters are safe for concurrent use;
// attach loggers, hooks, and the presenter before Start.
type Viewer struct {
	cfg config.Config

	mu       sync.Mutex
	original *core.PixelBuffer // replaced only by Load, never mutated
	meta     core.Metadata
	params   core.Adjustments
	gen      uint64 // bumped on every state change; stale renders skip presentation

	hooks     []core.Hook
	logger    core.Logger
	metrics   core.MetricsCollector
	presenter core.Presenter

	// Render loop.  The capacity-1 signal channel is the whole coalescing
	// story: a burst of changes leaves at most one pending token, so at most
	// one recompute is in flight and at most one more is queued.
	signal    chan struct{}
	shutdown  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	// Atomic counters for lightweight internal metrics.
	seq           uint64
	renderedCount int64
	errorCount    int64
}

// New creates a Viewer with the given config.  Call Start() to launch the
// background render loop; purely synchronous use via Render() also works.
func New(cfg config.Config) *Viewer {
	return &Viewer{
		cfg:      cfg,
		signal:   make(chan struct{}, 1),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (v *Viewer) SetLogger(l core.Logger) { v.logger = l }

// SetMetrics attaches a metrics collector.
func (v *Viewer) SetMetrics(m core.MetricsCollector) { v.metrics = m }

// SetPresenter attaches the presentation sink receiving completed frames.
func (v *Viewer) SetPresenter(p core.Presenter) { v.presenter = p }

// AddHook registers an observer for render stage events.
func (v *Viewer) AddHook(h core.Hook) { v.hooks = append(v.hooks, h) }

// Start launches the background render loop.  It is idempotent.
func (v *Viewer) Start() {
	v.startOnce.Do(func() {
		v.wg.Add(1)
		go v.loop()
	})
}

// Stop shuts down the render loop and waits for an in-flight pass to finish.
// It is idempotent.
func (v *Viewer) Stop() {
	v.stopOnce.Do(func() {
		close(v.shutdown)
		v.wg.Wait()
	})
}

// ── State ─────────────────────────────────────────────────────────────────────

// Load installs a new source image and resets all adjustments, atomically, so
// no adjustment from a previous image leaks into the new one.  The buffer is
// copied; the caller keeps ownership of its own.
func (v *Viewer) Load(buf *core.PixelBuffer, meta core.Metadata) {
	v.mu.Lock()
	v.original = buf.Clone()
	v.meta = meta
	v.params = core.Adjustments{}
	v.gen++
	v.mu.Unlock()
	v.request()
}

// SetBrightness clamps and stores a new brightness, then schedules a render.
func (v *Viewer) SetBrightness(b int) {
	v.mutate(func(p *core.Adjustments) { p.Brightness = b })
}

// SetContrast clamps and stores a new contrast, then schedules a render.
func (v *Viewer) SetContrast(c int) {
	v.mutate(func(p *core.Adjustments) { p.Contrast = c })
}

// SetEdgeEnhancement clamps and stores a new edge strength, then schedules a
// render.
func (v *Viewer) SetEdgeEnhancement(e float64) {
	v.mutate(func(p *core.Adjustments) { p.EdgeEnhancement = e })
}

// SetInvert stores the inversion flag, then schedules a render.
func (v *Viewer) SetInvert(on bool) {
	v.mutate(func(p *core.Adjustments) { p.Invert = on })
}

// ToggleInvert flips the inversion flag, then schedules a render.
func (v *Viewer) ToggleInvert() {
	v.mutate(func(p *core.Adjustments) { p.Invert = !p.Invert })
}

// SetAdjustments replaces the whole bundle at once (clamped), then schedules
// a render.
func (v *Viewer) SetAdjustments(a core.Adjustments) {
	v.mutate(func(p *core.Adjustments) { *p = a })
}

// Reset restores all adjustments to their defaults, then schedules a render.
func (v *Viewer) Reset() {
	v.mutate(func(p *core.Adjustments) { *p = core.Adjustments{} })
}

// Adjustments returns a copy of the current parameter bundle.
func (v *Viewer) Adjustments() core.Adjustments {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

// Metadata returns the metadata of the loaded image.
func (v *Viewer) Metadata() core.Metadata {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.meta
}

// Loaded reports whether an image is installed.
func (v *Viewer) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.original != nil
}

func (v *Viewer) mutate(f func(*core.Adjustments)) {
	v.mu.Lock()
	f(&v.params)
	v.params = v.params.Clamped()
	v.gen++
	v.mu.Unlock()
	v.request()
}

// request leaves at most one pending token; setters never block.
func (v *Viewer) request() {
	select {
	case v.signal <- struct{}{}:
	default:
	}
}

// ── Rendering ─────────────────────────────────────────────────────────────────

// Render runs one full pass synchronously: process the original buffer with
// the current adjustments, recompute histogram and transfer curve, hand the
// frame to the presenter (if any), and return it.  Without a loaded image it
// returns ErrNoImage.
func (v *Viewer) Render(ctx context.Context) (*core.Frame, error) {
	select {
	case <-v.shutdown:
		return nil, apperrors.New(apperrors.CategoryRender, "viewer.render", apperrors.ErrViewerClosed)
	default:
	}

	v.mu.Lock()
	src := v.original
	params := v.params
	gen := v.gen
	v.mu.Unlock()

	if src == nil {
		return nil, apperrors.New(apperrors.CategoryRender, "viewer.render", apperrors.ErrNoImage)
	}

	start := time.Now()
	pl := pipeline.FromAdjustments(params)
	for _, h := range v.hooks {
		pl.AddHook(h)
	}
	out, timings, err := pl.Run(ctx, src)
	if err != nil {
		atomic.AddInt64(&v.errorCount, 1)
		return nil, err
	}

	frame := &core.Frame{
		Buffer:       out,
		Histogram:    analyze.Histogram(out),
		Curve:        tone.CurveOf(params.Brightness, params.Contrast, params.Invert),
		Params:       params,
		Seq:          atomic.AddUint64(&v.seq, 1),
		Elapsed:      time.Since(start),
		StageTimings: timings,
	}
	atomic.AddInt64(&v.renderedCount, 1)
	if v.metrics != nil {
		v.metrics.RecordThroughput(int64(len(out.Pix)))
	}
	if v.logger != nil {
		v.logger.Debug("viewer.render.done",
			"seq", frame.Seq,
			"elapsed_ms", frame.Elapsed.Milliseconds(),
			"brightness", params.Brightness,
			"contrast", params.Contrast,
			"edge", params.EdgeEnhancement,
			"invert", params.Invert,
		)
	}

	// Last write wins: if the state moved on while this pass ran, the frame
	// is stale and the queued signal re-renders; do not present it.
	v.mu.Lock()
	stale := v.gen != gen
	v.mu.Unlock()
	if !stale && v.presenter != nil {
		if err := v.presenter.Present(ctx, frame); err != nil {
			atomic.AddInt64(&v.errorCount, 1)
			return frame, apperrors.Wrap(apperrors.CategoryRender, "viewer.present", err)
		}
	}
	return frame, nil
}

// RenderedCount returns the total number of completed render passes.
func (v *Viewer) RenderedCount() int64 { return atomic.LoadInt64(&v.renderedCount) }

// ErrorCount returns the total number of render or presentation errors.
func (v *Viewer) ErrorCount() int64 { return atomic.LoadInt64(&v.errorCount) }

// ── render loop internals ─────────────────────────────────────────────────────

func (v *Viewer) loop() {
	defer v.wg.Done()
	for {
		select {
		case <-v.shutdown:
			return
		case <-v.signal:
			if d := v.cfg.Debounce; d > 0 {
				if !v.debounce(d) {
					return
				}
			}
			v.renderOnce()
		}
	}
}

// debounce waits out a burst: every further change restarts the window, so
// only the last value of the burst is rendered.  Returns false on shutdown.
func (v *Viewer) debounce(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-v.shutdown:
			return false
		case <-v.signal:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d)
		case <-timer.C:
			return true
		}
	}
}

func (v *Viewer) renderOnce() {
	_, err := v.Render(context.Background())
	if err == nil {
		return
	}
	if errors.Is(err, apperrors.ErrNoImage) {
		if v.logger != nil {
			v.logger.Debug("viewer.render.skipped", "reason", "no image loaded")
		}
		return
	}
	if v.logger != nil {
		v.logger.Error("viewer.render.error", "error", err.Error())
	}
}
