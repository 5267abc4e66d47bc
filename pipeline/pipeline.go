// Package pipeline wires tone stages together and runs hooks around them.
package pipeline

import (
	"context"
	"time"

	"github.com/unioslo-odont/toothnzoom-edu/core"
	apperrors "github.com/unioslo-odont/toothnzoom-edu/errors"
)

// Pipeline executes a sequence of Steps with hook support.  Stages are pure
// and deterministic, so there is no retry machinery here; transient failures
// only exist on the loader's network path.
type Pipeline struct {
	steps []core.Step
	hooks []core.Hook
}

// New returns an empty Pipeline.
func New() *Pipeline { return &Pipeline{} }

// FromAdjustments builds the fixed-order stage list for p: brightness/contrast
// (skipped when both are zero), inversion, then edge enhancement strictly last
// so edges are detected on the already-adjusted tones.
func FromAdjustments(p core.Adjustments) *Pipeline {
	pl := New()
	if p.Brightness != 0 || p.Contrast != 0 {
		pl.Use(&ToneStep{Brightness: p.Brightness, Contrast: p.Contrast})
	}
	if p.Invert {
		pl.Use(&InvertStep{})
	}
	if p.EdgeEnhancement > 0 {
		pl.Use(&EdgeStep{Strength: p.EdgeEnhancement})
	}
	return pl
}

// Apply runs the stage list for p over src and returns a fresh buffer.  src is
// never mutated, and the result never aliases it.  An empty or malformed src
// round-trips as an equivalent empty buffer rather than an error.
func Apply(ctx context.Context, src *core.PixelBuffer, p core.Adjustments) (*core.PixelBuffer, error) {
	out, _, err := FromAdjustments(p).Run(ctx, src)
	return out, err
}

// Use appends a step to the pipeline.  Returns the same Pipeline for chaining.
func (p *Pipeline) Use(s ...core.Step) *Pipeline {
	p.steps = append(p.steps, s...)
	return p
}

// AddHook registers an observer.
func (p *Pipeline) AddHook(h core.Hook) *Pipeline {
	p.hooks = append(p.hooks, h)
	return p
}

// Run executes the pipeline on buf.  It returns the final buffer and a map of
// per-stage timing observations.
func (p *Pipeline) Run(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, map[string]time.Duration, error) {
	timings := make(map[string]time.Duration, len(p.steps))
	if buf.Empty() {
		return buf.Clone(), timings, nil
	}

	current := buf
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return nil, timings, apperrors.Wrap(apperrors.CategoryRender, step.Name(), err)
		}

		p.callHooksBefore(ctx, step.Name(), current)
		start := time.Now()
		next, err := step.Execute(ctx, current)
		elapsed := time.Since(start)
		timings[step.Name()] = elapsed
		p.callHooksAfter(ctx, step.Name(), next, elapsed, err)
		if err != nil {
			return nil, timings, err
		}
		current = next
	}

	if current == buf {
		// All stages were skipped; still hand back a fresh buffer.
		current = buf.Clone()
	}
	return current, timings, nil
}

func (p *Pipeline) callHooksBefore(ctx context.Context, name string, buf *core.PixelBuffer) {
	for _, h := range p.hooks {
		h.BeforeStage(ctx, name, buf)
	}
}

func (p *Pipeline) callHooksAfter(ctx context.Context, name string, buf *core.PixelBuffer, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterStage(ctx, name, buf, d, err)
	}
}
