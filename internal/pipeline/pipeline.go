// Package pipeline assembles inference cores into a frame-processing
// pipeline: a primary detection core scans the full frame, and
// secondary recognition cores run on sub-frames cropped at the
// detected placement rectangles. Each branch that fails stays failed
// for that cycle only; the rest of the pipeline keeps producing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log"
	"sync"
	"time"

	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/metrics"
)

// slot pairs a frame with its placement rectangle in the originating
// full frame's coordinate space.
type slot struct {
	frame image.Image
	roi   image.Rectangle
}

// Pipeline drives one primary and any number of secondary inference
// cores. Cores are single-threaded; the pipeline serializes access so
// HTTP handlers may call Process concurrently.
type Pipeline struct {
	mu        sync.Mutex
	primary   *engine.Core
	secondary []*engine.Core
	observers []engine.Observer
}

// New builds a pipeline. primary runs on the full frame; each
// secondary core runs on the primary's detections. Branches whose
// model failed to load are simply not passed in — the pipeline never
// sees them.
func New(primary *engine.Core, secondary []*engine.Core, observers ...engine.Observer) *Pipeline {
	return &Pipeline{primary: primary, secondary: secondary, observers: observers}
}

// Process runs one frame through every branch and returns the combined
// result set. A primary execution failure drops the whole cycle and is
// returned; a secondary branch failure drops only that branch's frames
// for this cycle, is logged and counted, and processing continues.
func (p *Pipeline) Process(ctx context.Context, frame image.Image) ([]engine.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	detections, err := p.runCycles(ctx, p.primary, []slot{{frame: frame, roi: frame.Bounds()}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.primary.Name(), err)
	}

	combined := append([]engine.Result(nil), detections...)

	if len(detections) > 0 {
		slots := make([]slot, 0, len(detections))
		for _, det := range detections {
			slots = append(slots, slot{frame: crop(frame, det.Location), roi: det.Location})
		}
		for _, core := range p.secondary {
			results, err := p.runCycles(ctx, core, slots)
			combined = append(combined, results...)
			if err != nil {
				log.Printf("[%s] cycle dropped: %v", core.Name(), err)
			}
		}
	}
	return combined, nil
}

// runCycles pushes slots through one core, flushing whenever the batch
// capacity fills. Flow control over the bounded queue lives here: the
// core rejects over-capacity enqueues and the pipeline drains before
// retrying.
func (p *Pipeline) runCycles(ctx context.Context, core *engine.Core, slots []slot) ([]engine.Result, error) {
	var collected []engine.Result

	for _, s := range slots {
		err := core.Enqueue(s.frame, s.roi)
		if errors.Is(err, engine.ErrQueueFull) {
			results, ferr := p.flush(ctx, core)
			if ferr != nil {
				return collected, ferr
			}
			collected = append(collected, results...)
			err = core.Enqueue(s.frame, s.roi)
		}
		if err != nil {
			return collected, err
		}
	}
	if core.EnqueuedCount() > 0 {
		results, err := p.flush(ctx, core)
		if err != nil {
			return collected, err
		}
		collected = append(collected, results...)
	}
	return collected, nil
}

// flush submits the buffered batch, fetches its results, and notifies
// observers. On an execution failure the batch's frames are dropped
// and counted; the caller decides whether its cycle can continue.
func (p *Pipeline) flush(ctx context.Context, core *engine.Core) ([]engine.Result, error) {
	batch := core.EnqueuedCount()
	metrics.RecordInferenceBatch(core.Name(), batch)

	start := time.Now()
	if err := core.Submit(ctx); err != nil {
		metrics.RecordDroppedFrames(core.Name(), batch)
		return nil, err
	}
	if err := core.FetchResults(); err != nil {
		metrics.RecordDroppedFrames(core.Name(), batch)
		return nil, err
	}
	metrics.RecordInferenceLatency(core.Name(), time.Since(start).Seconds())

	results := core.Results()
	for _, r := range results {
		metrics.RecordResults(r.Payload.Kind(), 1)
	}
	for _, obs := range p.observers {
		core.ObserveOutput(obs)
	}
	return results, nil
}

// crop extracts the sub-frame at rect, sharing pixels when the source
// supports sub-imaging and copying otherwise.
func crop(frame image.Image, rect image.Rectangle) image.Image {
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := frame.(subImager); ok {
		return si.SubImage(rect)
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), frame, rect.Min, draw.Src)
	return out
}
