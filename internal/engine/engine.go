// Package engine drives the inference request lifecycle: frames are
// enqueued into an execution backend's input tensor, submitted as one
// batch, and fetched back as typed results which are then pushed to
// observers. One Core owns one logical inference unit; it is not
// internally synchronized and must be driven from a single goroutine
// (or under external locking).
package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/blob"
	"github.com/argusvision/inferd/internal/models"
)

// State is the request lifecycle position. Every operation checks it
// on entry; calling an operation in the wrong state is a programming
// error and panics rather than producing stale reads.
type State uint8

const (
	// Idle: no frames enqueued, no pending request.
	Idle State = iota
	// Enqueuing: 1..batch frames buffered, not yet submitted.
	Enqueuing
	// Submitted: the backend has executed the batch.
	Submitted
	// Fetched: results are available for observation.
	Fetched
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Enqueuing:
		return "enqueuing"
	case Submitted:
		return "submitted"
	case Fetched:
		return "fetched"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Decoder turns raw output tensors into typed results. rois holds the
// placement rectangle of each enqueued batch slot, in original-frame
// coordinates, indexed by batch slot.
type Decoder interface {
	Decode(out backend.OutputSource, rois []image.Rectangle) ([]Result, error)
}

// Preparer is implemented by decoders whose model wants auxiliary
// inputs (e.g. a sequence indicator) filled before execution.
type Preparer interface {
	Prepare(req backend.Request) error
}

// Observer receives a fetched result set. Observe runs synchronously —
// the core does not start the next enqueue cycle until it returns —
// and must not mutate the results.
type Observer interface {
	Observe(results []Result, source string)
}

// Core is the inference engine core for one model.
type Core struct {
	name string
	desc *models.Descriptor
	dec  Decoder

	req backend.Request

	state    State
	enqueued int
	rois     []image.Rectangle
	results  []Result
}

// New builds a core for the described model. The core is unusable
// until a backend is bound.
func New(name string, desc *models.Descriptor, dec Decoder) *Core {
	return &Core{
		name: name,
		desc: desc,
		dec:  dec,
		rois: make([]image.Rectangle, 0, desc.BatchSize()),
	}
}

// Name returns the inference unit name used when notifying observers.
func (c *Core) Name() string { return c.name }

// Descriptor returns the model descriptor the core was built with.
func (c *Core) Descriptor() *models.Descriptor { return c.desc }

// State returns the current lifecycle state.
func (c *Core) State() State { return c.state }

// EnqueuedCount returns the number of frames buffered for the next
// submit.
func (c *Core) EnqueuedCount() int { return c.enqueued }

// Bind attaches an execution backend's request to the core. It may be
// called once; binding while a batch is in flight would orphan it and
// panics.
func (c *Core) Bind(b backend.Backend) error {
	c.mustState("Bind", Idle, Fetched)
	if c.req != nil {
		return ErrBackendBound
	}
	req, err := b.Request()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoBackend, err)
	}
	c.req = req
	return nil
}

// Enqueue buffers one frame for the next batch, writing its pixels
// into the input tensor at the next free batch slot. roi is the
// frame's placement rectangle relative to the originating full frame;
// it is carried through to the results untouched. Returns ErrQueueFull
// when the batch capacity is already reached, leaving the queue
// unchanged.
func (c *Core) Enqueue(frame image.Image, roi image.Rectangle) error {
	c.mustState("Enqueue", Idle, Enqueuing, Fetched)
	if c.req == nil {
		return ErrNoBackend
	}
	if c.enqueued == c.desc.BatchSize() {
		return ErrQueueFull
	}

	buf, err := c.req.Buffer(c.desc.InputName())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoBackend, err)
	}
	blob.Load(frame, buf, c.desc.ScaleFactor(), c.enqueued)

	c.rois = append(c.rois, roi)
	c.enqueued++
	c.state = Enqueuing
	return nil
}

// Submit executes the buffered batch. The canonical contract is
// blocking: Submit returns once backend execution has completed, and
// FetchResults only decodes. On an execution failure the cycle's
// frames are dropped — the core resets to Idle and the caller skips
// this cycle; re-enqueueing the same frames is not possible because
// the batch buffer has been reused.
func (c *Core) Submit(ctx context.Context) error {
	c.mustState("Submit", Enqueuing)
	if c.req == nil {
		return ErrNoBackend
	}

	if p, ok := c.dec.(Preparer); ok {
		if err := p.Prepare(c.req); err != nil {
			c.drop()
			return fmt.Errorf("%w: %w", ErrExecution, err)
		}
	}
	if err := c.req.Execute(ctx); err != nil {
		c.drop()
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}
	c.state = Submitted
	return nil
}

// FetchResults decodes the executed batch's output tensors into the
// result buffer, replacing the previous result set, and clears the
// frame queue. After a successful fetch the core accepts the next
// enqueue cycle.
func (c *Core) FetchResults() error {
	c.mustState("FetchResults", Submitted)

	results, err := c.dec.Decode(c.req, c.rois)
	if err != nil {
		c.drop()
		return fmt.Errorf("%w: %w", ErrExecution, err)
	}
	c.results = results
	c.rois = c.rois[:0]
	c.enqueued = 0
	c.state = Fetched
	return nil
}

// SubmitWait is the synchronous variant: submit and fetch as one
// step, for callers that want strict frame ordering with no
// pipelining.
func (c *Core) SubmitWait(ctx context.Context) error {
	if err := c.Submit(ctx); err != nil {
		return err
	}
	return c.FetchResults()
}

// Results returns the fetched result set. Valid only after a
// successful fetch and before the next enqueue cycle; the returned
// slice must not be mutated.
func (c *Core) Results() []Result {
	c.mustState("Results", Fetched)
	return c.results
}

// ObserveOutput pushes the fetched result set to obs. It may be called
// any number of times against the same set.
func (c *Core) ObserveOutput(obs Observer) {
	c.mustState("ObserveOutput", Fetched)
	obs.Observe(c.results, c.name)
}

func (c *Core) drop() {
	c.rois = c.rois[:0]
	c.enqueued = 0
	c.state = Idle
}

func (c *Core) mustState(op string, allowed ...State) {
	for _, s := range allowed {
		if c.state == s {
			return
		}
	}
	panic(fmt.Sprintf("engine %s: %s called in state %s", c.name, op, c.state))
}
