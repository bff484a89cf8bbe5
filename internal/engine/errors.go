package engine

import "errors"

var (
	// ErrQueueFull rejects an enqueue once the batch capacity is
	// reached. Recoverable: the caller drains with submit+fetch and
	// retries; the enqueued frames are untouched.
	ErrQueueFull = errors.New("enqueue rejected: batch capacity reached")

	// ErrNoBackend is returned when an operation needs a bound
	// execution backend and none is attached.
	ErrNoBackend = errors.New("no execution backend bound")

	// ErrBackendBound is returned by a second bind attempt; a core
	// attaches to exactly one backend for its lifetime.
	ErrBackendBound = errors.New("execution backend already bound")

	// ErrExecution wraps a backend execution failure. Recoverable at
	// the pipeline level: the cycle's frames are dropped and the
	// pipeline continues. The core never retries — the batch buffer
	// has been reused and the frames cannot be re-enqueued safely.
	ErrExecution = errors.New("backend execution failed")
)
