// Package backend defines the execution backend contract: a compiled
// network exposing one execution request with named tensor buffers.
// Implementations here are the ONNX Runtime adapter and a scriptable
// mock; inference cores only ever see these interfaces.
package backend

import (
	"context"

	"github.com/argusvision/inferd/internal/tensor"
)

// OutputSource exposes read access to named output tensors. Output
// contents are only meaningful after Execute has returned successfully.
type OutputSource interface {
	OutputBuffer(name string) (*tensor.Buffer, error)
}

// Request is an execution request over a compiled network. Input
// buffers are written before Execute; outputs read after. Execute
// blocks until hardware execution completes — the core defines no
// cancellation for an in-flight request.
type Request interface {
	// Buffer returns the mutable input tensor buffer with the given name.
	Buffer(name string) (*tensor.Buffer, error)

	// Execute runs the network. Blocking; returns the backend's failure
	// verbatim so callers can classify it.
	Execute(ctx context.Context) error

	OutputSource
}

// Backend owns a compiled network and its execution request. A backend
// may be shared by several inference cores targeting the same network;
// lifetime is then governed by the registry's reference counting.
type Backend interface {
	// Request returns the backend's execution request.
	Request() (Request, error)

	// Close releases the compiled network and its tensor memory.
	Close() error
}
