package backend

import (
	"context"
	"fmt"

	"github.com/argusvision/inferd/internal/models"
	"github.com/argusvision/inferd/internal/tensor"
)

// Mock is a scriptable execution backend for tests and --mock runs.
// It allocates the descriptor-declared tensors in plain memory and lets
// callers inspect inputs, preload outputs, and inject failures without
// the ONNX shared library.
type Mock struct {
	Req *MockRequest

	// RequestErr, when set, is returned by Request.
	RequestErr error

	closed bool
}

// MockRequest is the mock backend's execution request.
type MockRequest struct {
	Inputs  map[string]*tensor.Buffer
	Outputs map[string]*tensor.Buffer

	// ExecuteErr, when set, is returned by every Execute call.
	ExecuteErr error

	// OnExecute, when set, runs on each Execute call after the error
	// check. Tests use it to synthesize output tensor contents.
	OnExecute func(req *MockRequest) error

	// ExecCount tracks the number of Execute calls.
	ExecCount int
}

// NewMock builds a mock backend with buffers matching the descriptor.
func NewMock(desc *models.Descriptor) *Mock {
	req := &MockRequest{
		Inputs:  make(map[string]*tensor.Buffer),
		Outputs: make(map[string]*tensor.Buffer),
	}
	for _, spec := range desc.Inputs() {
		req.Inputs[spec.Name] = tensor.New(spec.Name, spec.Elem, spec.Shape...)
	}
	for _, spec := range desc.Outputs() {
		req.Outputs[spec.Name] = tensor.New(spec.Name, spec.Elem, spec.Shape...)
	}
	return &Mock{Req: req}
}

// Request returns the mock's execution request.
func (m *Mock) Request() (Request, error) {
	if m.RequestErr != nil {
		return nil, m.RequestErr
	}
	if m.closed {
		return nil, fmt.Errorf("backend is closed")
	}
	return m.Req, nil
}

// Close marks the backend closed.
func (m *Mock) Close() error {
	m.closed = true
	return nil
}

func (r *MockRequest) Buffer(name string) (*tensor.Buffer, error) {
	buf, ok := r.Inputs[name]
	if !ok {
		return nil, fmt.Errorf("no input tensor %q", name)
	}
	return buf, nil
}

func (r *MockRequest) OutputBuffer(name string) (*tensor.Buffer, error) {
	buf, ok := r.Outputs[name]
	if !ok {
		return nil, fmt.Errorf("no output tensor %q", name)
	}
	return buf, nil
}

func (r *MockRequest) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.ExecCount++
	if r.ExecuteErr != nil {
		return r.ExecuteErr
	}
	if r.OnExecute != nil {
		return r.OnExecute(r)
	}
	return nil
}

var _ Backend = (*Mock)(nil)
var _ Request = (*MockRequest)(nil)
