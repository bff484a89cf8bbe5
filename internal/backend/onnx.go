package backend

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/argusvision/inferd/internal/models"
	"github.com/argusvision/inferd/internal/tensor"
)

// ortInit initializes the ONNX runtime environment once per process.
// The environment outlives individual backends because compiled
// networks may be shared across pipelines.
var ortInit sync.Once

func initRuntime() error {
	var err error
	ortInit.Do(func() {
		err = ort.InitializeEnvironment()
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// ONNX is an execution backend over an ONNX Runtime session. All
// descriptor-declared tensors are allocated up front and bound to the
// session, so frame loading writes straight into runtime memory and
// Execute runs with no per-cycle allocation.
type ONNX struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	values  []ort.ArbitraryTensor
	req     *onnxRequest
}

type onnxRequest struct {
	owner   *ONNX
	inputs  map[string]*tensor.Buffer
	outputs map[string]*tensor.Buffer
}

// NewONNX compiles the descriptor's model and binds one tensor per
// declared input and output. A network missing any declared tensor name
// fails session creation, which is reported as a model load error.
func NewONNX(desc *models.Descriptor) (*ONNX, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelLoad, err)
	}

	b := &ONNX{req: &onnxRequest{
		inputs:  make(map[string]*tensor.Buffer),
		outputs: make(map[string]*tensor.Buffer),
	}}
	b.req.owner = b

	var inputNames, outputNames []string
	var inputValues, outputValues []ort.ArbitraryTensor

	bind := func(spec models.TensorSpec, into map[string]*tensor.Buffer) (ort.ArbitraryTensor, error) {
		dims := make([]int64, len(spec.Shape))
		n := 1
		for i, d := range spec.Shape {
			dims[i] = int64(d)
			n *= d
		}
		shape := ort.NewShape(dims...)
		switch spec.Elem {
		case tensor.F32:
			t, err := ort.NewTensor(shape, make([]float32, n))
			if err != nil {
				return nil, err
			}
			into[spec.Name] = tensor.WrapFloat32(spec.Name, t.GetData(), spec.Shape...)
			return t, nil
		case tensor.U8:
			t, err := ort.NewTensor(shape, make([]uint8, n))
			if err != nil {
				return nil, err
			}
			into[spec.Name] = tensor.WrapUint8(spec.Name, t.GetData(), spec.Shape...)
			return t, nil
		default:
			return nil, fmt.Errorf("tensor %q: element type %v not supported by the ONNX backend",
				spec.Name, spec.Elem)
		}
	}

	fail := func(err error) (*ONNX, error) {
		b.destroyValues()
		return nil, fmt.Errorf("%w: %s: %v", models.ErrModelLoad, desc.Location(), err)
	}

	for _, spec := range desc.Inputs() {
		v, err := bind(spec, b.req.inputs)
		if err != nil {
			return fail(err)
		}
		b.values = append(b.values, v)
		inputNames = append(inputNames, spec.Name)
		inputValues = append(inputValues, v)
	}
	for _, spec := range desc.Outputs() {
		v, err := bind(spec, b.req.outputs)
		if err != nil {
			return fail(err)
		}
		b.values = append(b.values, v)
		outputNames = append(outputNames, spec.Name)
		outputValues = append(outputValues, v)
	}

	session, err := ort.NewAdvancedSession(desc.Location(),
		inputNames, outputNames, inputValues, outputValues, nil)
	if err != nil {
		return fail(err)
	}
	b.session = session
	return b, nil
}

// Request returns the backend's single execution request.
func (b *ONNX) Request() (Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, fmt.Errorf("backend is closed")
	}
	return b.req, nil
}

// Close destroys the session and its bound tensors.
func (b *ONNX) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		if err := b.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
		b.session = nil
	}
	b.destroyValues()
	return nil
}

func (b *ONNX) destroyValues() {
	for _, v := range b.values {
		v.Destroy()
	}
	b.values = nil
}

func (r *onnxRequest) Buffer(name string) (*tensor.Buffer, error) {
	buf, ok := r.inputs[name]
	if !ok {
		return nil, fmt.Errorf("no input tensor %q", name)
	}
	return buf, nil
}

func (r *onnxRequest) OutputBuffer(name string) (*tensor.Buffer, error) {
	buf, ok := r.outputs[name]
	if !ok {
		return nil, fmt.Errorf("no output tensor %q", name)
	}
	return buf, nil
}

// Execute runs the session. The context is consulted before starting;
// an in-flight run cannot be cancelled.
func (r *onnxRequest) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	if r.owner.session == nil {
		return fmt.Errorf("backend is closed")
	}
	if err := r.owner.session.Run(); err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}
	return nil
}
