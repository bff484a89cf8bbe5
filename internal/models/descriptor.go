// Package models describes loaded network topologies: tensor names and
// shapes, batch capacity, and the structural constraints a decoder needs
// to interpret raw output memory. Descriptors are pure data, validated
// once at load time and immutable afterwards.
package models

import (
	"errors"
	"fmt"
	"os"

	"github.com/argusvision/inferd/internal/tensor"
)

var (
	// ErrModelLoad marks a model file that cannot be opened or parsed.
	// Fatal for the affected pipeline branch; no retry.
	ErrModelLoad = errors.New("model load failed")

	// ErrUnsupportedTopology marks a network that cannot be reshaped to
	// the requested batch size. Fatal for the affected branch.
	ErrUnsupportedTopology = errors.New("unsupported topology")
)

// TensorSpec declares one named tensor of the compiled network. Shape
// carries the batch dimension first where the tensor is batched.
type TensorSpec struct {
	Name  string
	Elem  tensor.ElemType
	Shape []int
}

// Descriptor describes a loaded network. It is built by the per-family
// constructors in this package and never mutated afterwards.
type Descriptor struct {
	category string
	location string
	batch    int

	inputs  []TensorSpec
	outputs []TensorSpec

	// Structural constraints used by decoders.
	maxSequence int
	sentinel    float32
	scale       float32
}

// Category returns the model family name, e.g. "FaceDetection".
func (d *Descriptor) Category() string { return d.category }

// Location returns the model file location the descriptor was built from.
func (d *Descriptor) Location() string { return d.location }

// BatchSize returns the batch capacity the network was reshaped to.
func (d *Descriptor) BatchSize() int { return d.batch }

// InputName returns the name of the primary image input tensor.
func (d *Descriptor) InputName() string { return d.inputs[0].Name }

// Inputs returns the declared input tensors, primary image input first.
func (d *Descriptor) Inputs() []TensorSpec { return append([]TensorSpec(nil), d.inputs...) }

// Outputs returns the declared output tensors.
func (d *Descriptor) Outputs() []TensorSpec { return append([]TensorSpec(nil), d.outputs...) }

// OutputName returns the name of the first declared output tensor.
func (d *Descriptor) OutputName() string { return d.outputs[0].Name }

// MaxSequence returns the maximum decoded output sequence length, or 0
// for models without a sequence output.
func (d *Descriptor) MaxSequence() int { return d.maxSequence }

// Sentinel returns the value terminating a variable-length decoded
// output sequence.
func (d *Descriptor) Sentinel() float32 { return d.sentinel }

// ScaleFactor returns the per-pixel scale applied when frames are
// loaded into the input tensor.
func (d *Descriptor) ScaleFactor() float32 { return d.scale }

// checkLocation verifies the model file exists and is readable. Parsing
// of the network itself happens when an execution backend compiles it;
// a missing file is the earliest load failure we can report.
func checkLocation(location string) error {
	info, err := os.Stat(location)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrModelLoad, location, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", ErrModelLoad, location)
	}
	return nil
}

// applyBatch performs the reshape step: every batched tensor gets its
// leading dimension set to the requested batch size. Networks only
// support reshaping up to a family-specific cap; beyond it the topology
// is unusable at that batch size and the caller must treat the model as
// failed, not silently degrade.
func applyBatch(specs []TensorSpec, batch, cap int, category string) error {
	if batch < 1 || batch > cap {
		return fmt.Errorf("%w: %s cannot reshape to batch %d (supported 1..%d)",
			ErrUnsupportedTopology, category, batch, cap)
	}
	for i := range specs {
		if len(specs[i].Shape) == 4 {
			specs[i].Shape[0] = batch
		}
	}
	return nil
}
