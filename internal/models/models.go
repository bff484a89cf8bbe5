package models

import "github.com/argusvision/inferd/internal/tensor"

// Family-specific structural limits. A network refuses the batch
// reshape past its cap, which surfaces as ErrUnsupportedTopology.
const (
	faceBatchCap    = 16
	vehicleBatchCap = 16
	plateBatchCap   = 8

	// Detection networks emit at most this many proposal rows; the
	// list ends early at a row whose image id is the sentinel.
	faceMaxProposals = 200

	// Up to 88 characters per plate, ended with -1.
	plateMaxSequence = 88
)

// NewFaceDetection loads a face/object detection model descriptor.
// The network takes a 300x300 image on "data" and emits SSD
// proposal rows [image_id, label, conf, xmin, ymin, xmax, ymax] on
// "detection_out".
func NewFaceDetection(location string, batch int) (*Descriptor, error) {
	if err := checkLocation(location); err != nil {
		return nil, err
	}
	d := &Descriptor{
		category: "FaceDetection",
		location: location,
		batch:    batch,
		inputs: []TensorSpec{
			{Name: "data", Elem: tensor.F32, Shape: []int{1, 3, 300, 300}},
		},
		outputs: []TensorSpec{
			// Proposal rows for the whole batch; leading dim stays 1.
			{Name: "detection_out", Elem: tensor.F32, Shape: []int{1, 1, faceMaxProposals, 7}},
		},
		maxSequence: faceMaxProposals,
		sentinel:    -1,
		scale:       1.0,
	}
	if err := applyBatch(d.inputs, batch, faceBatchCap, d.category); err != nil {
		return nil, err
	}
	return d, nil
}

// NewVehicleAttributes loads a vehicle attributes recognition model
// descriptor. The network takes a 72x72 vehicle crop on "input" and
// emits per-slot probability heads "color" (7 classes) and "type"
// (4 classes).
func NewVehicleAttributes(location string, batch int) (*Descriptor, error) {
	if err := checkLocation(location); err != nil {
		return nil, err
	}
	d := &Descriptor{
		category: "VehicleAttributes",
		location: location,
		batch:    batch,
		inputs: []TensorSpec{
			{Name: "input", Elem: tensor.F32, Shape: []int{1, 3, 72, 72}},
		},
		outputs: []TensorSpec{
			{Name: "color", Elem: tensor.F32, Shape: []int{1, 7, 1, 1}},
			{Name: "type", Elem: tensor.F32, Shape: []int{1, 4, 1, 1}},
		},
		scale: 1.0,
	}
	if err := applyBatch(d.inputs, batch, vehicleBatchCap, d.category); err != nil {
		return nil, err
	}
	if err := applyBatch(d.outputs, batch, vehicleBatchCap, d.category); err != nil {
		return nil, err
	}
	return d, nil
}

// NewLicensePlate loads a license plate recognition model descriptor.
// Besides the 24x94 plate crop on "data", the network wants an
// auxiliary sequence-indicator input "seq_ind" of shape [88, 1]: the
// first row zero, the rest ones. The "decode" output carries one class
// index per character slot, terminated by the sentinel.
func NewLicensePlate(location string, batch int) (*Descriptor, error) {
	if err := checkLocation(location); err != nil {
		return nil, err
	}
	d := &Descriptor{
		category: "LicensePlate",
		location: location,
		batch:    batch,
		inputs: []TensorSpec{
			{Name: "data", Elem: tensor.F32, Shape: []int{1, 3, 24, 94}},
			{Name: "seq_ind", Elem: tensor.F32, Shape: []int{plateMaxSequence, 1}},
		},
		outputs: []TensorSpec{
			{Name: "decode", Elem: tensor.F32, Shape: []int{1, plateMaxSequence, 1, 1}},
		},
		maxSequence: plateMaxSequence,
		sentinel:    -1,
		scale:       1.0,
	}
	if err := applyBatch(d.inputs, batch, plateBatchCap, d.category); err != nil {
		return nil, err
	}
	if err := applyBatch(d.outputs, batch, plateBatchCap, d.category); err != nil {
		return nil, err
	}
	return d, nil
}

// SeqInputName returns the auxiliary sequence input name for models
// that carry one, or "" otherwise.
func (d *Descriptor) SeqInputName() string {
	for _, in := range d.inputs[1:] {
		return in.Name
	}
	return ""
}
