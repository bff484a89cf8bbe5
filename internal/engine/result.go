package engine

import "image"

// Result is one inference outcome. Location is the detection rectangle
// in the coordinate space of the original full frame (never the resized
// tensor's). Results are immutable: a fetch replaces the previous set
// wholesale and nothing mutates one in place.
type Result struct {
	Location image.Rectangle
	Payload  Payload
}

// Payload is the model-specific part of a result. The set of variants
// is closed; consumers dispatch with a type switch.
type Payload interface {
	// Kind names the payload variant for logging and serialization.
	Kind() string
}

// FaceDetection is a detection-network hit: a class label index and
// its confidence.
type FaceDetection struct {
	Label      int
	Confidence float32
}

func (FaceDetection) Kind() string { return "face_detection" }

// LicensePlate is a decoded plate text.
type LicensePlate struct {
	Text string
}

func (LicensePlate) Kind() string { return "license_plate" }

// VehicleAttributes are the argmax color and type heads of a vehicle
// attributes network.
type VehicleAttributes struct {
	Color           string
	Type            string
	ColorConfidence float32
	TypeConfidence  float32
}

func (VehicleAttributes) Kind() string { return "vehicle_attributes" }
