package detect

import (
	"fmt"
	"image"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/models"
)

// Class tables of the vehicle attributes network's two heads.
var (
	vehicleColors = []string{"white", "gray", "yellow", "red", "green", "blue", "black"}
	vehicleTypes  = []string{"car", "bus", "truck", "van"}
)

// Vehicle decodes the color and type probability heads of a vehicle
// attributes network, one argmax pair per enqueued slot.
type Vehicle struct {
	desc *models.Descriptor
}

// NewVehicle builds a vehicle attributes decoder.
func NewVehicle(desc *models.Descriptor) *Vehicle {
	return &Vehicle{desc: desc}
}

// Decode implements engine.Decoder.
func (v *Vehicle) Decode(out backend.OutputSource, rois []image.Rectangle) ([]engine.Result, error) {
	colors, err := out.OutputBuffer("color")
	if err != nil {
		return nil, err
	}
	types, err := out.OutputBuffer("type")
	if err != nil {
		return nil, err
	}
	if colors.Len() < len(rois)*len(vehicleColors) || types.Len() < len(rois)*len(vehicleTypes) {
		return nil, fmt.Errorf("attribute heads hold %d/%d values, %d slots enqueued",
			colors.Len(), types.Len(), len(rois))
	}

	results := make([]engine.Result, 0, len(rois))
	for slot, roi := range rois {
		colorIdx, colorConf := argmax(colors, slot*len(vehicleColors), len(vehicleColors))
		typeIdx, typeConf := argmax(types, slot*len(vehicleTypes), len(vehicleTypes))
		results = append(results, engine.Result{
			Location: roi,
			Payload: engine.VehicleAttributes{
				Color:           vehicleColors[colorIdx],
				Type:            vehicleTypes[typeIdx],
				ColorConfidence: colorConf,
				TypeConfidence:  typeConf,
			},
		})
	}
	return results, nil
}

func argmax(buf interface{ At(int) float32 }, offset, n int) (int, float32) {
	best := 0
	bestVal := buf.At(offset)
	for i := 1; i < n; i++ {
		if v := buf.At(offset + i); v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
