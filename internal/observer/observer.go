// Package observer provides engine.Observer implementations for
// downstream result consumption: a structured log sink and a Redis
// publisher. Observers are notified synchronously and never mutate the
// result set they are handed.
package observer

import (
	"encoding/json"
	"fmt"

	"github.com/argusvision/inferd/internal/engine"
)

// Record is the serialized form of one result.
type Record struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Kind   string `json:"kind"`

	Label           *int     `json:"label,omitempty"`
	Confidence      *float32 `json:"confidence,omitempty"`
	Text            string   `json:"text,omitempty"`
	Color           string   `json:"color,omitempty"`
	Type            string   `json:"type,omitempty"`
	ColorConfidence *float32 `json:"color_confidence,omitempty"`
	TypeConfidence  *float32 `json:"type_confidence,omitempty"`
}

type observation struct {
	Source  string   `json:"source"`
	Results []Record `json:"results"`
}

// Records flattens a result set into its serializable form.
func Records(results []engine.Result) []Record {
	records := make([]Record, 0, len(results))
	for _, r := range results {
		rec := Record{
			X:      r.Location.Min.X,
			Y:      r.Location.Min.Y,
			Width:  r.Location.Dx(),
			Height: r.Location.Dy(),
			Kind:   r.Payload.Kind(),
		}
		switch p := r.Payload.(type) {
		case engine.FaceDetection:
			label, conf := p.Label, p.Confidence
			rec.Label = &label
			rec.Confidence = &conf
		case engine.LicensePlate:
			rec.Text = p.Text
		case engine.VehicleAttributes:
			colorConf, typeConf := p.ColorConfidence, p.TypeConfidence
			rec.Color = p.Color
			rec.Type = p.Type
			rec.ColorConfidence = &colorConf
			rec.TypeConfidence = &typeConf
		}
		records = append(records, rec)
	}
	return records
}

// Marshal encodes a result set with its source inference name.
func Marshal(results []engine.Result, source string) ([]byte, error) {
	payload, err := json.Marshal(observation{Source: source, Results: Records(results)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode results for %s: %w", source, err)
	}
	return payload, nil
}
