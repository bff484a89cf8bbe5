package observer

import (
	"fmt"
	"log"

	"github.com/argusvision/inferd/internal/engine"
)

// Log writes one line per fetched result to the standard logger.
type Log struct{}

// NewLog returns a logging observer.
func NewLog() *Log { return &Log{} }

// Observe implements engine.Observer.
func (*Log) Observe(results []engine.Result, source string) {
	if len(results) == 0 {
		log.Printf("[%s] no results this cycle", source)
		return
	}
	for i, r := range results {
		log.Printf("[%s] result %d: %s at %v", source, i, describe(r.Payload), r.Location)
	}
}

func describe(p engine.Payload) string {
	switch v := p.(type) {
	case engine.FaceDetection:
		return fmt.Sprintf("%s label=%d conf=%.2f", v.Kind(), v.Label, v.Confidence)
	case engine.LicensePlate:
		return fmt.Sprintf("%s text=%q", v.Kind(), v.Text)
	case engine.VehicleAttributes:
		return fmt.Sprintf("%s %s %s", v.Kind(), v.Color, v.Type)
	default:
		return p.Kind()
	}
}
