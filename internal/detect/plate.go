package detect

import (
	"image"
	"strings"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/models"
)

// plateAlphabet maps decoded class indices to plate characters. Digits
// first, then letters with O dropped (plates avoid it). Indices beyond
// the table decode as '?'.
var plateAlphabet = []rune("0123456789ABCDEFGHIJKLMNPQRSTUVWXYZ")

// Plate decodes license plate recognition output: one class index per
// character slot, terminated by the descriptor's sentinel, hard-capped
// at the declared maximum sequence length.
type Plate struct {
	desc *models.Descriptor
}

// NewPlate builds a license plate decoder.
func NewPlate(desc *models.Descriptor) *Plate {
	return &Plate{desc: desc}
}

// Prepare fills the auxiliary sequence-indicator input: first row
// zero, the rest ones. Runs once per submit, before execution.
func (p *Plate) Prepare(req backend.Request) error {
	buf, err := req.Buffer(p.desc.SeqInputName())
	if err != nil {
		return err
	}
	buf.Fill(1)
	buf.Put(0, 0)
	return nil
}

// Decode implements engine.Decoder. One result per enqueued slot.
func (p *Plate) Decode(out backend.OutputSource, rois []image.Rectangle) ([]engine.Result, error) {
	buf, err := out.OutputBuffer(p.desc.OutputName())
	if err != nil {
		return nil, err
	}
	maxSeq := p.desc.MaxSequence()
	sentinel := p.desc.Sentinel()

	results := make([]engine.Result, 0, len(rois))
	for slot, roi := range rois {
		var text strings.Builder
		for i := 0; i < maxSeq; i++ {
			v := buf.At(slot*maxSeq + i)
			if v == sentinel {
				break
			}
			idx := int(v)
			if idx >= 0 && idx < len(plateAlphabet) {
				text.WriteRune(plateAlphabet[idx])
			} else {
				text.WriteRune('?')
			}
		}
		results = append(results, engine.Result{
			Location: roi,
			Payload:  engine.LicensePlate{Text: text.String()},
		})
	}
	return results, nil
}
