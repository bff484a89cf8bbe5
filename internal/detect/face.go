// Package detect holds the per-model output decoders: the closed set
// of networks the pipeline knows how to interpret. Each decoder reads
// a backend's named output tensors and produces typed results whose
// rectangles live in original-frame coordinates.
package detect

import (
	"fmt"
	"image"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/models"
)

// Face decodes SSD-style detection output: rows of
// [image_id, label, conf, xmin, ymin, xmax, ymax] with normalized box
// coordinates. The proposal list ends at the first row whose image id
// is the descriptor's sentinel and is never read past the declared
// maximum.
type Face struct {
	desc      *models.Descriptor
	threshold float32
}

// NewFace builds a face/object detection decoder. Confidence values
// below threshold are discarded; out-of-range thresholds fall back to
// 0.5.
func NewFace(desc *models.Descriptor, threshold float32) *Face {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	return &Face{desc: desc, threshold: threshold}
}

// Decode implements engine.Decoder.
func (f *Face) Decode(out backend.OutputSource, rois []image.Rectangle) ([]engine.Result, error) {
	buf, err := out.OutputBuffer(f.desc.OutputName())
	if err != nil {
		return nil, err
	}
	rows := f.desc.MaxSequence()
	if buf.Len() < rows*7 {
		return nil, fmt.Errorf("output %q holds %d values, expected %d proposal rows",
			buf.Name(), buf.Len(), rows)
	}

	var results []engine.Result
	for i := 0; i < rows; i++ {
		base := i * 7
		imageID := buf.At(base)
		if imageID < 0 {
			break
		}
		slot := int(imageID)
		if slot >= len(rois) {
			return nil, fmt.Errorf("proposal %d references batch slot %d, only %d enqueued",
				i, slot, len(rois))
		}
		conf := buf.At(base + 2)
		if conf < f.threshold {
			continue
		}
		roi := rois[slot]
		rect := boxToRect(buf.At(base+3), buf.At(base+4), buf.At(base+5), buf.At(base+6), roi)
		results = append(results, engine.Result{
			Location: rect,
			Payload:  engine.FaceDetection{Label: int(buf.At(base + 1)), Confidence: conf},
		})
	}
	return results, nil
}

// boxToRect maps a normalized [0,1] box into the placement rectangle's
// coordinate space, clamped to its bounds.
func boxToRect(xmin, ymin, xmax, ymax float32, roi image.Rectangle) image.Rectangle {
	w := float32(roi.Dx())
	h := float32(roi.Dy())
	rect := image.Rect(
		roi.Min.X+int(xmin*w),
		roi.Min.Y+int(ymin*h),
		roi.Min.X+int(xmax*w),
		roi.Min.Y+int(ymax*h),
	)
	return rect.Intersect(roi)
}
