package pipeline

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/argusvision/inferd/internal/backend"
	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/models"
)

// fixedDecoder reports the same detections every cycle, regardless of
// output tensor contents.
type fixedDecoder struct {
	hits []image.Rectangle
}

func (d *fixedDecoder) Decode(out backend.OutputSource, rois []image.Rectangle) ([]engine.Result, error) {
	results := make([]engine.Result, 0, len(d.hits))
	for _, r := range d.hits {
		results = append(results, engine.Result{Location: r, Payload: engine.FaceDetection{Label: 1, Confidence: 0.9}})
	}
	return results, nil
}

// echoDecoder emits one plate per enqueued slot.
type echoDecoder struct {
	seen [][]image.Rectangle
}

func (d *echoDecoder) Decode(out backend.OutputSource, rois []image.Rectangle) ([]engine.Result, error) {
	d.seen = append(d.seen, append([]image.Rectangle(nil), rois...))
	results := make([]engine.Result, 0, len(rois))
	for _, roi := range rois {
		results = append(results, engine.Result{Location: roi, Payload: engine.LicensePlate{Text: "OK"}})
	}
	return results, nil
}

type countingObserver struct {
	calls int
	total int
}

func (o *countingObserver) Observe(results []engine.Result, source string) {
	o.calls++
	o.total += len(results)
}

func buildCore(t *testing.T, name string, batch int, dec engine.Decoder) (*engine.Core, *backend.Mock) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "net.onnx")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatalf("writing stub model: %v", err)
	}
	desc, err := models.NewFaceDetection(path, batch)
	if err != nil {
		t.Fatalf("descriptor failed: %v", err)
	}
	core := engine.New(name, desc, dec)
	mock := backend.NewMock(desc)
	if err := core.Bind(mock); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	return core, mock
}

func TestProcessRunsSecondariesOnDetections(t *testing.T) {
	hits := []image.Rectangle{image.Rect(10, 10, 60, 60), image.Rect(100, 20, 180, 90)}
	primary, _ := buildCore(t, "faces", 1, &fixedDecoder{hits: hits})
	echo := &echoDecoder{}
	secondary, _ := buildCore(t, "plates", 4, echo)

	obs := &countingObserver{}
	p := New(primary, []*engine.Core{secondary}, obs)

	frame := image.NewRGBA(image.Rect(0, 0, 200, 100))
	results, err := p.Process(context.Background(), frame)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// 2 detections + 2 secondary results.
	if len(results) != 4 {
		t.Fatalf("%d results, expected 4", len(results))
	}
	if len(echo.seen) != 1 || len(echo.seen[0]) != 2 {
		t.Fatalf("secondary saw batches %v, expected one batch of 2", echo.seen)
	}
	// The placement rectangles of the crops are the detection rects.
	if echo.seen[0][0] != hits[0] || echo.seen[0][1] != hits[1] {
		t.Errorf("secondary rois = %v, expected %v", echo.seen[0], hits)
	}
	// One fetch for the primary, one for the secondary.
	if obs.calls != 2 {
		t.Errorf("observer called %d times, expected 2", obs.calls)
	}
}

func TestProcessChunksOverSecondaryCapacity(t *testing.T) {
	hits := []image.Rectangle{
		image.Rect(0, 0, 10, 10),
		image.Rect(20, 0, 30, 10),
		image.Rect(40, 0, 50, 10),
	}
	primary, _ := buildCore(t, "faces", 1, &fixedDecoder{hits: hits})
	echo := &echoDecoder{}
	secondary, mock := buildCore(t, "plates", 2, echo)

	p := New(primary, []*engine.Core{secondary})
	results, err := p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 60, 20)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(results) != 6 {
		t.Fatalf("%d results, expected 6", len(results))
	}
	// Three crops through a batch-2 core: a full flush and a remainder.
	if mock.Req.ExecCount != 2 {
		t.Errorf("secondary executed %d times, expected 2", mock.Req.ExecCount)
	}
	if len(echo.seen) != 2 || len(echo.seen[0]) != 2 || len(echo.seen[1]) != 1 {
		t.Errorf("secondary batches = %v, expected sizes [2 1]", echo.seen)
	}
}

func TestProcessPrimaryFailureDropsCycle(t *testing.T) {
	primary, mock := buildCore(t, "faces", 1, &fixedDecoder{hits: []image.Rectangle{image.Rect(0, 0, 5, 5)}})
	mock.Req.ExecuteErr = errors.New("device lost")

	p := New(primary, nil)
	_, err := p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if !errors.Is(err, engine.ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}

	// The next frame goes through once the backend recovers.
	mock.Req.ExecuteErr = nil
	if _, err := p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("Process after recovery failed: %v", err)
	}
}

func TestProcessSecondaryFailureKeepsDetections(t *testing.T) {
	primary, _ := buildCore(t, "faces", 1, &fixedDecoder{hits: []image.Rectangle{image.Rect(0, 0, 5, 5)}})
	secondary, mock := buildCore(t, "plates", 2, &echoDecoder{})
	mock.Req.ExecuteErr = errors.New("device lost")

	p := New(primary, []*engine.Core{secondary})
	results, err := p.Process(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("%d results, expected the primary detection only", len(results))
	}
}
