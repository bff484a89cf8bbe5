// internal/handler/handler_test.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/argusvision/inferd/internal/engine"
)

// fakeProcessor returns a canned result set or error.
type fakeProcessor struct {
	results []engine.Result
	err     error
	frames  int
}

func (p *fakeProcessor) Process(ctx context.Context, frame image.Image) ([]engine.Result, error) {
	p.frames++
	if p.err != nil {
		return nil, p.err
	}
	return p.results, nil
}

func encodeFrame(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Failed to encode test frame: %v", err)
	}
	return &buf
}

func TestDetectReturnsResults(t *testing.T) {
	proc := &fakeProcessor{results: []engine.Result{
		{Location: image.Rect(1, 2, 11, 22), Payload: engine.FaceDetection{Label: 1, Confidence: 0.9}},
		{Location: image.Rect(0, 0, 94, 24), Payload: engine.LicensePlate{Text: "B123"}},
	}}
	h := New(proc)

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", encodeFrame(t))
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if proc.frames != 1 {
		t.Errorf("Expected 1 processed frame, got %d", proc.frames)
	}

	var resp struct {
		Count   int `json:"count"`
		Results []struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Results) != 2 {
		t.Fatalf("Expected 2 results, got count=%d len=%d", resp.Count, len(resp.Results))
	}
	if resp.Results[1].Kind != "license_plate" || resp.Results[1].Text != "B123" {
		t.Errorf("Unexpected second result: %+v", resp.Results[1])
	}
}

func TestDetectRejectsWrongMethod(t *testing.T) {
	h := New(&fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/v1/detect", nil)
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestDetectRejectsBadFrame(t *testing.T) {
	proc := &fakeProcessor{}
	h := New(proc)

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", bytes.NewBufferString("not an image"))
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if proc.frames != 0 {
		t.Errorf("Processor should not run on an undecodable frame, ran %d times", proc.frames)
	}
}

func TestDetectWithNilProcessor(t *testing.T) {
	h := New(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", encodeFrame(t))
	rec := httptest.NewRecorder()
	h.Detect(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestDetectErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"execution failure", fmt.Errorf("faces: %w: device lost", engine.ErrExecution), http.StatusBadGateway},
		{"no backend", fmt.Errorf("faces: %w", engine.ErrNoBackend), http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeProcessor{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/v1/detect", encodeFrame(t))
			rec := httptest.NewRecorder()
			h.Detect(rec, req)

			if rec.Code != tt.code {
				t.Errorf("Expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}
