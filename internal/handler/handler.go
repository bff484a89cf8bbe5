// internal/handler/handler.go
package handler

import (
	"context"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/argusvision/inferd/internal/engine"
	"github.com/argusvision/inferd/internal/middleware"
	"github.com/argusvision/inferd/internal/observer"
)

// maxFrameBytes bounds the request body; frames larger than this are
// rejected before decoding.
const maxFrameBytes = 32 << 20

// Processor runs one frame through the inference pipeline.
// The pipeline type implements it; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, frame image.Image) ([]engine.Result, error)
}

// Handler serves the detection endpoint. It decodes the posted frame,
// hands it to the processor, and renders the combined result set.
type Handler struct {
	proc Processor
}

// New creates a new Handler backed by the given processor.
func New(proc Processor) *Handler {
	return &Handler{proc: proc}
}

// detectResponse is the JSON body of a successful detection call.
type detectResponse struct {
	Results []observer.Record `json:"results"`
	Count   int               `json:"count"`
}

// Detect handles POST /v1/detect. The body is a JPEG or PNG frame; the
// response is the combined result set of every pipeline branch.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := middleware.GetRequestID(r.Context())
	if requestID == "" {
		requestID = "unknown"
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
		return
	}
	if h.proc == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not initialized")
		return
	}

	frame, format, err := image.Decode(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot decode frame: %v", err)
		return
	}

	ctx, span := otel.Tracer("inferd").Start(r.Context(), "pipeline.Process")
	span.SetAttributes(attribute.String("frame.format", format))
	results, err := h.proc.Process(ctx, frame)
	span.End()
	if err != nil {
		log.Printf("[%s] pipeline error: %v", requestID, err)
		code, msg := httpError(err)
		writeError(w, code, "%s", msg)
		return
	}

	bounds := frame.Bounds()
	log.Printf("[%s] Detect: frame=%dx%d, results=%d, total_ms=%.2f",
		requestID, bounds.Dx(), bounds.Dy(), len(results),
		float64(time.Since(start).Microseconds())/1000.0)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detectResponse{
		Results: observer.Records(results),
		Count:   len(results),
	})
}
