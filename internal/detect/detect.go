package detect

import (
	"context"

	"drishti-go/internal/types"
)

// Params are the per-request inference settings.
type Params struct {
	Confidence float64 `json:"confidence"`
	IOU        float64 `json:"iou"`
	Tracking   bool    `json:"tracking"`
}

// Result is one inference response.
type Result struct {
	Detections  []types.Detection `json:"detections"`
	InferenceMs float64           `json:"inference_ms"`
}

// Detector runs object detection on a single frame.
type Detector interface {
	Detect(ctx context.Context, frame types.Frame, params Params) (Result, error)
}

// Noop is a detector that detects nothing. Used in debug mode when no
// inference sidecar is running.
type Noop struct{}

func (Noop) Detect(ctx context.Context, frame types.Frame, params Params) (Result, error) {
	return Result{Detections: []types.Detection{}}, nil
}
