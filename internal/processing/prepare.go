package processing

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"drishti-go/internal/types"
)

// PrepareConfig controls frame sizing ahead of the inference call.
type PrepareConfig struct {
	ResizeEnabled bool
	MaxWidth      int
	MaxHeight     int
	BatchEnabled  bool
}

// Preparer shrinks oversized frames to fit the configured bounds while
// preserving aspect ratio. Frames are never upscaled, cropped or padded.
type Preparer struct {
	cfg PrepareConfig
}

func NewPreparer(cfg PrepareConfig) *Preparer {
	return &Preparer{cfg: cfg}
}

// Optimize returns a copy of frame sized for the detector. When the frame
// already fits the bounds, or resizing is disabled, the copy is returned
// unchanged. On failure the returned frame is still a usable copy of the
// input, so the caller can degrade to detecting on the original.
func (p *Preparer) Optimize(frame types.Frame) (types.Frame, error) {
	if !frame.Valid() {
		return frame.Clone(), errInvalidFrame
	}
	if !p.cfg.ResizeEnabled || (frame.Width <= p.cfg.MaxWidth && frame.Height <= p.cfg.MaxHeight) {
		return frame.Clone(), nil
	}

	scale := math.Min(
		float64(p.cfg.MaxWidth)/float64(frame.Width),
		float64(p.cfg.MaxHeight)/float64(frame.Height),
	)
	newWidth := int(math.Round(float64(frame.Width) * scale))
	newHeight := int(math.Round(float64(frame.Height) * scale))

	mat, err := matFromFrame(frame)
	if err != nil {
		return frame.Clone(), err
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	return frameFromMat(resized, frame), nil
}

// Batch applies Optimize to each frame independently. With batch mode off, or
// fewer than two frames, the input is returned as-is. There is no cross-frame
// batching here; grouping is all this does.
func (p *Preparer) Batch(frames []types.Frame) []types.Frame {
	if !p.cfg.BatchEnabled || len(frames) < 2 {
		return frames
	}
	out := make([]types.Frame, 0, len(frames))
	for _, frame := range frames {
		// Optimize degrades to a plain copy on failure, so the batch always
		// comes back complete.
		prepared, _ := p.Optimize(frame)
		out = append(out, prepared)
	}
	return out
}
