package processing

import (
	"errors"

	"gocv.io/x/gocv"

	"drishti-go/internal/types"
)

var errInvalidFrame = errors.New("frame has no valid BGR pixel buffer")

func matFromFrame(frame types.Frame) (gocv.Mat, error) {
	if !frame.Valid() {
		return gocv.Mat{}, errInvalidFrame
	}
	return gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
}

// frameFromMat copies the Mat contents into a fresh frame, carrying over the
// source identity. ToBytes yields a contiguous row-major buffer, which is what
// the inference handoff expects.
func frameFromMat(mat gocv.Mat, src types.Frame) types.Frame {
	return types.Frame{
		Seq:       src.Seq,
		Timestamp: src.Timestamp,
		Width:     mat.Cols(),
		Height:    mat.Rows(),
		Pix:       mat.ToBytes(),
	}
}
