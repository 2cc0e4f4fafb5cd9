package processing

import (
	"testing"

	"drishti-go/internal/types"
)

func gradientFrame(width, height int) types.Frame {
	pix := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := byte(x * 255 / (width - 1))
			i := (y*width + x) * 3
			pix[i] = v
			pix[i+1] = v
			pix[i+2] = v
		}
	}
	return types.Frame{Seq: 1, Width: width, Height: height, Pix: pix}
}

func TestScoreIdenticalFrames(t *testing.T) {
	scorer := HistogramScorer{}
	frame := gradientFrame(128, 96)

	score, err := scorer.Score(frame, frame.Clone())
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if score < 0.99 {
		t.Fatalf("identical frames scored %v, want >= 0.99", score)
	}
}

func TestScoreDistinctFrames(t *testing.T) {
	scorer := HistogramScorer{}
	gradient := gradientFrame(128, 96)
	flat := solidFrame(128, 96, 128)

	score, err := scorer.Score(gradient, flat)
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if score >= 0.95 {
		t.Fatalf("distinct frames scored %v, want < 0.95", score)
	}
}

func TestScoreToleratesDifferentResolutions(t *testing.T) {
	scorer := HistogramScorer{}

	score, err := scorer.Score(gradientFrame(128, 96), gradientFrame(64, 48))
	if err != nil {
		t.Fatalf("score error: %v", err)
	}
	if score < -1 || score > 1 {
		t.Fatalf("score out of range: %v", score)
	}
}

func TestScoreInvalidFrame(t *testing.T) {
	scorer := HistogramScorer{}
	bad := types.Frame{Width: 8, Height: 8, Pix: []byte{0}}

	if _, err := scorer.Score(bad, gradientFrame(64, 48)); err == nil {
		t.Fatal("expected error for malformed frame")
	}
}
