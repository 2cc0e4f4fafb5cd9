package processing

import (
	"bytes"
	"testing"

	"drishti-go/internal/types"
)

func solidFrame(width, height int, value byte) types.Frame {
	pix := make([]byte, width*height*3)
	for i := range pix {
		pix[i] = value
	}
	return types.Frame{Seq: 1, Width: width, Height: height, Pix: pix}
}

func TestOptimizeShrinksOversizedFrame(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 640, MaxHeight: 480})

	out, err := p.Optimize(solidFrame(1920, 1080, 100))
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if out.Width != 640 || out.Height != 360 {
		t.Fatalf("unexpected output size: %dx%d", out.Width, out.Height)
	}
	if len(out.Pix) != 640*360*3 {
		t.Fatalf("unexpected buffer length: %d", len(out.Pix))
	}
}

func TestOptimizePassThroughWithinBounds(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 640, MaxHeight: 480})
	in := solidFrame(320, 240, 42)

	out, err := p.Optimize(in)
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if out.Width != in.Width || out.Height != in.Height {
		t.Fatalf("dimensions changed: %dx%d", out.Width, out.Height)
	}
	if !bytes.Equal(out.Pix, in.Pix) {
		t.Fatal("pixel data changed on pass-through")
	}
	out.Pix[0] = 7
	if in.Pix[0] == 7 {
		t.Fatal("pass-through shares the input buffer")
	}
}

func TestOptimizePreservesAspectRatio(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 640, MaxHeight: 480})

	out, err := p.Optimize(solidFrame(800, 600, 10))
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if out.Width != 640 || out.Height != 480 {
		t.Fatalf("unexpected output size: %dx%d", out.Width, out.Height)
	}
	if out.Width > 640 || out.Height > 480 {
		t.Fatalf("output exceeds bounds: %dx%d", out.Width, out.Height)
	}
}

func TestOptimizeNeverUpscales(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 640, MaxHeight: 480})

	out, err := p.Optimize(solidFrame(100, 80, 10))
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if out.Width != 100 || out.Height != 80 {
		t.Fatalf("small frame was rescaled: %dx%d", out.Width, out.Height)
	}
}

func TestOptimizeDisabled(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: false, MaxWidth: 64, MaxHeight: 48})

	out, err := p.Optimize(solidFrame(320, 240, 10))
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if out.Width != 320 || out.Height != 240 {
		t.Fatalf("frame resized with resizing disabled: %dx%d", out.Width, out.Height)
	}
}

func TestOptimizeInvalidFrame(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 640, MaxHeight: 480})

	in := types.Frame{Width: 10, Height: 10, Pix: []byte{1, 2, 3}}
	out, err := p.Optimize(in)
	if err == nil {
		t.Fatal("expected error for malformed frame")
	}
	if len(out.Pix) != len(in.Pix) {
		t.Fatal("degraded output is not a copy of the input")
	}
}

func TestBatchDisabledReturnsInput(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 64, MaxHeight: 48})
	frames := []types.Frame{solidFrame(320, 240, 1), solidFrame(320, 240, 2)}

	out := p.Batch(frames)
	if len(out) != 2 || out[0].Width != 320 {
		t.Fatalf("disabled batch modified frames: %+v", out[0])
	}
}

func TestBatchSingleFrameUnchanged(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 64, MaxHeight: 48, BatchEnabled: true})
	frames := []types.Frame{solidFrame(320, 240, 1)}

	out := p.Batch(frames)
	if len(out) != 1 || out[0].Width != 320 {
		t.Fatalf("single-frame batch was processed: %+v", out[0])
	}
}

func TestBatchOptimizesEachFrame(t *testing.T) {
	p := NewPreparer(PrepareConfig{ResizeEnabled: true, MaxWidth: 160, MaxHeight: 120, BatchEnabled: true})
	frames := []types.Frame{solidFrame(320, 240, 1), solidFrame(640, 480, 2), solidFrame(80, 60, 3)}

	out := p.Batch(frames)
	if len(out) != 3 {
		t.Fatalf("unexpected batch size: %d", len(out))
	}
	if out[0].Width != 160 || out[1].Width != 160 || out[2].Width != 80 {
		t.Fatalf("unexpected widths: %d %d %d", out[0].Width, out[1].Width, out[2].Width)
	}
}
