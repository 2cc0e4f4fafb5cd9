package simulator

import (
	"context"
	"math"
	"math/rand"
	"time"

	"drishti-go/internal/types"
)

// Stream emits synthetic BGR frames at acqRate frames per second: a slowly
// drifting diagonal gradient with per-pixel noise, so consecutive frames are
// similar but not identical. Useful for exercising the pipeline without a
// capture process.
func Stream(ctx context.Context, width, height int, acqRate float64) <-chan types.Frame {
	out := make(chan types.Frame)
	go func() {
		defer close(out)

		if acqRate <= 0 {
			acqRate = 30
		}
		frameInterval := time.Duration(float64(time.Second) / acqRate)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		var seq int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				phase := float64(seq) * 0.05
				pix := make([]byte, width*height*3)
				for y := 0; y < height; y++ {
					for x := 0; x < width; x++ {
						base := 127 + 100*math.Sin(float64(x+y)/32.0+phase)
						noise := rand.NormFloat64() * 4
						v := base + noise
						if v < 0 {
							v = 0
						}
						if v > 255 {
							v = 255
						}
						i := (y*width + x) * 3
						pix[i] = byte(v)
						pix[i+1] = byte(v * 0.8)
						pix[i+2] = byte(v * 0.6)
					}
				}

				frame := types.Frame{
					Seq:       seq,
					Timestamp: float64(time.Now().UnixNano()) / 1e9,
					Width:     width,
					Height:    height,
					Pix:       pix,
				}
				select {
				case <-ctx.Done():
					return
				case out <- frame:
				}
				seq++
			}
		}
	}()

	return out
}
