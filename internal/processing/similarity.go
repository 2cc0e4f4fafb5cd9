package processing

import (
	"image"

	"gocv.io/x/gocv"

	"drishti-go/internal/types"
)

const (
	compareWidth  = 64
	compareHeight = 48
	histBins      = 256
)

// Scorer computes a similarity score between two frames in [-1, 1], where 1
// means visually identical. The score only needs to correlate with visual
// change; exactness is not required.
type Scorer interface {
	Score(a, b types.Frame) (float64, error)
}

// HistogramScorer scores frames by correlating their grayscale intensity
// histograms after downscaling both to a fixed 64x48 thumbnail, which bounds
// the cost regardless of input resolution and tolerates frames of differing
// sizes.
type HistogramScorer struct{}

// Score returns the normalized cross-correlation of the two intensity
// histograms.
func (HistogramScorer) Score(a, b types.Frame) (float64, error) {
	histA, err := intensityHistogram(a)
	if err != nil {
		return 0, err
	}
	defer histA.Close()

	histB, err := intensityHistogram(b)
	if err != nil {
		return 0, err
	}
	defer histB.Close()

	return float64(gocv.CompareHist(histA, histB, gocv.HistCmpCorrel)), nil
}

func intensityHistogram(frame types.Frame) (gocv.Mat, error) {
	mat, err := matFromFrame(frame)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer mat.Close()

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(mat, &small, image.Pt(compareWidth, compareHeight), 0, 0, gocv.InterpolationLinear)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	hist := gocv.NewMat()
	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, mask, &hist, []int{histBins}, []float64{0, histBins}, false)
	return hist, nil
}
