package processing

import (
	"log"
	"sync"

	"drishti-go/internal/stats"
	"drishti-go/internal/types"
)

const (
	minSkipInterval = 1
	maxSkipInterval = 5

	fpsWindow        = 30
	similarityWindow = 5

	// Hysteresis band around the target FPS. Below the low mark the skip
	// interval grows, above the high mark it shrinks; in between it holds,
	// which keeps the interval from flapping.
	lowFPSFraction  = 0.7
	highFPSFraction = 0.9
)

// AdmissionConfig controls per-frame admission. Zero values for TargetFPS and
// SimilarityThreshold fall back to 30 and 0.95.
//
// AdaptiveSkip and SmartSelection must both be disabled by the caller while
// object tracking is active: skipping frames breaks the temporal continuity
// trackers rely on. The controller does not check this itself.
type AdmissionConfig struct {
	TargetFPS           float64
	SkipFrames          int
	AdaptiveSkip        bool
	SmartSelection      bool
	SimilarityThreshold float64
}

// Admission decides, frame by frame, whether the detector should run. It keeps
// a copy of the last admitted frame for similarity comparison and a rolling
// window of observed FPS to drive adaptive skipping. Safe for concurrent use.
type Admission struct {
	mu           sync.Mutex
	cfg          AdmissionConfig
	scorer       Scorer
	lastFrame    *types.Frame
	skipCounter  int
	skipInterval int
	fpsHistory   *stats.Rolling
	simHistory   *stats.Rolling
	admitted     uint64
	rejected     uint64
}

// NewAdmission builds a controller. scorer may be nil when SmartSelection is
// disabled.
func NewAdmission(cfg AdmissionConfig, scorer Scorer) *Admission {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = 30
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.95
	}
	return &Admission{
		cfg:          cfg,
		scorer:       scorer,
		skipInterval: clampInterval(cfg.SkipFrames),
		fpsHistory:   stats.NewRolling(fpsWindow, cfg.TargetFPS),
		simHistory:   stats.NewRolling(similarityWindow, 0),
	}
}

// ShouldProcess reports whether frame should be handed to the detector. The
// very first frame is always admitted. After that the adaptive skip interval
// is updated from recent FPS, the skip counter gates admission, and finally
// near-duplicates of the last admitted frame are suppressed when smart
// selection is on. A similarity failure never suppresses a frame: coverage
// beats redundancy removal.
func (a *Admission) ShouldProcess(frame types.Frame) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastFrame == nil {
		a.retain(frame)
		a.admitted++
		return true
	}

	if a.cfg.AdaptiveSkip {
		fps := a.fpsHistory.Mean()
		switch {
		case fps < a.cfg.TargetFPS*lowFPSFraction:
			if a.skipInterval < maxSkipInterval {
				a.skipInterval++
			}
		case fps > a.cfg.TargetFPS*highFPSFraction:
			if a.skipInterval > minSkipInterval {
				a.skipInterval--
			}
		}
	}

	a.skipCounter++
	if a.skipCounter < a.skipInterval {
		a.rejected++
		return false
	}
	a.skipCounter = 0

	if a.cfg.SmartSelection && a.scorer != nil {
		score, err := a.scorer.Score(frame, *a.lastFrame)
		if err != nil {
			log.Printf("frame similarity failed, admitting frame: %v", err)
			score = 0
		}
		a.simHistory.Append(score)
		if score > a.cfg.SimilarityThreshold {
			a.rejected++
			return false
		}
	}

	a.retain(frame)
	a.admitted++
	return true
}

// UpdateFPS records an observed throughput sample, typically measured by the
// pipeline loop once per second.
func (a *Admission) UpdateFPS(fps float64) {
	a.fpsHistory.Append(fps)
}

// SkipInterval returns the current adaptive skip interval.
func (a *Admission) SkipInterval() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skipInterval
}

// Stats returns a diagnostic snapshot for the dashboard.
func (a *Admission) Stats() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]any{
		"adaptive_skip":        a.skipInterval,
		"skip_counter":         a.skipCounter,
		"current_fps":          a.fpsHistory.Mean(),
		"frames_admitted":      a.admitted,
		"frames_rejected":      a.rejected,
		"recent_similarity":    a.simHistory.Values(),
		"adaptive_enabled":     a.cfg.AdaptiveSkip,
		"smart_selection":      a.cfg.SmartSelection,
		"similarity_threshold": a.cfg.SimilarityThreshold,
	}
}

// Reset restores the configured skip interval and clears the FPS and
// similarity windows. The retained last frame is kept so admission does not
// restart with the unconditional first-frame rule mid-session.
func (a *Admission) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipCounter = 0
	a.skipInterval = clampInterval(a.cfg.SkipFrames)
	a.fpsHistory.Reset()
	a.simHistory.Reset()
}

func (a *Admission) retain(frame types.Frame) {
	retained := frame.Clone()
	a.lastFrame = &retained
}

func clampInterval(v int) int {
	if v < minSkipInterval {
		return minSkipInterval
	}
	if v > maxSkipInterval {
		return maxSkipInterval
	}
	return v
}
