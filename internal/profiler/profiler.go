// Package profiler measures wall-clock latency of the named pipeline stages
// and keeps a rolling window per stage. It is a diagnostic subsystem: unknown
// stage names are ignored rather than rejected, and nothing here can fail the
// pipeline.
package profiler

import (
	"sort"
	"time"

	"drishti-go/internal/stats"
)

// Operation names the pipeline stages the profiler knows about.
type Operation string

const (
	OpFrameCapture      Operation = "frame_capture"
	OpFrameOptimization Operation = "frame_optimization"
	OpModelInference    Operation = "model_inference"
	OpPostProcessing    Operation = "post_processing"
	OpTotalPipeline     Operation = "total_pipeline"
)

const timingWindow = 100

const (
	mediumBottleneckMs = 50
	highBottleneckMs   = 100
)

// Token marks the start of a timed stage.
type Token time.Time

// Profiler records stage latencies into per-operation rolling windows. The
// window map is fixed at construction; the windows themselves are safe for
// concurrent use, so reports can be read while the pipeline loop records.
type Profiler struct {
	windows map[Operation]*stats.Rolling
}

func New() *Profiler {
	windows := make(map[Operation]*stats.Rolling, 5)
	for _, op := range []Operation{
		OpFrameCapture,
		OpFrameOptimization,
		OpModelInference,
		OpPostProcessing,
		OpTotalPipeline,
	} {
		windows[op] = stats.NewRolling(timingWindow, 0)
	}
	return &Profiler{windows: windows}
}

// StartTiming returns a start marker for the given operation.
func (p *Profiler) StartTiming(op Operation) Token {
	return Token(time.Now())
}

// EndTiming records the elapsed time since start for op and returns the
// duration in seconds. The duration is always computed from the token, even
// for operation names the profiler does not track.
func (p *Profiler) EndTiming(op Operation, start Token) float64 {
	duration := time.Since(time.Time(start)).Seconds()
	if window, ok := p.windows[op]; ok {
		window.Append(duration)
	}
	return duration
}

// OperationReport summarizes one stage's rolling window.
type OperationReport struct {
	AvgMs   float64 `json:"avg_ms"`
	FPS     float64 `json:"fps"`
	Samples int     `json:"samples"`
}

// Report returns per-stage summaries. Stages with no samples are omitted.
func (p *Profiler) Report() map[Operation]OperationReport {
	report := make(map[Operation]OperationReport, len(p.windows))
	for op, window := range p.windows {
		samples := window.Len()
		if samples == 0 {
			continue
		}
		avg := window.Mean()
		fps := 0.0
		if avg > 0 {
			fps = 1.0 / avg
		}
		report[op] = OperationReport{
			AvgMs:   avg * 1000,
			FPS:     fps,
			Samples: samples,
		}
	}
	return report
}

// Bottleneck is a stage whose average latency exceeds the reporting
// threshold.
type Bottleneck struct {
	Operation Operation `json:"operation"`
	AvgMs     float64   `json:"avg_ms"`
	Severity  string    `json:"severity"`
}

// Bottlenecks lists stages averaging above 50ms, slowest first. Stages above
// 100ms are flagged high severity, the rest medium.
func (p *Profiler) Bottlenecks() []Bottleneck {
	var out []Bottleneck
	for op, report := range p.Report() {
		if report.AvgMs <= mediumBottleneckMs {
			continue
		}
		severity := "medium"
		if report.AvgMs > highBottleneckMs {
			severity = "high"
		}
		out = append(out, Bottleneck{
			Operation: op,
			AvgMs:     report.AvgMs,
			Severity:  severity,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AvgMs > out[j].AvgMs
	})
	return out
}
