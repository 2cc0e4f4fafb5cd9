package config

import "time"

type AppConfig struct {
	Port         int
	Endpoint     string
	DetectorURL  string
	DetectorPoll time.Duration

	TargetFPS           float64
	SkipFrames          int
	AdaptiveSkip        bool
	SmartSelection      bool
	SimilarityThreshold float64

	ResizeEnabled bool
	ResizeWidth   int
	ResizeHeight  int
	BatchEnabled  bool

	Tracking   bool
	Confidence float64
	IOU        float64

	Debug        bool
	DebugWidth   int
	DebugHeight  int
	DebugAcqRate float64

	UIRate         time.Duration
	OutputDir      string
	RawLogEnabled  bool
	RawLogDir      string
	IngestLogEvery int
	IngestFallback bool
}
