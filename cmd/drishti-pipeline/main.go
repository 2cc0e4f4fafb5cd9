package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"drishti-go/internal/config"
	"drishti-go/internal/detect"
	"drishti-go/internal/ingest"
	"drishti-go/internal/output"
	"drishti-go/internal/processing"
	"drishti-go/internal/profiler"
	"drishti-go/internal/server"
	"drishti-go/internal/simulator"
	"drishti-go/internal/types"
)

type metrics struct {
	rawMessages      atomic.Uint64
	imageMessages    atomic.Uint64
	metaMessages     atomic.Uint64
	framesProcessed  atomic.Uint64
	detectErrors     atomic.Uint64
	detectionsTotal  atomic.Uint64
	csvWriteOK       atomic.Uint64
	csvWriteError    atomic.Uint64
	metadataWriteErr atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"raw_messages_total":       m.rawMessages.Load(),
		"image_messages_total":     m.imageMessages.Load(),
		"meta_messages_total":      m.metaMessages.Load(),
		"frames_processed_total":   m.framesProcessed.Load(),
		"detect_errors_total":      m.detectErrors.Load(),
		"detections_total":         m.detectionsTotal.Load(),
		"csv_write_ok_total":       m.csvWriteOK.Load(),
		"csv_write_err_total":      m.csvWriteError.Load(),
		"metadata_write_err_total": m.metadataWriteErr.Load(),
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("env file not loaded: %v", err)
	}

	var (
		port           = flag.Int("port", 8888, "HTTP port for the dashboard")
		endpoint       = flag.String("endpoint", "tcp://localhost:5555", "ZMQ endpoint of the capture process")
		detectorURL    = flag.String("detector-url", "http://localhost:8090", "Base URL of the inference sidecar")
		detectorPoll   = flag.Duration("detector-poll", 5*time.Second, "Polling interval for detector status")
		targetFPS      = flag.Float64("target-fps", 30, "Target processing rate in frames/sec")
		skipFrames     = flag.Int("skip-frames", 1, "Base frame skip interval")
		adaptiveSkip   = flag.Bool("adaptive-skip", true, "Adapt the skip interval to the measured FPS")
		smartSelection = flag.Bool("smart-selection", true, "Drop frames nearly identical to the last processed one")
		simThreshold   = flag.Float64("similarity-threshold", 0.95, "Histogram correlation above which a frame is dropped")
		resizeEnabled  = flag.Bool("resize", true, "Shrink oversized frames before inference")
		resizeWidth    = flag.Int("resize-width", 640, "Maximum frame width for inference")
		resizeHeight   = flag.Int("resize-height", 480, "Maximum frame height for inference")
		batchEnabled   = flag.Bool("batch", false, "Enable batch frame preparation")
		tracking       = flag.Bool("tracking", false, "Run the detector in tracking mode (disables adaptive skip and smart selection)")
		confidence     = flag.Float64("confidence", 0.4, "Detection confidence threshold")
		iou            = flag.Float64("iou", 0.45, "Detection IoU threshold")
		debug          = flag.Bool("debug", false, "Run with simulated frames and no detector")
		debugWidth     = flag.Int("debug-width", 640, "Simulated frame width")
		debugHeight    = flag.Int("debug-height", 480, "Simulated frame height")
		debugAcqRate   = flag.Float64("debug-acq-rate", 30.0, "Simulated acquisition rate (frames/sec)")
		uiRate         = flag.Duration("ui-rate", 1*time.Second, "Dashboard update interval")
		outputDir      = flag.String("output-dir", "output", "Directory for detection CSVs and run metadata")
		rawLogEnabled  = flag.Bool("raw-log", false, "Write raw capture messages to disk")
		rawLogDir      = flag.String("raw-log-dir", "rawlog", "Directory for raw capture logs")
		ingestLogEvery = flag.Int("ingest-log-every", 100, "Log every Nth ingest error")
		ingestFallback = flag.Bool("ingest-fallback", true, "Fall back to simulated frames when ingest fails")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Port:                *port,
		Endpoint:            *endpoint,
		DetectorURL:         *detectorURL,
		DetectorPoll:        *detectorPoll,
		TargetFPS:           *targetFPS,
		SkipFrames:          *skipFrames,
		AdaptiveSkip:        *adaptiveSkip,
		SmartSelection:      *smartSelection,
		SimilarityThreshold: *simThreshold,
		ResizeEnabled:       *resizeEnabled,
		ResizeWidth:         *resizeWidth,
		ResizeHeight:        *resizeHeight,
		BatchEnabled:        *batchEnabled,
		Tracking:            *tracking,
		Confidence:          *confidence,
		IOU:                 *iou,
		Debug:               *debug,
		DebugWidth:          *debugWidth,
		DebugHeight:         *debugHeight,
		DebugAcqRate:        *debugAcqRate,
		UIRate:              *uiRate,
		OutputDir:           *outputDir,
		RawLogEnabled:       *rawLogEnabled,
		RawLogDir:           *rawLogDir,
		IngestLogEvery:      *ingestLogEvery,
		IngestFallback:      *ingestFallback,
	}

	// Tracking needs every frame in order, so frame dropping is turned off.
	if cfg.Tracking && (cfg.AdaptiveSkip || cfg.SmartSelection) {
		log.Print("tracking enabled: disabling adaptive skip and smart selection")
		cfg.AdaptiveSkip = false
		cfg.SmartSelection = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var met metrics
	var statusMu sync.Mutex
	status := map[string]any{
		"detector":    "unknown",
		"stream":      "idle",
		"csv_writer":  "idle",
		"last_frame":  "",
		"last_write":  "",
		"last_ingest": "",
	}
	setStatus := func(key string, value any) {
		statusMu.Lock()
		status[key] = value
		statusMu.Unlock()
	}

	runTimestamp := output.Timestamp()

	frames := make(chan types.Frame, 128)
	if cfg.Debug {
		setStatus("detector", "simulator")
		go func() {
			defer close(frames)
			for frame := range simulator.Stream(ctx, cfg.DebugWidth, cfg.DebugHeight, cfg.DebugAcqRate) {
				met.rawMessages.Add(1)
				met.imageMessages.Add(1)
				select {
				case <-ctx.Done():
					return
				case frames <- frame:
				}
			}
		}()
	} else {
		var recorder ingest.RawRecorder
		if cfg.RawLogEnabled {
			writer, err := output.NewRawLogWriter(cfg.RawLogDir, runTimestamp)
			if err != nil {
				log.Fatalf("failed to start raw log: %v", err)
			}
			recorder = writer
			go func() {
				<-ctx.Done()
				if err := writer.Close(); err != nil {
					log.Printf("raw log close failed: %v", err)
				}
			}()
		}

		messages, err := ingest.StreamWithLogEveryAndRecorder(ctx, cfg.Endpoint, cfg.IngestLogEvery, recorder)
		if err != nil {
			if !cfg.IngestFallback {
				log.Fatalf("failed to start ingest: %v", err)
			}
			log.Printf("failed to start ingest: %v; falling back to simulator", err)
			setStatus("detector", "simulator")
			go func() {
				defer close(frames)
				for frame := range simulator.Stream(ctx, cfg.DebugWidth, cfg.DebugHeight, cfg.DebugAcqRate) {
					met.rawMessages.Add(1)
					met.imageMessages.Add(1)
					select {
					case <-ctx.Done():
						return
					case frames <- frame:
					}
				}
			}()
		} else {
			go func() {
				defer close(frames)
				for msg := range messages {
					met.rawMessages.Add(1)
					setStatus("last_ingest", time.Now().Format(time.RFC3339))
					if msg.Type != "image" {
						met.metaMessages.Add(1)
						if err := output.WriteMetadata(cfg.OutputDir, runTimestamp, msg.Type, msg.Meta); err != nil {
							met.metadataWriteErr.Add(1)
							log.Printf("metadata write failed: %v", err)
						}
						continue
					}
					met.imageMessages.Add(1)
					select {
					case <-ctx.Done():
						return
					case frames <- msg.Frame:
					}
				}
			}()
		}
	}

	var detector detect.Detector
	if cfg.Debug {
		detector = detect.Noop{}
	} else {
		detector = detect.NewClient(cfg.DetectorURL)
		go detect.Poll(ctx, cfg.DetectorURL, cfg.DetectorPoll, func(update detect.Status) {
			statusMu.Lock()
			status["detector"] = update.State
			if update.Model != "" {
				status["model"] = update.Model
			}
			if update.Device != "" {
				status["device"] = update.Device
			}
			statusMu.Unlock()
		})
	}

	admission := processing.NewAdmission(processing.AdmissionConfig{
		TargetFPS:           cfg.TargetFPS,
		SkipFrames:          cfg.SkipFrames,
		AdaptiveSkip:        cfg.AdaptiveSkip,
		SmartSelection:      cfg.SmartSelection,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, processing.HistogramScorer{})

	preparer := processing.NewPreparer(processing.PrepareConfig{
		ResizeEnabled: cfg.ResizeEnabled,
		MaxWidth:      cfg.ResizeWidth,
		MaxHeight:     cfg.ResizeHeight,
		BatchEnabled:  cfg.BatchEnabled,
	})

	prof := profiler.New()

	csvWriter, err := output.NewDetectionWriter(cfg.OutputDir, runTimestamp)
	if err != nil {
		log.Fatalf("failed to create detection writer: %v", err)
	}
	defer func() {
		if err := csvWriter.Close(); err != nil {
			log.Printf("detection writer close failed: %v", err)
		}
	}()

	params := detect.Params{
		Confidence: cfg.Confidence,
		IOU:        cfg.IOU,
		Tracking:   cfg.Tracking,
	}

	uiMessages := make(chan any, 16)
	var latestStatsMu sync.Mutex
	var latestStats map[string]any

	buildStats := func() map[string]any {
		return map[string]any{
			"type":        "stats",
			"admission":   admission.Stats(),
			"timings":     prof.Report(),
			"bottlenecks": prof.Bottlenecks(),
		}
	}

	// Measured processing rate drives the adaptive skip interval.
	var processedThisSecond atomic.Uint64
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				admission.UpdateFPS(float64(processedThisSecond.Swap(0)))
			}
		}
	}()

	go func() {
		defer close(uiMessages)
		if cfg.UIRate <= 0 {
			cfg.UIRate = 1 * time.Second
		}
		ticker := time.NewTicker(cfg.UIRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				payload := buildStats()
				latestStatsMu.Lock()
				latestStats = payload
				latestStatsMu.Unlock()
				select {
				case uiMessages <- payload:
				default:
				}
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				statusMu.Lock()
				lastFrame, _ := status["last_frame"].(string)
				if lastFrame == "" {
					status["stream"] = "idle"
				}
				statusMu.Unlock()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snapshot := met.snapshot()
				log.Printf("pipeline stats: raw=%v image=%v processed=%v detect_errors=%v decode_failures=%v",
					snapshot["raw_messages_total"],
					snapshot["image_messages_total"],
					snapshot["frames_processed_total"],
					snapshot["detect_errors_total"],
					ingest.DecodeFailures(),
				)
			}
		}
	}()

	go func() {
		captureToken := prof.StartTiming(profiler.OpFrameCapture)
		for frame := range frames {
			prof.EndTiming(profiler.OpFrameCapture, captureToken)

			totalToken := prof.StartTiming(profiler.OpTotalPipeline)
			if !admission.ShouldProcess(frame) {
				captureToken = prof.StartTiming(profiler.OpFrameCapture)
				continue
			}
			setStatus("stream", "receiving")
			setStatus("last_frame", time.Now().Format(time.RFC3339))

			optToken := prof.StartTiming(profiler.OpFrameOptimization)
			prepared, err := preparer.Optimize(frame)
			prof.EndTiming(profiler.OpFrameOptimization, optToken)
			if err != nil {
				log.Printf("frame %d optimization failed: %v", frame.Seq, err)
			}

			infToken := prof.StartTiming(profiler.OpModelInference)
			result, err := detector.Detect(ctx, prepared, params)
			prof.EndTiming(profiler.OpModelInference, infToken)
			if err != nil {
				met.detectErrors.Add(1)
				log.Printf("frame %d inference failed: %v", frame.Seq, err)
				captureToken = prof.StartTiming(profiler.OpFrameCapture)
				continue
			}

			postToken := prof.StartTiming(profiler.OpPostProcessing)
			if len(result.Detections) > 0 {
				met.detectionsTotal.Add(uint64(len(result.Detections)))
				if err := csvWriter.Append(frame, result.Detections); err != nil {
					met.csvWriteError.Add(1)
					setStatus("csv_writer", "error")
					log.Printf("detection write failed: %v", err)
				} else {
					met.csvWriteOK.Add(1)
					setStatus("csv_writer", "ok")
					setStatus("last_write", time.Now().Format(time.RFC3339))
				}
				select {
				case uiMessages <- map[string]any{
					"type":         "detections",
					"frame_seq":    frame.Seq,
					"timestamp":    frame.Timestamp,
					"detections":   result.Detections,
					"inference_ms": result.InferenceMs,
				}:
				default:
				}
			}
			prof.EndTiming(profiler.OpPostProcessing, postToken)

			prof.EndTiming(profiler.OpTotalPipeline, totalToken)
			met.framesProcessed.Add(1)
			processedThisSecond.Add(1)
			captureToken = prof.StartTiming(profiler.OpFrameCapture)
		}
	}()

	statusFn := func() map[string]any {
		statusMu.Lock()
		payload := map[string]any{}
		for k, v := range status {
			payload[k] = v
		}
		statusMu.Unlock()

		metricsPayload := met.snapshot()
		metricsPayload["ingest_decode_failures_total"] = ingest.DecodeFailures()
		decodeCount, decodeNanos := ingest.DecodeTiming()
		metricsPayload["ingest_decode_total"] = decodeCount
		metricsPayload["ingest_decode_nanos_total"] = decodeNanos
		payload["metrics"] = metricsPayload
		payload["admission"] = admission.Stats()
		payload["bottlenecks"] = prof.Bottlenecks()
		payload["run_timestamp"] = runTimestamp
		return payload
	}

	snapshotFn := func() any {
		latestStatsMu.Lock()
		defer latestStatsMu.Unlock()
		if latestStats == nil {
			return nil
		}
		return latestStats
	}

	configFn := func() map[string]any {
		return map[string]any{
			"type":                 "config",
			"port":                 cfg.Port,
			"endpoint":             cfg.Endpoint,
			"detector_url":         cfg.DetectorURL,
			"target_fps":           cfg.TargetFPS,
			"skip_frames":          cfg.SkipFrames,
			"adaptive_skip":        cfg.AdaptiveSkip,
			"smart_selection":      cfg.SmartSelection,
			"similarity_threshold": cfg.SimilarityThreshold,
			"resize":               cfg.ResizeEnabled,
			"resize_width":         cfg.ResizeWidth,
			"resize_height":        cfg.ResizeHeight,
			"tracking":             cfg.Tracking,
			"confidence":           cfg.Confidence,
			"iou":                  cfg.IOU,
		}
	}

	log.Printf("Starting dashboard at http://localhost:%d", cfg.Port)
	if err := server.Run(ctx, cfg, uiMessages, statusFn, snapshotFn, configFn); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
