package output

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"drishti-go/internal/types"
)

// Timestamp returns the run timestamp used to name output files.
func Timestamp() string {
	return time.Now().Format("20060102_150405")
}

// DetectionWriter appends detection rows to a per-run CSV file.
type DetectionWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewDetectionWriter creates <outputDir>/<runTimestamp>_detections.csv with a
// header row. The directory is created if missing.
func NewDetectionWriter(outputDir, runTimestamp string) (*DetectionWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, runTimestamp+"_detections.csv")
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(file)
	if _, err := fmt.Fprintln(buf, "timestamp,frame_seq,label,confidence,x1,y1,x2,y2,track_id"); err != nil {
		file.Close()
		return nil, err
	}
	return &DetectionWriter{file: file, buf: buf}, nil
}

// Append writes one row per detection for the given frame.
func (w *DetectionWriter) Append(frame types.Frame, detections []types.Detection) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, d := range detections {
		_, err := fmt.Fprintf(w.buf, "%.6f,%d,%s,%.4f,%.1f,%.1f,%.1f,%.1f,%d\n",
			frame.Timestamp, frame.Seq, d.Label, d.Confidence, d.X1, d.Y1, d.X2, d.Y2, d.TrackID)
		if err != nil {
			return err
		}
	}
	return w.buf.Flush()
}

func (w *DetectionWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteMetadata stores a run metadata message as pretty-printed JSON, named
// <runTimestamp>_<kind>_meta.json.
func WriteMetadata(outputDir, runTimestamp, kind string, meta map[string]any) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	normalized := NormalizeJSONValue(meta)
	data, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s_meta.json", runTimestamp, kind))
	return os.WriteFile(path, data, 0o644)
}

// NormalizeJSONValue rewrites CBOR-decoded values into something
// encoding/json accepts: map keys become strings and byte slices become
// base64, recursively.
func NormalizeJSONValue(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[fmt.Sprint(key)] = NormalizeJSONValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = NormalizeJSONValue(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = NormalizeJSONValue(val)
		}
		return out
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	default:
		return v
	}
}
