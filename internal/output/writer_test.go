package output

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"drishti-go/internal/types"
)

func TestDetectionWriterAppendsRows(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDetectionWriter(dir, "20260829_120000")
	if err != nil {
		t.Fatalf("NewDetectionWriter error: %v", err)
	}

	frame := types.Frame{Seq: 42, Timestamp: 1700000000.5}
	detections := []types.Detection{
		{Label: "person", Confidence: 0.91, X1: 10, Y1: 20, X2: 110, Y2: 220, TrackID: 7},
		{Label: "car", Confidence: 0.55, X1: 300, Y1: 40, X2: 400, Y2: 140},
	}
	if err := w.Append(frame, detections); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "20260829_120000_detections.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected line count: %d", len(lines))
	}
	if lines[0] != "timestamp,frame_seq,label,confidence,x1,y1,x2,y2,track_id" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], ",42,person,0.9100,") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",0") {
		t.Fatalf("untracked detection should have track id 0: %q", lines[2])
	}
}

func TestWriteMetadata(t *testing.T) {
	dir := t.TempDir()
	meta := map[string]any{
		"type":   "start",
		"source": "gate-cam-3",
		"nested": map[any]any{"width": uint64(1920)},
	}
	if err := WriteMetadata(dir, "20260829_120000", "start", meta); err != nil {
		t.Fatalf("WriteMetadata error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "20260829_120000_start_meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if !strings.Contains(string(data), `"source": "gate-cam-3"`) {
		t.Fatalf("metadata missing source: %s", data)
	}
	if !strings.Contains(string(data), `"width": 1920`) {
		t.Fatalf("nested map not normalized: %s", data)
	}
}

func TestNormalizeJSONValueBytes(t *testing.T) {
	normalized := NormalizeJSONValue(map[string]any{"blob": []byte{1, 2, 3}})
	m, ok := normalized.(map[string]any)
	if !ok {
		t.Fatalf("unexpected type: %T", normalized)
	}
	if m["blob"] != "AQID" {
		t.Fatalf("bytes not base64 encoded: %v", m["blob"])
	}
}

func TestRawLogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewRawLogWriter(dir, "20260829_120000")
	if err != nil {
		t.Fatalf("NewRawLogWriter error: %v", err)
	}

	first := []byte("first payload")
	second := []byte("second")
	if err := w.Record(first); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := w.Record(second); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	r, err := OpenRawLog(filepath.Join(dir, "20260829_120000_capture.rawlog"))
	if err != nil {
		t.Fatalf("OpenRawLog error: %v", err)
	}
	defer r.Close()

	ts, payload, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if string(payload) != "first payload" {
		t.Fatalf("unexpected payload: %q", payload)
	}
	if time.Since(ts) > time.Minute {
		t.Fatalf("unexpected record timestamp: %v", ts)
	}

	if _, payload, err = r.Next(); err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if string(payload) != "second" {
		t.Fatalf("unexpected payload: %q", payload)
	}

	if _, _, err = r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestOpenRawLogRejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.rawlog")
	if err := os.WriteFile(path, []byte("NOTMAGIC and then some"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := OpenRawLog(path); err == nil {
		t.Fatal("wrong magic was accepted")
	}
}
