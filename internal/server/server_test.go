package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"drishti-go/internal/config"
)

func TestHandleConfig(t *testing.T) {
	srv := &Server{
		cfg: config.AppConfig{
			Port:                9999,
			TargetFPS:           30,
			AdaptiveSkip:        true,
			SimilarityThreshold: 0.95,
		},
	}

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	if payload["target_fps"].(float64) != 30 {
		t.Fatalf("unexpected target_fps: %v", payload["target_fps"])
	}
	if payload["adaptive_skip"] != true {
		t.Fatalf("unexpected adaptive_skip: %v", payload["adaptive_skip"])
	}
	if payload["similarity_threshold"].(float64) != 0.95 {
		t.Fatalf("unexpected similarity_threshold: %v", payload["similarity_threshold"])
	}
}

func TestHandleStatusMergesClientCount(t *testing.T) {
	s := &Server{
		statusFn: func() map[string]any {
			return map[string]any{"detector": "ready"}
		},
	}

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["detector"] != "ready" {
		t.Fatalf("unexpected detector: %v", payload["detector"])
	}
	if payload["ws_clients"].(float64) != 0 {
		t.Fatalf("unexpected ws_clients: %v", payload["ws_clients"])
	}
}
