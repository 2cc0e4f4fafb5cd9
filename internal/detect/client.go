package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"

	"drishti-go/internal/types"
)

const maxResponseBytes = 4 << 20

// Client talks to the inference sidecar over HTTP. Frames go out as CBOR,
// results come back as JSON.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Detect(ctx context.Context, frame types.Frame, params Params) (Result, error) {
	payload, err := cbor.Marshal(map[string]any{
		"seq":       frame.Seq,
		"timestamp": frame.Timestamp,
		"width":     frame.Width,
		"height":    frame.Height,
		"format":    "bgr8",
		"data":      frame.Pix,
		"params": map[string]any{
			"confidence": params.Confidence,
			"iou":        params.IOU,
			"tracking":   params.Tracking,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/1.0/detect", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/cbor")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("detector returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("decode detect response: %w", err)
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
