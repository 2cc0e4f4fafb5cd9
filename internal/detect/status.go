package detect

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Status is the last known condition of the inference sidecar.
type Status struct {
	State  string `json:"state"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// Poll queries the sidecar status endpoint at the given interval and calls
// update with each result. Runs until the context is cancelled. A failed
// request reports state "offline" so the dashboard can show the outage.
func Poll(ctx context.Context, baseURL string, interval time.Duration, update func(Status)) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	client := &http.Client{Timeout: 3 * time.Second}

	update(fetchStatus(ctx, client, baseURL))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update(fetchStatus(ctx, client, baseURL))
		}
	}
}

func fetchStatus(ctx context.Context, client *http.Client, baseURL string) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/1.0/status", nil)
	if err != nil {
		return Status{State: "offline"}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Status{State: "offline"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || resp.StatusCode != http.StatusOK {
		return Status{State: "offline"}
	}
	return extractStatus(body)
}

// extractStatus pulls the fields we care about out of the status payload,
// tolerating extra keys and missing values.
func extractStatus(body []byte) Status {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Status{State: "unknown"}
	}

	status := Status{State: "unknown"}
	if v, ok := decoded["state"].(string); ok && v != "" {
		status.State = v
	}
	if v, ok := decoded["model"].(string); ok {
		status.Model = v
	}
	if v, ok := decoded["device"].(string); ok {
		status.Device = v
	}
	return status
}
