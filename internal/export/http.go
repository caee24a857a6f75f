package export

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPExporter posts the manifest to a remote render service and waits
// for the deliverable handle in the response.
type HTTPExporter struct {
	baseURL    string
	token      string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPExporter creates an exporter against a render service base URL.
func NewHTTPExporter(baseURL, token string, logger *slog.Logger) *HTTPExporter {
	return &HTTPExporter{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// SetDeviceID attaches the agent's device identity to render requests.
func (e *HTTPExporter) SetDeviceID(id string) {
	e.deviceID = id
}

func (e *HTTPExporter) Export(ctx context.Context, manifest Manifest, progress Progress) (*Result, error) {
	if err := manifest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	body, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	url := fmt.Sprintf("%s/api/render", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("X-Seamline-Request-Id", generateRequestID())
	if e.deviceID != "" {
		req.Header.Set("X-Seamline-Device-Id", e.deviceID)
	}

	e.logger.Info("dispatching export to render service",
		"url", url,
		"clip_count", len(manifest.Clips),
		"total_duration_sec", manifest.TotalDuration,
		"body_bytes", len(body),
	)
	if progress != nil {
		progress(0)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExportError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse render response: %w", err)
	}
	if result.ResultURL == "" {
		return nil, fmt.Errorf("render response carries no result url")
	}

	if progress != nil {
		progress(100)
	}
	e.logger.Info("export completed",
		"result_type", result.ResultType,
	)
	return &result, nil
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
