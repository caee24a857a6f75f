// Package probe resolves the real duration of a source asset. Generated
// clips arrive with no metadata, so the agent probes each source once
// and feeds the measured duration back into the edit.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single probe subprocess.
const DefaultTimeout = 15 * time.Second

// Prober reports the duration of a source asset in seconds.
type Prober interface {
	Duration(ctx context.Context, sourceURL string) (float64, error)
}

// ProbeError wraps a probe failure with the source it was probing.
type ProbeError struct {
	SourceURL string
	Err       error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.SourceURL, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// ffprobeOutput is the slice of ffprobe's JSON output we read. Duration
// lives under format as a decimal string.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// FFProbe measures durations by shelling out to ffprobe.
type FFProbe struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewFFProbe creates a prober using the ffprobe binary on PATH.
func NewFFProbe(timeout time.Duration, logger *slog.Logger) *FFProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFProbe{binary: "ffprobe", timeout: timeout, logger: logger}
}

// Available reports whether the ffprobe binary can be found.
func (p *FFProbe) Available() bool {
	_, err := exec.LookPath(p.binary)
	return err == nil
}

// Duration runs ffprobe against the source and parses the container
// duration. Remote URLs are handed to ffprobe directly; file URLs are
// translated to paths first.
func (p *FFProbe) Duration(ctx context.Context, sourceURL string) (float64, error) {
	target, err := probeTarget(sourceURL)
	if err != nil {
		return 0, &ProbeError{SourceURL: sourceURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		target,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, &ProbeError{SourceURL: sourceURL, Err: fmt.Errorf("ffprobe timed out: %w", ctx.Err())}
		}
		return 0, &ProbeError{SourceURL: sourceURL, Err: fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))}
	}

	seconds, err := parseDuration(stdout.Bytes())
	if err != nil {
		return 0, &ProbeError{SourceURL: sourceURL, Err: err}
	}

	p.logger.Debug("probed source duration",
		"duration_sec", seconds,
		"elapsed_ms", time.Since(start).Milliseconds())
	return seconds, nil
}

func parseDuration(raw []byte) (float64, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output carries no duration")
	}
	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", seconds)
	}
	return seconds, nil
}

// probeTarget maps a source URL to an argument ffprobe accepts.
func probeTarget(sourceURL string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return "", fmt.Errorf("file url %q has no path", sourceURL)
		}
		return u.Path, nil
	case "http", "https":
		return sourceURL, nil
	case "":
		// Bare paths are taken as-is.
		return sourceURL, nil
	default:
		return "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

// Static returns fixed durations keyed by source URL, for tests and for
// running without ffprobe installed.
type Static struct {
	Durations map[string]float64
}

func (s *Static) Duration(_ context.Context, sourceURL string) (float64, error) {
	seconds, ok := s.Durations[sourceURL]
	if !ok {
		return 0, &ProbeError{SourceURL: sourceURL, Err: fmt.Errorf("no duration registered")}
	}
	return seconds, nil
}
