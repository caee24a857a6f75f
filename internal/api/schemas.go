package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seamline/seamline-agent/internal/editor"
	"github.com/seamline/seamline-agent/internal/store"
	"github.com/seamline/seamline-agent/internal/timeline"
)

var validate = validator.New()

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type ClipResponse struct {
	ID                string  `json:"id"`
	SourceURL         string  `json:"source_url"`
	Label             string  `json:"label,omitempty"`
	CreatedAt         string  `json:"created_at"`
	SourceDuration    float64 `json:"source_duration"`
	DurationKnown     bool    `json:"duration_known"`
	TrimStart         float64 `json:"trim_start"`
	TrimEnd           float64 `json:"trim_end"`
	StartTime         float64 `json:"start_time"`
	EffectiveDuration float64 `json:"effective_duration"`
	EndTime           float64 `json:"end_time"`
}

type StateResponse struct {
	Clips          []ClipResponse `json:"clips"`
	Duration       float64        `json:"duration"`
	CurrentTime    float64        `json:"current_time"`
	IsPlaying      bool           `json:"is_playing"`
	Transitioning  bool           `json:"transitioning"`
	InGap          bool           `json:"in_gap"`
	ActiveClipID   string         `json:"active_clip_id,omitempty"`
	SelectedClipID string         `json:"selected_clip_id,omitempty"`
	Gesture        string         `json:"gesture"`
}

type GenerateClipRequest struct {
	SourceURL string `json:"source_url" validate:"required"`
	Label     string `json:"label,omitempty" validate:"max=256"`
}

type GenerateClipResponse struct {
	Clip ClipResponse `json:"clip"`
}

type SelectResponse struct {
	SelectedClipID string `json:"selected_clip_id,omitempty"`
}

type BeginReorderRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type BeginTrimRequest struct {
	Index *int   `json:"index" validate:"required,gte=0"`
	Edge  string `json:"edge" validate:"required,oneof=start end"`
}

type MoveGestureRequest struct {
	X *float64 `json:"x" validate:"required"`
}

type SeekRequest struct {
	Seconds *float64 `json:"seconds,omitempty"`
	X       *float64 `json:"x,omitempty"`
}

type StartExportRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=render edl"`
	Title      string `json:"title" validate:"required,max=256"`
	Format     string `json:"format,omitempty" validate:"max=32"`
	Quality    string `json:"quality,omitempty" validate:"max=32"`
	Resolution string `json:"resolution,omitempty" validate:"max=32"`
}

type StartExportResponse struct {
	JobID string `json:"job_id"`
}

type ExportJobResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	Progress      int     `json:"progress"`
	ClipCount     int     `json:"clip_count"`
	TotalDuration float64 `json:"total_duration"`
	ResultURL     string  `json:"result_url,omitempty"`
	ResultType    string  `json:"result_type,omitempty"`
	Error         string  `json:"error,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

type ExportJobsResponse struct {
	Jobs []ExportJobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ClipToResponse(c timeline.Clip) ClipResponse {
	return ClipResponse{
		ID:                c.ID,
		SourceURL:         c.SourceURL,
		Label:             c.Label,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		SourceDuration:    c.SourceDuration,
		DurationKnown:     c.DurationKnown,
		TrimStart:         c.TrimStart,
		TrimEnd:           c.TrimEnd,
		StartTime:         c.StartTime,
		EffectiveDuration: c.EffectiveDuration(),
		EndTime:           c.EndTime(),
	}
}

func StateToResponse(s editor.State) StateResponse {
	clips := make([]ClipResponse, len(s.Clips))
	for i, c := range s.Clips {
		clips[i] = ClipToResponse(c)
	}
	return StateResponse{
		Clips:          clips,
		Duration:       s.Duration,
		CurrentTime:    s.CurrentTime,
		IsPlaying:      s.IsPlaying,
		Transitioning:  s.Transitioning,
		InGap:          s.InGap,
		ActiveClipID:   s.ActiveClipID,
		SelectedClipID: s.SelectedClipID,
		Gesture:        string(s.Gesture),
	}
}

func ExportJobToResponse(j *store.ExportJob) ExportJobResponse {
	return ExportJobResponse{
		ID:            j.ID,
		Kind:          j.Kind,
		Status:        j.Status,
		Progress:      j.Progress,
		ClipCount:     j.ClipCount,
		TotalDuration: j.TotalDuration,
		ResultURL:     j.ResultURL,
		ResultType:    j.ResultType,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     j.UpdatedAt.Format(time.RFC3339),
	}
}
