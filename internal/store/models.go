// Package store persists the agent's ambient data: identity and auth
// config, export job history, and measured source durations.
package store

import "time"

// Export job statuses.
const (
	ExportStatusPending   = "pending"
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// Export job kinds, matching the exporter that handles them.
const (
	ExportKindRender = "render"
	ExportKindEDL    = "edl"
)

// Config keys the agent stores.
const (
	ConfigKeyDeviceID  = "device_id"
	ConfigKeyAuthToken = "auth_token"
)

// ExportJob records one export dispatch and its outcome.
type ExportJob struct {
	ID            string
	Kind          string
	Status        string
	Progress      int
	ClipCount     int
	TotalDuration float64
	ResultURL     string
	ResultType    string
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
