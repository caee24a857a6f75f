// Package export hands a finished edit to a rendering collaborator.
// The agent never flattens video itself: it describes the edit as a
// manifest of source references and trim windows and lets an exporter
// produce the deliverable.
package export

import (
	"fmt"

	"github.com/seamline/seamline-agent/internal/timeline"
)

// ManifestClip is one entry of an export manifest. Times are seconds;
// TrimStart and TrimEnd are source-relative, StartTime is global.
type ManifestClip struct {
	ID                string  `json:"id"`
	SourceURL         string  `json:"source_url"`
	Label             string  `json:"label,omitempty"`
	StartTime         float64 `json:"start_time"`
	TrimStart         float64 `json:"trim_start"`
	TrimEnd           float64 `json:"trim_end"`
	EffectiveDuration float64 `json:"effective_duration"`
}

// Manifest is the full description of an edit handed to an exporter.
// It is a snapshot: later timeline edits never mutate a manifest
// already dispatched.
type Manifest struct {
	Title         string         `json:"title"`
	Clips         []ManifestClip `json:"clips"`
	Format        string         `json:"format"`
	Quality       string         `json:"quality"`
	Resolution    string         `json:"resolution"`
	TotalDuration float64        `json:"total_duration"`
}

// Result is the handle an exporter returns for the deliverable.
type Result struct {
	ResultURL  string `json:"result_url"`
	ResultType string `json:"result_type"`
}

// BuildManifest snapshots a clip sequence into a manifest. The clip
// slice is copied by value, so the manifest is immune to later edits.
func BuildManifest(clips []timeline.Clip, title, format, quality, resolution string) Manifest {
	m := Manifest{
		Title:         title,
		Clips:         make([]ManifestClip, 0, len(clips)),
		Format:        format,
		Quality:       quality,
		Resolution:    resolution,
		TotalDuration: timeline.Duration(clips),
	}
	for _, c := range clips {
		m.Clips = append(m.Clips, ManifestClip{
			ID:                c.ID,
			SourceURL:         c.SourceURL,
			Label:             c.Label,
			StartTime:         c.StartTime,
			TrimStart:         c.TrimStart,
			TrimEnd:           c.TrimEnd,
			EffectiveDuration: c.EffectiveDuration(),
		})
	}
	return m
}

// Validate rejects manifests no exporter could act on.
func (m Manifest) Validate() error {
	if len(m.Clips) == 0 {
		return fmt.Errorf("manifest has no clips")
	}
	for i, c := range m.Clips {
		if c.SourceURL == "" {
			return fmt.Errorf("clip %d (%s) has no source url", i, c.ID)
		}
		if c.TrimEnd <= c.TrimStart {
			return fmt.Errorf("clip %d (%s) has empty trim window [%v, %v]", i, c.ID, c.TrimStart, c.TrimEnd)
		}
	}
	if m.TotalDuration <= 0 {
		return fmt.Errorf("manifest has non-positive total duration %v", m.TotalDuration)
	}
	return nil
}
