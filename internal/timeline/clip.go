// Package timeline holds the clip sequence model and the pure time
// arithmetic the editor core is built on. Functions here never mutate
// their inputs; callers receive replacement slices.
package timeline

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MinClipDuration is the smallest effective duration a trim may
	// produce, in seconds. Keeps interactive trimming away from
	// degenerate zero-length clips.
	MinClipDuration = 0.1

	// DefaultClipDuration is the placeholder duration, in seconds, used
	// for a clip whose asset has not been probed yet or whose probe
	// failed.
	DefaultClipDuration = 5.0
)

// Clip is one video asset placed on the timeline with its own trim
// window and computed position.
//
// SourceDuration is only meaningful when DurationKnown is true; the
// probe fills it in asynchronously after creation. TrimStart/TrimEnd
// are in/out points within the source asset. StartTime is a derived
// field: it is recomputed by LayoutSequentially whenever the sequence
// or any trim changes and is never independently authoritative.
type Clip struct {
	ID             string    `json:"id"`
	SourceURL      string    `json:"source_url"`
	Label          string    `json:"label"`
	CreatedAt      time.Time `json:"created_at"`
	SourceDuration float64   `json:"source_duration"`
	DurationKnown  bool      `json:"duration_known"`
	TrimStart      float64   `json:"trim_start"`
	TrimEnd        float64   `json:"trim_end"`
	StartTime      float64   `json:"start_time"`
}

// NewClip creates a clip for a freshly generated asset. The duration is
// unknown until a probe resolves; until then the clip occupies
// DefaultClipDuration seconds with a full-span trim window.
func NewClip(sourceURL, label string, createdAt time.Time) Clip {
	return Clip{
		ID:             NewID(),
		SourceURL:      sourceURL,
		Label:          label,
		CreatedAt:      createdAt,
		SourceDuration: DefaultClipDuration,
		DurationKnown:  false,
		TrimStart:      0,
		TrimEnd:        DefaultClipDuration,
	}
}

// WithSourceDuration returns a copy of the clip with the probed source
// duration applied. The trim window is reset to span the whole asset,
// which is the default after duration resolution.
func (c Clip) WithSourceDuration(seconds float64) Clip {
	if seconds < MinClipDuration {
		seconds = MinClipDuration
	}
	c.SourceDuration = seconds
	c.DurationKnown = true
	c.TrimStart = 0
	c.TrimEnd = seconds
	return c
}

// EffectiveDuration is the on-timeline length of the clip in seconds:
// TrimEnd - TrimStart, floored at zero. A clip whose trim window was
// never set falls back to its source duration.
func (c Clip) EffectiveDuration() float64 {
	if c.TrimStart == 0 && c.TrimEnd == 0 {
		if c.SourceDuration > 0 {
			return c.SourceDuration
		}
		return DefaultClipDuration
	}
	d := c.TrimEnd - c.TrimStart
	if d < 0 {
		return 0
	}
	return d
}

// EndTime is StartTime + EffectiveDuration.
func (c Clip) EndTime() float64 {
	return c.StartTime + c.EffectiveDuration()
}

// NewID returns a unique, stable clip identifier.
func NewID() string {
	return uuid.NewString()
}
