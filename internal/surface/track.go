// Package surface implements the interactive timeline surface: the
// pixel/time geometry of the track and the two mutually exclusive drag
// state machines, reorder and trim. The surface never owns authoritative
// state; every gesture produces full replacement sequences the editor
// session accepts or discards.
package surface

import (
	"github.com/seamline/seamline-agent/internal/timeline"
)

// DefaultMinSpan is the minimum visible span of the track in seconds,
// so an empty or very short timeline still renders a usable canvas.
const DefaultMinSpan = 10.0

// Track maps between pointer X positions and timeline time. WidthPx is
// the rendered track width reported by the UI.
type Track struct {
	WidthPx float64
	MinSpan float64
}

// NewTrack builds a track with the default minimum span.
func NewTrack(widthPx float64) Track {
	return Track{WidthPx: widthPx, MinSpan: DefaultMinSpan}
}

// Span is the number of seconds the full track width represents.
func (t Track) Span(clips []timeline.Clip) float64 {
	span := timeline.Duration(clips)
	min := t.MinSpan
	if min <= 0 {
		min = DefaultMinSpan
	}
	if span < min {
		span = min
	}
	return span
}

// TimeAt converts a pointer X position to timeline time, clamped to the
// track bounds.
func (t Track) TimeAt(clips []timeline.Clip, x float64) float64 {
	if t.WidthPx <= 0 {
		return 0
	}
	if x < 0 {
		x = 0
	}
	if x > t.WidthPx {
		x = t.WidthPx
	}
	return x / t.WidthPx * t.Span(clips)
}

// XFor converts a timeline time to a pointer X position on the track.
func (t Track) XFor(clips []timeline.Clip, ts float64) float64 {
	span := t.Span(clips)
	if span <= 0 {
		return 0
	}
	if ts < 0 {
		ts = 0
	}
	if ts > span {
		ts = span
	}
	return ts / span * t.WidthPx
}

// SeekTime maps a background click to a cursor position: pointer X to
// time, clamped into the edit so a click past the last clip seeks to
// the timeline end rather than into empty track.
func (t Track) SeekTime(clips []timeline.Clip, x float64) float64 {
	ts := t.TimeAt(clips, x)
	if dur := timeline.Duration(clips); ts > dur {
		ts = dur
	}
	return ts
}
