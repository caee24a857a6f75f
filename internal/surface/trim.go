package surface

import (
	"fmt"
	"time"

	"github.com/seamline/seamline-agent/internal/timeline"
)

// TrimEdge identifies which handle of the selected clip a trim drag
// engaged.
type TrimEdge int

const (
	EdgeStart TrimEdge = iota
	EdgeEnd
)

func (e TrimEdge) String() string {
	if e == EdgeStart {
		return "start"
	}
	return "end"
}

// TrimDrag is the drag-to-trim state machine: Idle -> Trimming(start|end)
// -> Idle. The two edges move the sequence differently during the live
// drag:
//
// End edge: the clip's effective duration changes, so every later clip
// must stay adjacent. The whole sequence is re-laid-out on each move.
//
// Start edge: the clip's right edge stays visually anchored while its
// left edge moves, so the trimmed clip and every clip before it shift
// by the trim delta and later clips are untouched until release.
// Release performs the mandatory full re-layout that normalizes the
// sequence.
//
// Cancel always returns the snapshot captured at gesture start.
type TrimDrag struct {
	track  Track
	base   []timeline.Clip
	live   []timeline.Clip
	index  int
	edge   TrimEdge
	clipID string

	throttle   *Throttle
	pendingX   float64
	hasPending bool
	done       bool
}

// BeginTrim starts a trim drag on one edge of the clip at index.
func BeginTrim(track Track, clips []timeline.Clip, index int, edge TrimEdge) (*TrimDrag, error) {
	if index < 0 || index >= len(clips) {
		return nil, fmt.Errorf("trim: clip index %d out of range [0, %d)", index, len(clips))
	}

	base := make([]timeline.Clip, len(clips))
	copy(base, clips)
	live := make([]timeline.Clip, len(clips))
	copy(live, clips)

	return &TrimDrag{
		track:    track,
		base:     base,
		live:     live,
		index:    index,
		edge:     edge,
		clipID:   clips[index].ID,
		throttle: NewThrottle(DefaultGestureRateHz),
	}, nil
}

// WithRate replaces the default sample throttle rate. Call before the
// first MoveTo.
func (d *TrimDrag) WithRate(hz int) *TrimDrag {
	d.throttle = NewThrottle(hz)
	return d
}

// MoveTo feeds a pointer X sample at the given instant and returns the
// current live sequence plus whether this sample was applied. Dropped
// samples stay pending; the most recent one is always applied by the
// next admitted move or by Release.
func (d *TrimDrag) MoveTo(x float64, now time.Time) ([]timeline.Clip, bool) {
	if d.done {
		return d.live, false
	}
	d.pendingX = x
	d.hasPending = true
	if !d.throttle.Ready(now) {
		return d.live, false
	}
	d.applyPending()
	return d.live, true
}

func (d *TrimDrag) applyPending() {
	if !d.hasPending {
		return
	}
	d.hasPending = false

	clip := d.live[d.index]
	t := d.track.TimeAt(d.live, d.pendingX)

	// Pointer time relative to the clip's left edge, expressed as an
	// offset into the source asset.
	candidate := clip.TrimStart + (t - clip.StartTime)

	switch d.edge {
	case EdgeEnd:
		trimmed := timeline.ApplyTrim(clip, clip.TrimStart, candidate)
		d.live[d.index] = trimmed
		d.live = timeline.LayoutSequentially(d.live)

	case EdgeStart:
		trimmed := timeline.ApplyTrim(clip, candidate, clip.TrimEnd)
		delta := trimmed.TrimStart - clip.TrimStart

		// Right edge anchored: the trimmed clip's start moves by the
		// delta, and so does everything before it. Later clips hold
		// still until release.
		trimmed.StartTime = clip.StartTime + delta
		d.live[d.index] = trimmed
		for i := 0; i < d.index; i++ {
			d.live[i].StartTime += delta
		}
	}
}

// ClipID returns the ID of the clip being trimmed.
func (d *TrimDrag) ClipID() string {
	return d.clipID
}

// Edge returns which handle the drag engaged.
func (d *TrimDrag) Edge() TrimEdge {
	return d.edge
}

// Live returns the current live sequence without applying anything.
func (d *TrimDrag) Live() []timeline.Clip {
	return d.live
}

// Release ends the gesture: any pending sample is applied, then the
// full sequence is laid out sequentially. For a start-edge drag this
// final pass is what repositions the untouched later clips.
func (d *TrimDrag) Release() []timeline.Clip {
	if d.done {
		return d.live
	}
	d.done = true

	d.applyPending()
	d.live = timeline.LayoutSequentially(d.live)
	return d.live
}

// Cancel abandons the gesture and returns the untouched snapshot.
func (d *TrimDrag) Cancel() []timeline.Clip {
	d.done = true
	return d.base
}

// Done reports whether the gesture has already released or cancelled.
func (d *TrimDrag) Done() bool {
	return d.done
}
