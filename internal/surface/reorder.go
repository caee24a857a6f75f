package surface

import (
	"fmt"
	"time"

	"github.com/seamline/seamline-agent/internal/timeline"
)

// ReorderDrag is the drag-to-reorder state machine: Idle -> Dragging ->
// Dropped/Cancelled. A drag captures a snapshot of the sequence at
// gesture start; the authoritative sequence is untouched until Drop
// commits, and Cancel always returns the snapshot unchanged.
type ReorderDrag struct {
	track     Track
	base      []timeline.Clip
	source    int
	insertion int

	throttle   *Throttle
	pendingX   float64
	hasPending bool
	done       bool
}

// BeginReorder starts a drag for the clip at sourceIndex. The insertion
// index starts equal to the source index, so an immediate drop is a
// no-op.
func BeginReorder(track Track, clips []timeline.Clip, sourceIndex int) (*ReorderDrag, error) {
	if sourceIndex < 0 || sourceIndex >= len(clips) {
		return nil, fmt.Errorf("reorder: source index %d out of range [0, %d)", sourceIndex, len(clips))
	}

	base := make([]timeline.Clip, len(clips))
	copy(base, clips)

	return &ReorderDrag{
		track:     track,
		base:      base,
		source:    sourceIndex,
		insertion: sourceIndex,
		throttle:  NewThrottle(DefaultGestureRateHz),
	}, nil
}

// WithRate replaces the default sample throttle rate. Call before the
// first MoveTo.
func (d *ReorderDrag) WithRate(hz int) *ReorderDrag {
	d.throttle = NewThrottle(hz)
	return d
}

// MoveTo feeds a pointer X sample at the given instant. Samples are
// throttled; a dropped sample stays pending and the latest one is
// applied by the next admitted move or by Drop.
func (d *ReorderDrag) MoveTo(x float64, now time.Time) {
	if d.done {
		return
	}
	d.pendingX = x
	d.hasPending = true
	if !d.throttle.Ready(now) {
		return
	}
	d.applyPending()
}

func (d *ReorderDrag) applyPending() {
	if !d.hasPending {
		return
	}
	d.hasPending = false

	rest := d.withoutDragged()
	t := d.track.TimeAt(d.base, d.pendingX)

	idx := timeline.IndexAt(rest, t)
	if idx < 0 {
		if t >= timeline.Duration(rest) {
			idx = len(rest)
		} else {
			idx = 0
		}
	}
	d.insertion = idx
}

func (d *ReorderDrag) withoutDragged() []timeline.Clip {
	rest := make([]timeline.Clip, 0, len(d.base)-1)
	rest = append(rest, d.base[:d.source]...)
	rest = append(rest, d.base[d.source+1:]...)
	return timeline.LayoutSequentially(rest)
}

// SourceIndex returns the index the drag started from.
func (d *ReorderDrag) SourceIndex() int {
	return d.source
}

// Insertion returns the current insertion index, addressing the
// sequence with the dragged clip removed.
func (d *ReorderDrag) Insertion() int {
	return d.insertion
}

// Preview builds the non-committed display sequence: dragged clip
// removed, reinserted at the insertion index, hypothetically re-laid
// out. The snapshot behind the drag is not modified.
func (d *ReorderDrag) Preview() []timeline.Clip {
	return timeline.Reorder(d.base, d.source, d.insertion)
}

// Drop commits the gesture. The returned bool reports whether the order
// actually changed; equal source and insertion indices produce the
// original sequence and false. Any pending pointer sample is applied
// first so the drop lands where the pointer last was.
func (d *ReorderDrag) Drop() ([]timeline.Clip, bool) {
	if d.done {
		return d.base, false
	}
	d.done = true

	d.applyPending()

	if d.insertion == d.source {
		return d.base, false
	}
	return timeline.Reorder(d.base, d.source, d.insertion), true
}

// Cancel abandons the gesture and returns the untouched snapshot.
func (d *ReorderDrag) Cancel() []timeline.Clip {
	d.done = true
	return d.base
}

// Done reports whether the gesture has already dropped or cancelled.
func (d *ReorderDrag) Done() bool {
	return d.done
}
