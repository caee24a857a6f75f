package timeline

// Duration returns the total length of the edit in seconds: the latest
// clip end across the sequence, zero for an empty sequence. Using the
// max end rather than a sum tolerates the gapped layouts that exist
// transiently during drag previews.
func Duration(clips []Clip) float64 {
	var max float64
	for _, c := range clips {
		if end := c.EndTime(); end > max {
			max = end
		}
	}
	return max
}

// LayoutSequentially returns a new sequence in the same order where
// each clip starts exactly where the previous one ends. This is the
// canonical gap-removal pass, invoked after every committed reorder,
// end-trim move, and start-trim release.
func LayoutSequentially(clips []Clip) []Clip {
	out := make([]Clip, len(clips))
	var offset float64
	for i, c := range clips {
		c.StartTime = offset
		offset += c.EffectiveDuration()
		out[i] = c
	}
	return out
}

// ApplyTrim returns a copy of the clip with the candidate trim window
// clamped into validity: trimStart within [0, sourceDuration], trimEnd
// within [trimStart+MinClipDuration, sourceDuration]. Out-of-range
// values are clamped, never rejected, since trimming is a continuous
// gesture. StartTime is left untouched; callers re-layout afterward.
func ApplyTrim(c Clip, trimStart, trimEnd float64) Clip {
	src := c.SourceDuration
	if src < MinClipDuration {
		src = MinClipDuration
	}

	if trimStart < 0 {
		trimStart = 0
	}
	if trimStart > src-MinClipDuration {
		trimStart = src - MinClipDuration
	}

	if trimEnd < trimStart+MinClipDuration {
		trimEnd = trimStart + MinClipDuration
	}
	if trimEnd > src {
		trimEnd = src
	}

	c.TrimStart = trimStart
	c.TrimEnd = trimEnd
	return c
}

// ClipAt returns the clip whose [StartTime, StartTime+EffectiveDuration)
// interval contains t. Half-open intervals mean a time exactly on a
// seam belongs to the following clip, so no instant is owned twice.
func ClipAt(clips []Clip, t float64) (Clip, bool) {
	for _, c := range clips {
		if t >= c.StartTime && t < c.EndTime() {
			return c, true
		}
	}
	return Clip{}, false
}

// IndexAt is ClipAt by position in the backing slice, -1 when no clip
// covers t.
func IndexAt(clips []Clip, t float64) int {
	for i, c := range clips {
		if t >= c.StartTime && t < c.EndTime() {
			return i
		}
	}
	return -1
}

// IndexOf locates a clip by ID, -1 when absent.
func IndexOf(clips []Clip, id string) int {
	for i, c := range clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// NextIndex returns the index of the clip following the one covering t,
// or -1 when t falls inside the last clip or no clip at all.
func NextIndex(clips []Clip, t float64) int {
	i := IndexAt(clips, t)
	if i < 0 || i+1 >= len(clips) {
		return -1
	}
	return i + 1
}

// Reorder returns a new sequence where the clip at from is removed and
// reinserted at the insertion index to, then laid out sequentially.
// The insertion index addresses the sequence with the dragged clip
// already removed, matching how drag previews are built. from == to is
// an idempotent no-op that still re-lays-out. Out-of-range indices
// return the input laid out unchanged.
func Reorder(clips []Clip, from, to int) []Clip {
	if from < 0 || from >= len(clips) || to < 0 || to > len(clips) {
		return LayoutSequentially(clips)
	}

	out := make([]Clip, 0, len(clips))
	out = append(out, clips[:from]...)
	out = append(out, clips[from+1:]...)

	insert := to
	if insert > len(out) {
		insert = len(out)
	}

	out = append(out[:insert], append([]Clip{clips[from]}, out[insert:]...)...)
	return LayoutSequentially(out)
}
