// Package player presents a single continuous-looking playback stream
// across a sequence of independently-sourced clips. It owns one active
// media element plus one hidden preload element, translates between
// global timeline time and per-clip source time, and advances the
// cursor from a cooperative tick loop while playing.
package player

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/seamline/seamline-agent/internal/timeline"
)

const (
	// SeekTolerance is how far the external cursor may drift from the
	// media element's own clock before a corrective seek, in seconds.
	SeekTolerance = 0.5

	// BoundaryEpsilon is how close to a clip's trim end counts as
	// reaching it, in seconds.
	BoundaryEpsilon = 0.05

	// correctionHold suppresses time publishing briefly after a
	// corrective seek so the re-seek does not feed back on itself.
	correctionHold = 100 * time.Millisecond

	// DefaultTickInterval approximates an animation-frame cadence.
	DefaultTickInterval = 33 * time.Millisecond
)

// Config wires a Player.
type Config struct {
	Active  Media
	Preload Media
	Logger  *slog.Logger

	// TickInterval overrides the loop cadence; zero uses the default.
	TickInterval time.Duration

	// OnTime publishes translated global timeline time upward while
	// playing. Called without the player lock held.
	OnTime func(seconds float64)
	// OnStop fires when playback reaches the end of the last clip.
	OnStop func()

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Player maps the shared playback cursor onto the correct clip and
// in-clip source time. The tick loop is the sole writer of the cursor
// while actively playing; seeks and sequence replacements act between
// ticks under the same lock.
type Player struct {
	mu sync.Mutex

	active  Media
	preload Media
	logger  *slog.Logger

	clips         []timeline.Clip
	currentTime   float64
	playing       bool
	transitioning bool
	wasPlaying    bool
	activeClipID  string
	inGap         bool

	volume float64
	muted  bool

	generation   int
	lastCorrect  time.Time
	tickInterval time.Duration
	onTime       func(float64)
	onStop       func()
	now          func() time.Time
}

// New creates a Player. Active and Preload must be distinct elements.
func New(cfg Config) *Player {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		active:       cfg.Active,
		preload:      cfg.Preload,
		logger:       logger,
		volume:       1,
		tickInterval: tick,
		onTime:       cfg.OnTime,
		onStop:       cfg.OnStop,
		now:          now,
	}
}

// Run drives the tick loop until ctx is cancelled. Starting a new Run
// invalidates any previous one: a stale loop that fires after being
// superseded observes a generation mismatch and exits without acting.
func (p *Player) Run(ctx context.Context) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.Step(gen) {
				return
			}
		}
	}
}

// Step executes one loop tick for the given generation and reports
// whether the loop should keep running. Exposed so tests can drive the
// loop deterministically.
func (p *Player) Step(gen int) bool {
	p.mu.Lock()

	if gen != p.generation {
		p.mu.Unlock()
		return false
	}

	var publish *float64
	stopped := false

	switch {
	case p.transitioning:
		p.finishTransitionLocked()
	case p.playing:
		publish, stopped = p.advanceLocked()
	}

	onTime, onStop := p.onTime, p.onStop
	p.mu.Unlock()

	if publish != nil && onTime != nil {
		onTime(*publish)
	}
	if stopped && onStop != nil {
		onStop()
	}
	return true
}

// advanceLocked reads the media clock, translates it to global time,
// and hands off at clip boundaries. Returns a time to publish and
// whether playback just stopped at the timeline end.
func (p *Player) advanceLocked() (*float64, bool) {
	clip, ok := timeline.ClipAt(p.clips, p.currentTime)
	if !ok {
		// A gap never self-advances; only explicit seeks move the
		// cursor here. IsPlaying reports paused, but the intent
		// survives as wasPlaying so a seek into a clip resumes.
		p.inGap = true
		p.wasPlaying = p.wasPlaying || p.playing
		p.playing = false
		p.active.Pause()
		return nil, false
	}
	p.inGap = false

	if p.now().Sub(p.lastCorrect) < correctionHold {
		return nil, false
	}

	mediaPos := p.active.Position()

	if mediaPos >= clip.TrimEnd-BoundaryEpsilon {
		idx := timeline.IndexOf(p.clips, clip.ID)
		if idx >= 0 && idx+1 < len(p.clips) {
			// Clean handoff: the published cursor jumps from inside
			// the old clip directly to the next clip's start.
			next := p.clips[idx+1]
			p.currentTime = next.StartTime
			p.syncLocked()
			t := p.currentTime
			return &t, false
		}

		p.currentTime = timeline.Duration(p.clips)
		p.playing = false
		p.active.Pause()
		t := p.currentTime
		return &t, true
	}

	global := clip.StartTime + (mediaPos - clip.TrimStart)
	p.currentTime = global
	return &global, false
}

// syncLocked aligns the active media element with the clip under the
// cursor: a source switch when the clip changed, a corrective seek when
// the same clip's clocks drifted apart.
func (p *Player) syncLocked() {
	clip, ok := timeline.ClipAt(p.clips, p.currentTime)
	if !ok {
		p.inGap = true
		p.activeClipID = ""
		p.wasPlaying = p.wasPlaying || p.playing
		p.playing = false
		p.active.Pause()
		return
	}
	p.inGap = false

	if clip.ID != p.activeClipID {
		p.beginTransitionLocked(clip)
		return
	}

	mediaGlobal := clip.StartTime + (p.active.Position() - clip.TrimStart)
	if math.Abs(mediaGlobal-p.currentTime) > SeekTolerance {
		p.active.Seek(clip.TrimStart + (p.currentTime - clip.StartTime))
		p.lastCorrect = p.now()
	}

	// Leaving a gap back into the same clip resumes deferred intent.
	if p.wasPlaying && !p.transitioning {
		if err := p.active.Play(); err != nil {
			p.logger.Warn("media failed to resume", "error", err)
		} else {
			p.playing = true
		}
		p.wasPlaying = false
	}
}

// beginTransitionLocked starts the source switch protocol: raise the
// transitioning flag, load and seek the new source, and let the tick
// loop complete the switch once the asset is ready.
func (p *Player) beginTransitionLocked(clip timeline.Clip) {
	p.transitioning = true
	p.wasPlaying = p.wasPlaying || p.playing
	p.playing = false
	p.activeClipID = clip.ID

	p.active.Load(clip.SourceURL)
	p.active.Seek(clip.TrimStart + (p.currentTime - clip.StartTime))
	p.active.SetVolume(p.volume)
	p.active.SetMuted(p.muted)

	p.preloadNextLocked(clip)

	// The asset may already be playable; finish synchronously then.
	p.finishTransitionLocked()
}

func (p *Player) finishTransitionLocked() {
	if !p.transitioning {
		return
	}

	if err := p.active.Err(); err != nil {
		p.logger.Warn("media failed to load, pausing", "error", err)
		p.transitioning = false
		p.wasPlaying = false
		p.playing = false
		return
	}

	if !p.active.Ready() {
		return
	}

	if p.wasPlaying {
		if err := p.active.Play(); err != nil {
			p.logger.Warn("media failed to resume after switch", "error", err)
		} else {
			p.playing = true
		}
	}
	p.wasPlaying = false
	p.transitioning = false
}

func (p *Player) preloadNextLocked(current timeline.Clip) {
	if p.preload == nil {
		return
	}
	idx := timeline.IndexOf(p.clips, current.ID)
	if idx >= 0 && idx+1 < len(p.clips) {
		next := p.clips[idx+1]
		if p.preload.SourceURL() != next.SourceURL {
			p.preload.Load(next.SourceURL)
		}
	}
}

// SetClips replaces the sequence the player renders against. The cursor
// is clamped into the new edit and the media element re-synced, since
// the clip under the cursor may have changed identity or trim.
func (p *Player) SetClips(clips []timeline.Clip) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clips = make([]timeline.Clip, len(clips))
	copy(p.clips, clips)

	if dur := timeline.Duration(p.clips); p.currentTime > dur {
		p.currentTime = dur
	}
	p.syncLocked()
}

// Seek moves the playback cursor to a global timeline time.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seconds < 0 {
		seconds = 0
	}
	if dur := timeline.Duration(p.clips); seconds > dur {
		seconds = dur
	}
	p.currentTime = seconds
	p.syncLocked()
}

// Play starts playback. At the timeline end it restarts from zero.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dur := timeline.Duration(p.clips); dur > 0 && p.currentTime >= dur {
		p.currentTime = 0
		p.activeClipID = ""
	}

	if p.transitioning {
		p.wasPlaying = true
		return
	}

	clip, ok := timeline.ClipAt(p.clips, p.currentTime)
	if !ok {
		// Play in a gap records intent; seeking into a clip honors it.
		p.inGap = true
		p.wasPlaying = true
		return
	}

	if clip.ID != p.activeClipID {
		p.wasPlaying = true
		p.beginTransitionLocked(clip)
		return
	}

	if err := p.active.Play(); err != nil {
		p.logger.Warn("media failed to play", "error", err)
		return
	}
	p.playing = true
}

// Pause stops playback without moving the cursor.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.playing = false
	p.wasPlaying = false
	p.active.Pause()
}

// Toggle flips between playing and paused.
func (p *Player) Toggle() {
	if p.IsPlaying() {
		p.Pause()
	} else {
		p.Play()
	}
}

// Restart seeks to zero without changing the play state.
func (p *Player) Restart() {
	p.Seek(0)
}

// SetVolume applies a volume in [0, 1] to the active element.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	p.volume = volume
	p.active.SetVolume(volume)
}

// SetMuted applies the mute state to the active element.
func (p *Player) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = muted
	p.active.SetMuted(muted)
}

// Fullscreen forwards the fullscreen command to the active element.
func (p *Player) Fullscreen() {
	p.active.Fullscreen()
}

// CurrentTime returns the cursor position in global timeline seconds.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime
}

// IsPlaying reports whether the tick loop is advancing time. In a gap
// or mid-transition this is false even when the user's last command
// was Play; that intent is held separately and resumes on its own.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Transitioning reports whether a source switch is in flight.
func (p *Player) Transitioning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitioning
}

// InGap reports whether no clip covers the cursor, the explicit
// "nothing to play here" state.
func (p *Player) InGap() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inGap
}

// ActiveClipID returns the ID of the clip bound to the active element.
func (p *Player) ActiveClipID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeClipID
}

// Generation returns the current loop generation, for driving Step in
// tests.
func (p *Player) Generation() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}
