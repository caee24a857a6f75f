package player

import (
	"fmt"
	"sync"
	"time"
)

// Media is the single underlying video surface the player drives. The
// player is its exclusive owner: no other component reads or writes the
// playback position directly. A browser-backed implementation forwards
// these calls to a <video> element; SyntheticMedia stands in when no
// rendering surface is attached and in tests.
type Media interface {
	// Load binds the element to a new source asset. Readiness is
	// reported asynchronously through Ready.
	Load(sourceURL string)
	// Seek moves the element's own playback position, in seconds of
	// source time.
	Seek(position float64)
	Play() error
	Pause()
	// Position is the element's own current source-time position.
	Position() float64
	// Ready reports whether the current source can play.
	Ready() bool
	// Err returns the load failure for the current source, if any.
	Err() error
	SourceURL() string
	SetVolume(volume float64)
	SetMuted(muted bool)
	// Fullscreen is a direct command with no sequencing requirements.
	Fullscreen()
}

// SyntheticMedia is a clock-driven Media implementation. While playing,
// its position advances in real time from the last seek or play point.
// Load readiness can be delayed, and specific URLs can be made to fail,
// to exercise the player's transition and error paths.
type SyntheticMedia struct {
	mu sync.Mutex

	url      string
	position float64
	playing  bool
	loadedAt time.Time
	syncedAt time.Time
	volume   float64
	muted    bool

	// ReadyDelay is how long after Load the source takes to become
	// playable. Zero means immediately ready.
	ReadyDelay time.Duration
	// FailURLs marks sources whose load fails.
	FailURLs map[string]bool

	now func() time.Time
}

// NewSyntheticMedia builds a synthetic element on the real clock.
func NewSyntheticMedia() *SyntheticMedia {
	return &SyntheticMedia{volume: 1, now: time.Now}
}

// NewSyntheticMediaAt builds a synthetic element on an injected clock
// for deterministic tests.
func NewSyntheticMediaAt(now func() time.Time) *SyntheticMedia {
	return &SyntheticMedia{volume: 1, now: now}
}

func (m *SyntheticMedia) Load(sourceURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.url = sourceURL
	m.position = 0
	m.playing = false
	m.loadedAt = m.now()
	m.syncedAt = m.loadedAt
}

func (m *SyntheticMedia) Seek(position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if position < 0 {
		position = 0
	}
	m.position = position
	m.syncedAt = m.now()
}

func (m *SyntheticMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failedLocked() {
		return fmt.Errorf("media: cannot play failed source %s", m.url)
	}
	if !m.playing {
		m.position = m.positionLocked()
		m.syncedAt = m.now()
		m.playing = true
	}
	return nil
}

func (m *SyntheticMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.position = m.positionLocked()
		m.playing = false
	}
}

func (m *SyntheticMedia) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.positionLocked()
}

func (m *SyntheticMedia) positionLocked() float64 {
	if !m.playing {
		return m.position
	}
	return m.position + m.now().Sub(m.syncedAt).Seconds()
}

func (m *SyntheticMedia) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" || m.failedLocked() {
		return false
	}
	return m.now().Sub(m.loadedAt) >= m.ReadyDelay
}

func (m *SyntheticMedia) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failedLocked() {
		return fmt.Errorf("media: failed to load %s", m.url)
	}
	return nil
}

func (m *SyntheticMedia) failedLocked() bool {
	return m.FailURLs != nil && m.FailURLs[m.url]
}

func (m *SyntheticMedia) SourceURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

func (m *SyntheticMedia) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	m.volume = volume
}

func (m *SyntheticMedia) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
}

func (m *SyntheticMedia) Fullscreen() {}

// Playing reports whether the element is currently advancing.
func (m *SyntheticMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Volume returns the applied volume.
func (m *SyntheticMedia) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Muted returns the applied mute state.
func (m *SyntheticMedia) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}
