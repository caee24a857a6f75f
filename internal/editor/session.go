// Package editor owns the authoritative editing session: the clip
// array, the playback cursor, the selection, and the single in-flight
// gesture. Every other component either reads a snapshot from here or
// hands back a full replacement sequence; nothing else mutates the
// array.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seamline/seamline-agent/internal/export"
	"github.com/seamline/seamline-agent/internal/player"
	"github.com/seamline/seamline-agent/internal/probe"
	"github.com/seamline/seamline-agent/internal/store"
	"github.com/seamline/seamline-agent/internal/surface"
	"github.com/seamline/seamline-agent/internal/timeline"
)

var (
	// ErrGestureActive rejects any operation that would overlap an
	// in-flight drag. One interactive operation at a time.
	ErrGestureActive = errors.New("another gesture is active")
	// ErrNoGesture rejects move/drop/cancel with nothing in flight.
	ErrNoGesture = errors.New("no gesture in progress")
	// ErrClipNotFound means the referenced clip left the sequence.
	ErrClipNotFound = errors.New("clip not found")
	// ErrNoClips rejects exports of an empty edit.
	ErrNoClips = errors.New("edit has no clips")
)

// Gesture names the session's interactive state.
type Gesture string

const (
	GestureIdle    Gesture = "idle"
	GestureReorder Gesture = "reorder"
	GestureTrim    Gesture = "trim"
)

// Config wires a Session.
type Config struct {
	Player    *player.Player
	Prober    probe.Prober
	Exporters map[string]export.Exporter
	Repo      store.Repository
	Logger    *slog.Logger
	Track     surface.Track

	// GestureRateHz throttles drag samples; zero uses the surface
	// default.
	GestureRateHz int

	// PlaceholderDuration overrides the duration assumed for clips
	// whose probe has not resolved; zero uses the timeline default.
	PlaceholderDuration float64

	// OnSelect notifies the outer chat UI of selection changes. The
	// channel is one-way: nothing about the selection flows back.
	OnSelect func(clipID string, selected bool)

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Session is the single source of truth for one editing session.
type Session struct {
	mu sync.Mutex

	player      *player.Player
	prober      probe.Prober
	exporters   map[string]export.Exporter
	repo        store.Repository
	logger      *slog.Logger
	track       surface.Track
	rateHz      int
	placeholder float64
	onSelect    func(string, bool)
	now         func() time.Time

	clips     []timeline.Clip
	selection surface.Selection

	reorder *surface.ReorderDrag
	trim    *surface.TrimDrag

	// pendingProbes holds duration results that arrived mid-gesture.
	// They merge by clip ID once the gesture resolves, so a drag's
	// base snapshot is never yanked out from under it.
	pendingProbes map[string]float64

	// pendingClips holds clips ingested mid-gesture, appended to the
	// sequence when the gesture resolves for the same reason.
	pendingClips []timeline.Clip
}

// NewSession creates an empty session.
func NewSession(cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rate := cfg.GestureRateHz
	if rate <= 0 {
		rate = surface.DefaultGestureRateHz
	}
	return &Session{
		player:        cfg.Player,
		prober:        cfg.Prober,
		exporters:     cfg.Exporters,
		repo:          cfg.Repo,
		logger:        logger,
		track:         cfg.Track,
		rateHz:        rate,
		placeholder:   cfg.PlaceholderDuration,
		onSelect:      cfg.OnSelect,
		now:           now,
		pendingProbes: make(map[string]float64),
	}
}

// gestureLocked reports which gesture is in flight.
func (s *Session) gestureLocked() Gesture {
	switch {
	case s.reorder != nil:
		return GestureReorder
	case s.trim != nil:
		return GestureTrim
	default:
		return GestureIdle
	}
}

// Clips returns a copy of the authoritative sequence.
func (s *Session) Clips() []timeline.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyClips(s.clips)
}

// PreviewClips returns what the UI should render right now: the live
// drag preview while a gesture is active, the authoritative sequence
// otherwise.
func (s *Session) PreviewClips() []timeline.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.reorder != nil:
		return s.reorder.Preview()
	case s.trim != nil:
		return copyClips(s.trim.Live())
	default:
		return copyClips(s.clips)
	}
}

// HandleGeneration ingests a freshly generated clip: it enters the
// sequence immediately with a placeholder duration, and the real
// duration arrives later from an async probe, merged by clip ID.
func (s *Session) HandleGeneration(ctx context.Context, sourceURL, label string) (timeline.Clip, error) {
	if sourceURL == "" {
		return timeline.Clip{}, fmt.Errorf("source url is required")
	}

	clip := timeline.NewClip(sourceURL, label, s.now())
	if s.placeholder >= timeline.MinClipDuration {
		clip.SourceDuration = s.placeholder
		clip.TrimEnd = s.placeholder
	}

	s.mu.Lock()
	if s.gestureLocked() != GestureIdle {
		// A drag's base snapshot stays stable; the clip appends when
		// the gesture resolves, never dropped.
		s.pendingClips = append(s.pendingClips, clip)
	} else {
		s.clips = timeline.LayoutSequentially(append(copyClips(s.clips), clip))
		s.syncPlayerLocked()
	}
	s.mu.Unlock()

	s.logger.Info("clip entered edit",
		"clip_id", clip.ID,
		"label", label,
	)

	if s.prober != nil {
		// The probe must outlive the triggering request, which is
		// done the moment this returns.
		go s.probeDuration(context.WithoutCancel(ctx), clip.ID, sourceURL)
	}
	return clip, nil
}

func (s *Session) probeDuration(ctx context.Context, clipID, sourceURL string) {
	seconds, err := s.prober.Duration(ctx, sourceURL)
	if err != nil {
		// The clip keeps its placeholder duration; the edit stays
		// usable and the trim window opens up once re-generated.
		s.logger.Warn("duration probe failed, keeping placeholder",
			"clip_id", clipID,
			"error", err,
		)
		return
	}
	s.applyProbeResult(clipID, seconds)
}

func (s *Session) applyProbeResult(clipID string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gestureLocked() != GestureIdle {
		s.pendingProbes[clipID] = seconds
		return
	}
	s.mergeProbeLocked(clipID, seconds)
}

// mergeProbeLocked binds a measured duration to a clip by ID. The clip
// may have been reordered or removed since the probe started; position
// is never trusted.
func (s *Session) mergeProbeLocked(clipID string, seconds float64) {
	idx := timeline.IndexOf(s.clips, clipID)
	if idx < 0 {
		s.logger.Debug("probe result for removed clip dropped", "clip_id", clipID)
		return
	}

	clips := copyClips(s.clips)
	clips[idx] = clips[idx].WithSourceDuration(seconds)
	s.clips = timeline.LayoutSequentially(clips)
	s.syncPlayerLocked()

	s.logger.Info("clip duration resolved",
		"clip_id", clipID,
		"duration_sec", seconds,
	)
}

// flushPendingLocked applies everything deferred during a gesture:
// clips ingested mid-drag append first, then probe results merge, so a
// probe for a deferred clip finds it in the sequence.
func (s *Session) flushPendingLocked() {
	if len(s.pendingClips) > 0 {
		s.clips = timeline.LayoutSequentially(append(copyClips(s.clips), s.pendingClips...))
		s.pendingClips = nil
		s.syncPlayerLocked()
	}
	for clipID, seconds := range s.pendingProbes {
		s.mergeProbeLocked(clipID, seconds)
		delete(s.pendingProbes, clipID)
	}
}

// RemoveClip drops a clip and closes the gap.
func (s *Session) RemoveClip(clipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gestureLocked() != GestureIdle {
		return ErrGestureActive
	}

	idx := timeline.IndexOf(s.clips, clipID)
	if idx < 0 {
		return ErrClipNotFound
	}

	clips := copyClips(s.clips)
	clips = append(clips[:idx], clips[idx+1:]...)
	s.clips = timeline.LayoutSequentially(clips)

	if s.selection.ID() == clipID {
		s.selection.Clear()
		s.notifySelect(clipID, false)
	}
	delete(s.pendingProbes, clipID)
	s.syncPlayerLocked()
	return nil
}

// ReplaceClips swaps in a full replacement sequence. The caller is
// trusted to hand back a laid-out sequence derived from a snapshot.
func (s *Session) ReplaceClips(clips []timeline.Clip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gestureLocked() != GestureIdle {
		return ErrGestureActive
	}
	s.clips = timeline.LayoutSequentially(copyClips(clips))
	s.syncPlayerLocked()
	return nil
}

// BeginReorder starts a reorder drag on the clip at index.
func (s *Session) BeginReorder(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gestureLocked() != GestureIdle {
		return ErrGestureActive
	}
	drag, err := surface.BeginReorder(s.track, s.clips, index)
	if err != nil {
		return err
	}
	s.reorder = drag.WithRate(s.rateHz)
	return nil
}

// MoveGesture feeds a pointer sample to whichever drag is active.
func (s *Session) MoveGesture(x float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.reorder != nil:
		s.reorder.MoveTo(x, s.now())
		return nil
	case s.trim != nil:
		s.trim.MoveTo(x, s.now())
		return nil
	default:
		return ErrNoGesture
	}
}

// DropReorder commits the reorder at the current insertion index.
func (s *Session) DropReorder() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reorder == nil {
		return ErrNoGesture
	}
	clips, moved := s.reorder.Drop()
	s.reorder = nil
	if moved {
		s.clips = clips
		s.syncPlayerLocked()
	}
	s.flushPendingLocked()
	return nil
}

// BeginTrim starts a trim drag on one edge of the clip at index.
func (s *Session) BeginTrim(index int, edge surface.TrimEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gestureLocked() != GestureIdle {
		return ErrGestureActive
	}
	drag, err := surface.BeginTrim(s.track, s.clips, index, edge)
	if err != nil {
		return err
	}
	s.trim = drag.WithRate(s.rateHz)
	return nil
}

// ReleaseTrim commits the trim, applying the mandatory full re-layout.
func (s *Session) ReleaseTrim() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.trim == nil {
		return ErrNoGesture
	}
	s.clips = s.trim.Release()
	s.trim = nil
	s.syncPlayerLocked()
	s.flushPendingLocked()
	return nil
}

// CancelGesture abandons the active drag. The authoritative sequence
// is untouched, byte for byte.
func (s *Session) CancelGesture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.reorder != nil:
		s.clips = s.reorder.Cancel()
		s.reorder = nil
	case s.trim != nil:
		s.clips = s.trim.Cancel()
		s.trim = nil
	default:
		return ErrNoGesture
	}
	s.flushPendingLocked()
	return nil
}

// Select toggles selection of a clip. Ignored while a drag is active.
func (s *Session) Select(clipID string) error {
	s.mu.Lock()

	if s.gestureLocked() != GestureIdle {
		s.mu.Unlock()
		return ErrGestureActive
	}
	if timeline.IndexOf(s.clips, clipID) < 0 {
		s.mu.Unlock()
		return ErrClipNotFound
	}
	selected := s.selection.Toggle(clipID)
	s.mu.Unlock()

	s.notifySelect(clipID, selected)
	return nil
}

// ClearSelection deselects whatever is selected (background click).
func (s *Session) ClearSelection() {
	s.mu.Lock()
	previous := s.selection.ID()
	s.selection.Clear()
	s.mu.Unlock()

	if previous != "" {
		s.notifySelect(previous, false)
	}
}

// SelectedClipID returns the selected clip, or empty.
func (s *Session) SelectedClipID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.ID()
}

func (s *Session) notifySelect(clipID string, selected bool) {
	if s.onSelect != nil {
		s.onSelect(clipID, selected)
	}
}

// SeekToX maps a click on the track to a seek. Suppressed while a drag
// is active so a sloppy drop does not double as a seek.
func (s *Session) SeekToX(x float64) error {
	s.mu.Lock()
	if s.gestureLocked() != GestureIdle {
		s.mu.Unlock()
		return ErrGestureActive
	}
	target := s.track.SeekTime(s.clips, x)
	s.mu.Unlock()

	s.player.Seek(target)
	return nil
}

// Seek moves the playback cursor to a global time.
func (s *Session) Seek(seconds float64) error {
	s.mu.Lock()
	if s.gestureLocked() != GestureIdle {
		s.mu.Unlock()
		return ErrGestureActive
	}
	s.mu.Unlock()

	s.player.Seek(seconds)
	return nil
}

func (s *Session) Play()   { s.player.Play() }
func (s *Session) Pause()  { s.player.Pause() }
func (s *Session) Toggle() { s.player.Toggle() }

// syncPlayerLocked pushes the authoritative sequence into the player.
func (s *Session) syncPlayerLocked() {
	if s.player != nil {
		s.player.SetClips(s.clips)
	}
}

// StartExport snapshots the edit into a manifest, records a job, and
// dispatches the exporter asynchronously. Returns the job ID.
func (s *Session) StartExport(ctx context.Context, kind, title, format, quality, resolution string) (string, error) {
	exporter, ok := s.exporters[kind]
	if !ok {
		return "", fmt.Errorf("unknown export kind %q", kind)
	}

	s.mu.Lock()
	if len(s.clips) == 0 {
		s.mu.Unlock()
		return "", ErrNoClips
	}
	manifest := export.BuildManifest(s.clips, title, format, quality, resolution)
	s.mu.Unlock()

	jobID := uuid.NewString()
	now := s.now().UTC()
	job := &store.ExportJob{
		ID:            jobID,
		Kind:          kind,
		Status:        store.ExportStatusPending,
		ClipCount:     len(manifest.Clips),
		TotalDuration: manifest.TotalDuration,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateExportJob(ctx, job); err != nil {
		return "", fmt.Errorf("record export job: %w", err)
	}

	go s.runExport(context.WithoutCancel(ctx), jobID, exporter, manifest)
	return jobID, nil
}

func (s *Session) runExport(ctx context.Context, jobID string, exporter export.Exporter, manifest export.Manifest) {
	logger := s.logger.With("export_id", jobID)

	if err := s.repo.UpdateExportStatus(ctx, jobID, store.ExportStatusRunning, ""); err != nil {
		logger.Warn("failed to mark export running", "error", err)
	}

	progress := func(percent int) {
		if err := s.repo.UpdateExportProgress(ctx, jobID, percent); err != nil {
			logger.Warn("failed to record export progress", "error", err)
		}
	}

	result, err := exporter.Export(ctx, manifest, progress)
	if err != nil {
		var ee *export.ExportError
		retryable := errors.As(err, &ee) && ee.IsRetryable()
		logger.Error("export failed",
			"error", err,
			"retryable", retryable,
		)
		if uerr := s.repo.UpdateExportStatus(ctx, jobID, store.ExportStatusFailed, err.Error()); uerr != nil {
			logger.Warn("failed to mark export failed", "error", uerr)
		}
		return
	}

	if err := s.repo.UpdateExportResult(ctx, jobID, result.ResultURL, result.ResultType); err != nil {
		logger.Warn("failed to record export result", "error", err)
	}
	if err := s.repo.UpdateExportStatus(ctx, jobID, store.ExportStatusCompleted, ""); err != nil {
		logger.Warn("failed to mark export completed", "error", err)
	}
	logger.Info("export completed", "result_type", result.ResultType)
}

// State is a consistent snapshot of the session for the UI.
type State struct {
	Clips          []timeline.Clip
	Duration       float64
	CurrentTime    float64
	IsPlaying      bool
	Transitioning  bool
	InGap          bool
	ActiveClipID   string
	SelectedClipID string
	Gesture        Gesture
}

// Snapshot gathers the full session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	var clips []timeline.Clip
	switch {
	case s.reorder != nil:
		clips = s.reorder.Preview()
	case s.trim != nil:
		clips = copyClips(s.trim.Live())
	default:
		clips = copyClips(s.clips)
	}
	gesture := s.gestureLocked()
	selected := s.selection.ID()
	s.mu.Unlock()

	return State{
		Clips:          clips,
		Duration:       timeline.Duration(clips),
		CurrentTime:    s.player.CurrentTime(),
		IsPlaying:      s.player.IsPlaying(),
		Transitioning:  s.player.Transitioning(),
		InGap:          s.player.InGap(),
		ActiveClipID:   s.player.ActiveClipID(),
		SelectedClipID: selected,
		Gesture:        gesture,
	}
}

func copyClips(clips []timeline.Clip) []timeline.Clip {
	out := make([]timeline.Clip, len(clips))
	copy(out, clips)
	return out
}
