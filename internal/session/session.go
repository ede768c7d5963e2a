// Package session holds one editing session: the imported screens, the clip
// timeline, zoom effects, the playhead and the recording pipeline.
//
// All state sits behind one mutex. The frame loop calls Frame once per tick;
// API handlers and the CLI mutate only through EditorSession methods, so a
// mutation always lands between two frames.
package session

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/capture"
	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/media"
	"github.com/ivlev/mockupreel/internal/playback"
	"github.com/ivlev/mockupreel/internal/timeline"
	"github.com/ivlev/mockupreel/internal/videosync"
)

const (
	// DefaultRecordDuration is recorded when the timeline is empty.
	DefaultRecordDuration = 6 * time.Second

	// renderGrace keeps frames coming after an edit while nothing animates,
	// so late video stills still reach the renderer.
	renderGrace = time.Second

	probeWorkers = 4
)

var (
	ErrUnknownPreset = errors.New("unknown animation preset")
	ErrInvalidLayout = errors.New("invalid device layout")
	ErrNoExporter    = errors.New("recording is not configured")
)

// Importer resolves file paths into screens.
type Importer interface {
	Import(ctx context.Context, paths []string) ([]assets.Imported, error)
}

type Options struct {
	Preset     animation.PresetID
	Layout     animation.Layout
	Background color.RGBA
	Gradient   bool
	FPS        int

	Registry *animation.Registry
	Importer Importer
	Prober   media.Prober
	Elements ElementFactory
	Renderer Renderer
	Surface  capture.Surface
	// Capture configures the exporter. Its callbacks are owned by the
	// session. Nil Encoder disables recording.
	Capture capture.Options
	Logger  *slog.Logger
}

type pendingProbe struct {
	clipID string
	screen assets.Screen
}

type EditorSession struct {
	logger   *slog.Logger
	importer Importer
	prober   media.Prober
	factory  ElementFactory
	renderer Renderer
	surface  capture.Surface
	exporter *capture.Exporter
	loop     *playback.Loop
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	probes sync.WaitGroup

	mu             sync.Mutex
	closed         bool
	loopCtx        context.Context // nil until Start
	screens        *assets.Registry
	timeline       *timeline.Timeline
	zooms          *timeline.ZoomStore
	scheduler      *playback.Scheduler
	engine         *animation.Engine
	camera         *animation.Camera
	primarySync    *videosync.Controller
	secondarySync  *videosync.Controller
	elements       map[string]VideoElement
	durations      map[string]float64
	preset         animation.PresetID
	layout         animation.Layout
	background     color.RGBA
	gradient       bool
	previewPlaying bool
	recording      bool
	selected       string
	lastTick       time.Time
	renderUntil    time.Time
	activeClipID   string
	activeScreenID string
}

func New(opts Options) (*EditorSession, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = animation.DefaultRegistry()
	}
	if opts.Preset == "" {
		opts.Preset = animation.Showcase
	}
	if !registry.Has(opts.Preset) {
		return nil, fmt.Errorf("preset %q: %w", opts.Preset, ErrUnknownPreset)
	}
	if opts.Layout == "" {
		opts.Layout = animation.LayoutPrimary
	}
	if _, ok := animation.ParseLayout(string(opts.Layout)); !ok {
		return nil, fmt.Errorf("layout %q: %w", opts.Layout, ErrInvalidLayout)
	}
	if opts.Prober == nil {
		opts.Prober = media.FFprobe{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &EditorSession{
		logger:         logger,
		importer:       opts.Importer,
		prober:         opts.Prober,
		factory:        opts.Elements,
		renderer:       opts.Renderer,
		surface:        opts.Surface,
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		screens:        assets.NewRegistry(),
		timeline:       timeline.New(),
		zooms:          timeline.NewZoomStore(),
		scheduler:      playback.NewScheduler(),
		engine:         animation.NewEngine(registry),
		camera:         animation.NewCamera(),
		primarySync:    videosync.NewController(logger),
		secondarySync:  videosync.NewController(logger),
		elements:       make(map[string]VideoElement),
		durations:      make(map[string]float64),
		preset:         opts.Preset,
		layout:         opts.Layout,
		background:     opts.Background,
		gradient:       opts.Gradient,
		previewPlaying: true,
	}
	s.loop = playback.NewLoop(opts.FPS, s.Frame)

	if opts.Capture.Encoder != nil {
		copts := opts.Capture
		if copts.Logger == nil {
			copts.Logger = logger
		}
		copts.OnStopped = s.onRecordingStopped
		copts.OnDone = s.onRecordingDone
		s.exporter = capture.NewExporter(copts)
	}
	return s, nil
}

// Start runs the frame loop until ctx ends or Close is called. The loop
// parks itself while nothing moves and every mutation wakes it again.
func (s *EditorSession) Start(ctx context.Context) {
	s.mu.Lock()
	s.loopCtx = ctx
	s.mu.Unlock()
	s.loop.Start(ctx)
}

// Close stops the loop and any recording, then releases every screen.
func (s *EditorSession) Close() {
	s.mu.Lock()
	s.loopCtx = nil
	s.mu.Unlock()
	s.loop.Stop()
	if done := s.loop.Done(); done != nil {
		<-done
	}
	if s.exporter != nil {
		s.exporter.Close()
	}
	s.cancel()
	s.probes.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.primarySync.Detach()
	s.secondarySync.Detach()
	s.screens.Close()
}

// markDirty extends the render grace period and wakes a parked loop.
// Callers hold s.mu.
func (s *EditorSession) markDirty() {
	s.renderUntil = s.now().Add(renderGrace)
	if s.loopCtx != nil && s.loopCtx.Err() == nil && !s.loop.Running() {
		s.logger.Debug("frame loop resumed")
		s.loop.Start(s.loopCtx)
	}
}

// park stops the loop once nothing plays, animates or records and the
// grace period is over. Callers hold s.mu.
func (s *EditorSession) park() {
	if !s.loop.Running() {
		return
	}
	s.loop.Stop()
	s.lastTick = time.Time{}
	s.logger.Debug("frame loop parked")
}

// afterTimelineChange runs after every clip mutation.
func (s *EditorSession) afterTimelineChange() {
	total := s.timeline.TotalDuration()
	if dropped := s.zooms.Clamp(total); len(dropped) > 0 {
		s.logger.Debug("zoom effects dropped past the timeline end", "count", len(dropped), "total_s", total)
	}
	s.scheduler.Clamp(total)
	if s.selected != "" {
		if _, ok := s.timeline.Clip(s.selected); !ok {
			s.selected = ""
		}
	}
	s.markDirty()
}

// Screens

// AddScreens imports paths and appends one clip per new screen. Video clips
// start with the default duration; the probed duration is applied later.
func (s *EditorSession) AddScreens(ctx context.Context, paths []string) ([]assets.Screen, error) {
	if s.importer == nil {
		return nil, errors.New("no importer configured")
	}
	items, err := s.importer.Import(ctx, paths)
	if err != nil {
		return nil, err
	}
	return s.AddImported(items)
}

// AddImported registers screens that were imported elsewhere.
func (s *EditorSession) AddImported(items []assets.Imported) ([]assets.Screen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		for _, it := range items {
			if it.Release != nil {
				it.Release()
			}
		}
		return nil, errors.New("session closed")
	}

	var pending []pendingProbe
	added := make([]assets.Screen, 0, len(items))
	for _, it := range items {
		if it.Release != nil {
			s.screens.Add(it.Screen, it.Release)
		} else {
			s.screens.Add(it.Screen)
		}
		clip, err := s.timeline.Append(it.Screen.ID, timeline.DefaultClipDuration)
		if err != nil {
			return added, fmt.Errorf("append clip for %s: %w", it.Screen.Name, err)
		}
		if it.Screen.IsVideo {
			pending = append(pending, pendingProbe{clipID: clip.ID, screen: it.Screen})
		}
		added = append(added, it.Screen)
	}
	s.afterTimelineChange()
	s.logger.Info("screens added", "count", len(added), "videos", len(pending), "total_s", s.timeline.TotalDuration())

	s.probeDurations(pending)
	return added, nil
}

func (s *EditorSession) probeDurations(pending []pendingProbe) {
	if len(pending) == 0 {
		return
	}
	s.probes.Add(1)
	go func() {
		defer s.probes.Done()
		g, ctx := errgroup.WithContext(s.ctx)
		g.SetLimit(probeWorkers)
		for _, p := range pending {
			g.Go(func() error {
				d := media.ProbeOrDefault(ctx, s.prober, p.screen.Path, s.logger)
				s.applyDuration(p.clipID, p.screen.ID, d)
				return nil
			})
		}
		g.Wait()
	}()
}

// applyDuration is the corrective second phase of a video import.
func (s *EditorSession) applyDuration(clipID, screenID string, d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.durations[screenID] = d
	for _, device := range []animation.Layout{animation.LayoutPrimary, animation.LayoutSecondary} {
		if el, ok := s.elements[elementKey(screenID, device)]; ok {
			el.SetDuration(d)
		}
	}

	_, err := s.timeline.Update(clipID, timeline.ClipPatch{Duration: &d, TrimEnd: &d})
	switch {
	case errors.Is(err, timeline.ErrClipNotFound):
		s.logger.Debug("clip removed before its duration was known", "clip_id", clipID)
		return
	case err != nil:
		s.logger.Warn("probed duration rejected", "clip_id", clipID, "duration_s", d, "error", err)
		return
	}
	s.afterTimelineChange()
}

// WaitProbes blocks until all pending duration probes have been applied.
func (s *EditorSession) WaitProbes(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.probes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RemoveScreen deletes a screen, its clips and its players.
func (s *EditorSession) RemoveScreen(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.screens.Get(id); !ok {
		return fmt.Errorf("remove screen %s: %w", id, assets.ErrScreenNotFound)
	}

	removed := s.timeline.RemoveByScreen(id)
	s.primarySync.Detach()
	s.secondarySync.Detach()
	if err := s.screens.Remove(id); err != nil {
		return err
	}
	delete(s.durations, id)
	s.afterTimelineChange()
	s.logger.Info("screen removed", "screen_id", id, "clips_removed", len(removed))
	return nil
}

func (s *EditorSession) ReorderScreens(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.screens.Reorder(from, to); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// Clips

func (s *EditorSession) RemoveClip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Remove(id); err != nil {
		return err
	}
	s.afterTimelineChange()
	return nil
}

func (s *EditorSession) ReorderClips(from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.timeline.Reorder(from, to); err != nil {
		return err
	}
	s.afterTimelineChange()
	return nil
}

func (s *EditorSession) UpdateClip(id string, patch timeline.ClipPatch) (timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if patch.Animation != nil && *patch.Animation != "" && !s.engine.Registry().Has(animation.PresetID(*patch.Animation)) {
		return timeline.Clip{}, fmt.Errorf("clip %s animation %q: %w", id, *patch.Animation, ErrUnknownPreset)
	}
	c, err := s.timeline.Update(id, patch)
	if err != nil {
		return timeline.Clip{}, err
	}
	s.afterTimelineChange()
	return c, nil
}

// SplitClip splits a clip at an absolute time. It reports false when the
// time is too close to a clip boundary; nothing changes then.
func (s *EditorSession) SplitClip(id string, at float64) ([2]timeline.Clip, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timeline.Clip(id); !ok {
		return [2]timeline.Clip{}, false, fmt.Errorf("split %s: %w", id, timeline.ErrClipNotFound)
	}
	parts, ok := s.timeline.Split(id, at)
	if ok {
		s.afterTimelineChange()
	}
	return parts, ok, nil
}

// SplitClipAtPlayhead splits at the current playhead position.
func (s *EditorSession) SplitClipAtPlayhead(id string) ([2]timeline.Clip, bool, error) {
	s.mu.Lock()
	at := s.scheduler.CurrentTime()
	s.mu.Unlock()
	return s.SplitClip(id, at)
}

// SelectClip marks a clip as selected. An empty id clears the selection.
func (s *EditorSession) SelectClip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if _, ok := s.timeline.Clip(id); !ok {
			return fmt.Errorf("select %s: %w", id, timeline.ErrClipNotFound)
		}
	}
	s.selected = id
	return nil
}

// Zoom effects

// AddZoomEffectAtPlayhead adds a one-second zoom starting at the playhead.
func (s *EditorSession) AddZoomEffectAtPlayhead() (timeline.ZoomEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zooms.AddAt(s.scheduler.CurrentTime(), s.timeline.TotalDuration())
	if err == nil {
		s.markDirty()
	}
	return z, err
}

// AddZoomEffect adds an effect that must lie within [0, TotalDuration].
func (s *EditorSession) AddZoomEffect(start, end, level float64) (timeline.ZoomEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zooms.Add(start, end, level, s.timeline.TotalDuration())
	if err == nil {
		s.markDirty()
	}
	return z, err
}

func (s *EditorSession) UpdateZoomEffect(id string, patch timeline.ZoomPatch) (timeline.ZoomEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, err := s.zooms.Update(id, patch, s.timeline.TotalDuration())
	if err == nil {
		s.markDirty()
	}
	return z, err
}

func (s *EditorSession) RemoveZoomEffect(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.zooms.Remove(id); err != nil {
		return err
	}
	s.markDirty()
	return nil
}

// Playback

// Play starts timeline playback. It does nothing without clips.
func (s *EditorSession) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timeline.Len() == 0 {
		return false
	}
	s.scheduler.Play(s.timeline.TotalDuration())
	s.markDirty()
	return true
}

func (s *EditorSession) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler.Pause()
	s.markDirty()
}

// TogglePlayback is the play/pause hotkey. It reports the new state.
func (s *EditorSession) TogglePlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	playing := s.scheduler.Toggle(s.timeline.TotalDuration(), s.timeline.Len() > 0)
	s.markDirty()
	return playing
}

func (s *EditorSession) SeekTo(t float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.scheduler.SeekTo(t, s.timeline.TotalDuration())
	s.markDirty()
	return at
}

// SetPreviewPlaying switches the device animation on or off independently
// from the timeline.
func (s *EditorSession) SetPreviewPlaying(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewPlaying = on
	s.markDirty()
}

// Look

func (s *EditorSession) SetPreset(id animation.PresetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.engine.Registry().Has(id) {
		return fmt.Errorf("preset %q: %w", id, ErrUnknownPreset)
	}
	s.preset = id
	s.markDirty()
	return nil
}

func (s *EditorSession) SetLayout(l animation.Layout) error {
	if _, ok := animation.ParseLayout(string(l)); !ok {
		return fmt.Errorf("layout %q: %w", l, ErrInvalidLayout)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
	s.markDirty()
	return nil
}

func (s *EditorSession) SetBackground(c color.RGBA, gradient bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = c
	s.gradient = gradient
	s.markDirty()
}

// Recording

// StartRecording records the whole timeline from the start, or six seconds
// of the idle animation when there are no clips.
func (s *EditorSession) StartRecording(ctx context.Context, quality config.Quality) error {
	if s.exporter == nil {
		return ErrNoExporter
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	hasClips := s.timeline.Len() > 0
	duration := DefaultRecordDuration
	if hasClips {
		duration = time.Duration(s.timeline.TotalDuration() * float64(time.Second))
	}
	err := s.exporter.Start(ctx, capture.Request{Quality: quality, Duration: duration, Surface: s.surface})
	if err != nil {
		return err
	}
	if hasClips {
		s.scheduler.Restart(true)
	}
	s.previewPlaying = true
	s.recording = true
	s.markDirty()
	return nil
}

func (s *EditorSession) StopRecording() error {
	if s.exporter == nil {
		return ErrNoExporter
	}
	return s.exporter.Stop()
}

func (s *EditorSession) RecordingState() capture.Session {
	if s.exporter == nil {
		return capture.Session{State: capture.StateIdle}
	}
	return s.exporter.State()
}

// RecordingDone is closed when the current or last recording finished.
func (s *EditorSession) RecordingDone() <-chan struct{} {
	if s.exporter == nil {
		return nil
	}
	return s.exporter.Done()
}

func (s *EditorSession) onRecordingStopped(capture.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduler.Pause()
	s.previewPlaying = false
	s.recording = false
	s.markDirty()
}

func (s *EditorSession) onRecordingDone(cs capture.Session) {
	if cs.State == capture.StateDone {
		s.logger.Info("recording finished", "artifact", cs.Artifact, "converted", cs.Converted)
	}
}

// Frame

// Frame advances the session by one tick and hands the result to the
// renderer. It returns false once the session is closed.
func (s *EditorSession) Frame(ts time.Time) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	frame, draw := s.step(ts)
	if !draw {
		s.park()
	}
	s.mu.Unlock()

	if draw && s.renderer != nil {
		if err := s.renderer.Render(frame); err != nil {
			s.logger.Warn("render failed", "error", err)
		}
	}
	return true
}

// step runs one tick in a fixed order: playhead, active clip and zoom,
// animation, video sync, frame assembly.
func (s *EditorSession) step(ts time.Time) (RenderFrame, bool) {
	dt := 0.0
	if !s.lastTick.IsZero() {
		dt = max(0, ts.Sub(s.lastTick).Seconds())
	}
	s.lastTick = ts

	total := s.timeline.TotalDuration()
	s.scheduler.Advance(ts, total)
	current := s.scheduler.CurrentTime()
	playing := s.scheduler.Playing()

	clip, hasClip := s.timeline.ActiveClip(current)
	active, hasActive := s.activeScreen(clip, hasClip)
	preset := s.preset
	if hasClip && clip.Animation != "" {
		preset = animation.PresetID(clip.Animation)
	}
	target := s.zooms.Level(current)

	slots := s.layout.Slots()
	pose := s.engine.Step(preset, dt, s.previewPlaying, slots, target)
	cam := s.camera.Step(preset, dt, s.previewPlaying)

	frame := RenderFrame{
		Time:       current,
		Preset:     preset,
		Layout:     s.layout,
		Pose:       pose,
		Camera:     cam,
		Zoom:       s.engine.Zoom(),
		Background: s.background,
		Gradient:   s.gradient,
	}
	if slots.ShowPrimary {
		frame.Primary = s.primaryView(clip, hasClip, active, hasActive, current, playing)
	} else {
		s.primarySync.Detach()
	}
	if slots.ShowSecondary {
		frame.Secondary = s.secondaryView()
	} else {
		s.secondarySync.Detach()
	}

	s.activeClipID = ""
	if hasClip {
		s.activeClipID = clip.ID
	}
	s.activeScreenID = ""
	if hasActive {
		s.activeScreenID = active.ID
	}

	draw := playing || s.previewPlaying || s.recording || ts.Before(s.renderUntil)
	return frame, draw
}

// activeScreen is the active clip's screen, or the first screen when the
// timeline is empty.
func (s *EditorSession) activeScreen(clip timeline.Clip, hasClip bool) (assets.Screen, bool) {
	if !hasClip {
		return s.screens.At(0)
	}
	return s.screens.Get(clip.ScreenID)
}

func (s *EditorSession) primaryView(clip timeline.Clip, hasClip bool, active assets.Screen, hasActive bool, current float64, playing bool) *ScreenView {
	screen, ok := active, hasActive
	if !ok {
		screen, ok = s.screens.At(0)
	}
	if !ok {
		s.primarySync.Detach()
		return nil
	}

	seek := 0.0
	if hasClip && hasActive && active.IsVideo {
		seek = videosync.SeekTime(current, clip.StartTime, clip.TrimStart)
	}
	view := &ScreenView{Screen: screen, SeekTime: seek, Playing: playing}

	key := ""
	if hasClip {
		key = clip.ID
	}
	if el := s.element(screen, animation.LayoutPrimary); el != nil {
		s.primarySync.Sync(key, el, seek, playing)
		view.Video = el
	} else {
		s.primarySync.Detach()
	}
	return view
}

// secondaryView shows the second screen, or the first when there is only
// one, held paused on its first frame.
func (s *EditorSession) secondaryView() *ScreenView {
	screen, ok := s.screens.At(1)
	if !ok {
		screen, ok = s.screens.At(0)
	}
	if !ok {
		s.secondarySync.Detach()
		return nil
	}
	view := &ScreenView{Screen: screen}
	if el := s.element(screen, animation.LayoutSecondary); el != nil {
		s.secondarySync.Sync(screen.ID, el, 0, false)
		view.Video = el
	} else {
		s.secondarySync.Detach()
	}
	return view
}

func elementKey(screenID string, device animation.Layout) string {
	return screenID + "/" + string(device)
}

// element returns the player of a video screen on a device, creating it on
// first use. Players are closed when their screen is removed.
func (s *EditorSession) element(screen assets.Screen, device animation.Layout) VideoElement {
	if !screen.IsVideo || s.factory == nil {
		return nil
	}
	key := elementKey(screen.ID, device)
	if el, ok := s.elements[key]; ok {
		return el
	}
	el := s.factory(screen, device)
	if el == nil {
		return nil
	}
	if d, ok := s.durations[screen.ID]; ok {
		el.SetDuration(d)
	}
	s.elements[key] = el
	err := s.screens.OnRelease(screen.ID, func() {
		delete(s.elements, key)
		if err := el.Close(); err != nil {
			s.logger.Debug("closing video element", "screen_id", screen.ID, "error", err)
		}
	})
	if err != nil {
		s.logger.Warn("video element without owner", "screen_id", screen.ID, "error", err)
	}
	return el
}
