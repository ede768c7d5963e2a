package session

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/capture"
	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/timeline"
)

type fakeImporter struct {
	items []assets.Imported
	err   error
}

func (f *fakeImporter) Import(context.Context, []string) ([]assets.Imported, error) {
	return f.items, f.err
}

type fakeProber struct {
	duration float64
	err      error
	gate     chan struct{}
}

func (f *fakeProber) Duration(ctx context.Context, _ string) (float64, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.duration, f.err
}

type fakeElement struct {
	mu       sync.Mutex
	paused   bool
	seeks    []float64
	plays    int
	duration float64
	closed   bool
}

func (f *fakeElement) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	f.paused = false
	return nil
}

func (f *fakeElement) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeElement) Seek(s float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, s)
}

func (f *fakeElement) CopyFrame(*image.RGBA) uint64 { return 0 }

func (f *fakeElement) FrameSize() (int, int) { return 4, 8 }

func (f *fakeElement) SetDuration(d float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = d
}

func (f *fakeElement) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeElement) seekLog() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

type fakeRenderer struct {
	mu     sync.Mutex
	frames []RenderFrame
}

func (r *fakeRenderer) Render(f RenderFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
	return nil
}

func (r *fakeRenderer) last(t *testing.T) RenderFrame {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		t.Fatal("no frame rendered")
	}
	return r.frames[len(r.frames)-1]
}

type harness struct {
	s        *EditorSession
	renderer *fakeRenderer
	elements map[string]*fakeElement
	released map[string]bool
	mu       sync.Mutex
}

func newHarness(t *testing.T, prober *fakeProber, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		renderer: &fakeRenderer{},
		elements: map[string]*fakeElement{},
		released: map[string]bool{},
	}
	if prober == nil {
		prober = &fakeProber{duration: 10}
	}
	opts := Options{
		Prober:   prober,
		Renderer: h.renderer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Elements: func(screen assets.Screen, device animation.Layout) VideoElement {
			h.mu.Lock()
			defer h.mu.Unlock()
			el := &fakeElement{paused: true}
			h.elements[elementKey(screen.ID, device)] = el
			return el
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.s = s
	t.Cleanup(s.Close)
	return h
}

func (h *harness) add(t *testing.T, screens ...assets.Screen) {
	t.Helper()
	items := make([]assets.Imported, len(screens))
	for i, sc := range screens {
		id := sc.ID
		items[i] = assets.Imported{Screen: sc, Release: func() {
			h.mu.Lock()
			h.released[id] = true
			h.mu.Unlock()
		}}
	}
	if _, err := h.s.AddImported(items); err != nil {
		t.Fatalf("AddImported() error = %v", err)
	}
	if err := h.s.WaitProbes(context.Background()); err != nil {
		t.Fatalf("WaitProbes() error = %v", err)
	}
}

func (h *harness) element(screenID string, device animation.Layout) *fakeElement {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.elements[elementKey(screenID, device)]
}

func image1(id string) assets.Screen { return assets.Screen{ID: id, Name: id + ".png", Path: id + ".png"} }

func video1(id string) assets.Screen {
	return assets.Screen{ID: id, Name: id + ".mp4", Path: id + ".mp4", IsVideo: true}
}

var base = time.Unix(1_700_000_000, 0)

func TestAddScreens_AppendsOneClipEach(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) {
		o.Importer = &fakeImporter{items: []assets.Imported{{Screen: image1("a")}, {Screen: image1("b")}}}
	})
	added, err := h.s.AddScreens(context.Background(), []string{"a.png", "b.png"})
	if err != nil || len(added) != 2 {
		t.Fatalf("AddScreens() = %v, %v", added, err)
	}
	st := h.s.Snapshot()
	if len(st.Clips) != 2 || st.Clips[1].StartTime != timeline.DefaultClipDuration {
		t.Fatalf("clips = %+v", st.Clips)
	}
	if st.TotalDuration != 2*timeline.DefaultClipDuration {
		t.Errorf("TotalDuration = %f", st.TotalDuration)
	}
}

func TestAddScreens_ImportError(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) {
		o.Importer = &fakeImporter{err: errors.New("nothing importable")}
	})
	if _, err := h.s.AddScreens(context.Background(), []string{"x"}); err == nil {
		t.Fatal("AddScreens() error = nil")
	}
	if st := h.s.Snapshot(); len(st.Screens) != 0 || len(st.Clips) != 0 {
		t.Errorf("state changed on failed import: %+v", st)
	}
}

func TestVideoDuration_AppliedAfterProbe(t *testing.T) {
	h := newHarness(t, &fakeProber{duration: 7.5}, nil)
	h.add(t, video1("v"), image1("a"))

	clips := h.s.Snapshot().Clips
	if clips[0].Duration != 7.5 || clips[0].TrimEnd != 7.5 {
		t.Fatalf("video clip = %+v, want duration 7.5", clips[0])
	}
	if clips[1].StartTime != 7.5 {
		t.Errorf("next clip start = %f, want 7.5", clips[1].StartTime)
	}
}

func TestVideoDuration_ProbeFailureFallsBack(t *testing.T) {
	h := newHarness(t, &fakeProber{err: errors.New("no ffprobe")}, nil)
	h.add(t, video1("v"))
	if d := h.s.Snapshot().Clips[0].Duration; d != 5 {
		t.Errorf("duration = %f, want fallback 5", d)
	}
}

func TestVideoDuration_ClipRemovedBeforeProbe(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, &fakeProber{duration: 9, gate: gate}, nil)
	if _, err := h.s.AddImported([]assets.Imported{{Screen: video1("v")}}); err != nil {
		t.Fatal(err)
	}
	clip := h.s.Snapshot().Clips[0]
	if clip.Duration != timeline.DefaultClipDuration {
		t.Fatalf("provisional duration = %f", clip.Duration)
	}
	if err := h.s.RemoveClip(clip.ID); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if err := h.s.WaitProbes(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := h.s.Snapshot(); len(st.Clips) != 0 {
		t.Errorf("probe resurrected a clip: %+v", st.Clips)
	}
}

func TestRemoveScreen_CascadesAndReleases(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"), image1("b"))

	clip := h.s.Snapshot().Clips[0]
	if _, ok, _ := h.s.SplitClip(clip.ID, 1.5); !ok {
		t.Fatal("SplitClip() = false")
	}
	first := h.s.Snapshot().Clips[0]
	if err := h.s.SelectClip(first.ID); err != nil {
		t.Fatal(err)
	}

	if err := h.s.RemoveScreen("a"); err != nil {
		t.Fatalf("RemoveScreen() error = %v", err)
	}
	st := h.s.Snapshot()
	if len(st.Clips) != 1 || st.Clips[0].ScreenID != "b" || st.Clips[0].StartTime != 0 {
		t.Fatalf("clips = %+v", st.Clips)
	}
	if st.SelectedClipID != "" {
		t.Errorf("selection = %q, want cleared", st.SelectedClipID)
	}
	if !h.released["a"] || h.released["b"] {
		t.Errorf("released = %v", h.released)
	}
	if err := h.s.RemoveScreen("a"); !errors.Is(err, assets.ErrScreenNotFound) {
		t.Errorf("second RemoveScreen() = %v, want ErrScreenNotFound", err)
	}
}

func TestRemoveScreen_ClosesPlayers(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, video1("v"))
	h.s.Frame(base)

	el := h.element("v", animation.LayoutPrimary)
	if el == nil {
		t.Fatal("no player created for the video screen")
	}
	if err := h.s.RemoveScreen("v"); err != nil {
		t.Fatal(err)
	}
	if !el.closed {
		t.Error("player not closed on screen removal")
	}
}

func TestRemoveClip_ClearsSelectionAndClampsZooms(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"), image1("b"))
	clips := h.s.Snapshot().Clips

	h.s.SelectClip(clips[1].ID)
	inside, _ := h.s.AddZoomEffect(0, 1, 2)
	straddle, _ := h.s.AddZoomEffect(2, 5, 2)
	past, _ := h.s.AddZoomEffect(4, 5, 3)

	if err := h.s.RemoveClip(clips[1].ID); err != nil {
		t.Fatal(err)
	}
	st := h.s.Snapshot()
	if st.SelectedClipID != "" {
		t.Errorf("selection = %q, want cleared", st.SelectedClipID)
	}
	got := map[string]timeline.ZoomEffect{}
	for _, z := range st.Zooms {
		got[z.ID] = z
	}
	if _, ok := got[inside.ID]; !ok {
		t.Error("zoom inside the timeline was dropped")
	}
	if got[straddle.ID].EndTime != 3 {
		t.Errorf("straddling zoom = %+v, want end 3", got[straddle.ID])
	}
	if _, ok := got[past.ID]; ok {
		t.Error("zoom past the end survived")
	}
}

func TestSelectClip_Unknown(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := h.s.SelectClip("nope"); !errors.Is(err, timeline.ErrClipNotFound) {
		t.Errorf("SelectClip() = %v, want ErrClipNotFound", err)
	}
}

func TestPlayback_AdvancesAndStopsAtEnd(t *testing.T) {
	h := newHarness(t, nil, nil)
	if h.s.Play() {
		t.Fatal("Play() without clips = true")
	}
	h.add(t, image1("a"))

	if !h.s.Play() {
		t.Fatal("Play() = false")
	}
	h.s.Frame(base)
	if got := h.s.Snapshot().CurrentTime; got != 0 {
		t.Fatalf("first tick moved the playhead to %f", got)
	}
	h.s.Frame(base.Add(1500 * time.Millisecond))
	if got := h.s.Snapshot().CurrentTime; got != 1.5 {
		t.Fatalf("CurrentTime = %f, want 1.5", got)
	}
	h.s.Frame(base.Add(5 * time.Second))
	st := h.s.Snapshot()
	if st.CurrentTime != 3 || st.Playing {
		t.Fatalf("at end: time %f playing %v, want 3 and stopped", st.CurrentTime, st.Playing)
	}

	// Playing again from the end rewinds.
	if !h.s.TogglePlayback() {
		t.Fatal("TogglePlayback() = false")
	}
	if got := h.s.Snapshot().CurrentTime; got != 0 {
		t.Errorf("CurrentTime after replay = %f, want 0", got)
	}
}

func TestSeekTo_Clamps(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"))
	if got := h.s.SeekTo(10); got != 3 {
		t.Errorf("SeekTo(10) = %f, want 3", got)
	}
	if got := h.s.SeekTo(-1); got != 0 {
		t.Errorf("SeekTo(-1) = %f, want 0", got)
	}
}

func TestFrame_ResolvesClipPresetAndZoom(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"), image1("b"))
	clips := h.s.Snapshot().Clips

	flip := string(animation.Flip)
	if _, err := h.s.UpdateClip(clips[1].ID, timeline.ClipPatch{Animation: &flip}); err != nil {
		t.Fatal(err)
	}
	h.s.AddZoomEffect(3, 4, 2)

	h.s.SeekTo(1)
	h.s.Frame(base)
	f := h.renderer.last(t)
	if f.Preset != animation.Showcase || f.Primary == nil || f.Primary.Screen.ID != "a" {
		t.Fatalf("frame at 1s = preset %s screen %+v", f.Preset, f.Primary)
	}

	h.s.SeekTo(3.5)
	h.s.Frame(base.Add(time.Second / 60))
	f = h.renderer.last(t)
	if f.Preset != animation.Flip || f.Primary.Screen.ID != "b" {
		t.Fatalf("frame at 3.5s = preset %s screen %s", f.Preset, f.Primary.Screen.ID)
	}
	if f.Zoom <= 1 || f.Zoom >= 2 {
		t.Errorf("zoom = %f, want easing toward 2", f.Zoom)
	}
	if st := h.s.Snapshot(); st.ActiveClipID != clips[1].ID || st.ActiveScreenID != "b" {
		t.Errorf("active = %s/%s", st.ActiveClipID, st.ActiveScreenID)
	}
}

func TestUpdateClip_UnknownPreset(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"))
	bogus := "wobble"
	id := h.s.Snapshot().Clips[0].ID
	if _, err := h.s.UpdateClip(id, timeline.ClipPatch{Animation: &bogus}); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("UpdateClip() = %v, want ErrUnknownPreset", err)
	}
}

func TestVideoSync_PlayThenPausedSeeks(t *testing.T) {
	h := newHarness(t, &fakeProber{duration: 10}, nil)
	h.add(t, video1("v"))
	clip := h.s.Snapshot().Clips[0]
	trim := 2.0
	if _, err := h.s.UpdateClip(clip.ID, timeline.ClipPatch{TrimStart: &trim}); err != nil {
		t.Fatal(err)
	}

	h.s.Play()
	h.s.Frame(base)
	el := h.element("v", animation.LayoutPrimary)
	if el == nil {
		t.Fatal("no player")
	}
	if el.plays != 1 || len(el.seekLog()) != 1 || el.seekLog()[0] != 2 {
		t.Fatalf("after play: plays %d seeks %v, want 1 play at 2", el.plays, el.seekLog())
	}
	if el.duration != 10 {
		t.Errorf("player duration = %f, want 10", el.duration)
	}

	h.s.Frame(base.Add(time.Second))
	if f := h.renderer.last(t); f.Primary.SeekTime != 3 || !f.Primary.Playing {
		t.Fatalf("seek time = %f playing %v, want 3 and playing", f.Primary.SeekTime, f.Primary.Playing)
	}
	if el.plays != 1 {
		t.Errorf("running player restarted: plays = %d", el.plays)
	}

	h.s.Pause()
	h.s.Frame(base.Add(2 * time.Second))
	if !el.Paused() {
		t.Fatal("player still running after pause")
	}
	seeks := el.seekLog()
	if seeks[len(seeks)-1] != 3 {
		t.Fatalf("paused seek = %v, want 3", seeks)
	}

	h.s.SeekTo(1.01)
	h.s.Frame(base.Add(3 * time.Second))
	if n := len(el.seekLog()); n != len(seeks) {
		t.Errorf("seek inside tolerance issued: %v", el.seekLog())
	}
	h.s.SeekTo(1.5)
	h.s.Frame(base.Add(4 * time.Second))
	if got := el.seekLog(); got[len(got)-1] != 3.5 {
		t.Errorf("seek after drift = %v, want 3.5 last", got)
	}
}

func TestSecondarySlot_ShowsSecondScreenPaused(t *testing.T) {
	h := newHarness(t, nil, func(o *Options) { o.Layout = animation.LayoutBoth })
	h.add(t, image1("a"), video1("v"))

	h.s.Play()
	h.s.Frame(base)
	f := h.renderer.last(t)
	if f.Secondary == nil || f.Secondary.Screen.ID != "v" || f.Secondary.Playing || f.Secondary.SeekTime != 0 {
		t.Fatalf("secondary = %+v", f.Secondary)
	}
	el := h.element("v", animation.LayoutSecondary)
	if el == nil || el.plays != 0 || !el.Paused() {
		t.Fatalf("secondary player = %+v, want paused", el)
	}
	if f.Pose.Primary == nil || f.Pose.Secondary == nil || f.Pose.Primary.Position.X >= 0 {
		t.Errorf("pose slots = %+v", f.Pose)
	}
}

func TestSetLayoutAndPreset(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := h.s.SetLayout("tablet"); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("SetLayout() = %v, want ErrInvalidLayout", err)
	}
	if err := h.s.SetPreset("nope"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("SetPreset() = %v, want ErrUnknownPreset", err)
	}
	if err := h.s.SetLayout(animation.LayoutSecondary); err != nil {
		t.Fatal(err)
	}
	h.add(t, image1("a"))
	h.s.Frame(base)
	f := h.renderer.last(t)
	if f.Primary != nil || f.Secondary == nil || f.Secondary.Screen.ID != "a" {
		t.Errorf("android-only frame = %+v / %+v", f.Primary, f.Secondary)
	}
}

func TestFrame_AfterCloseStopsLoop(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.s.Close()
	if h.s.Frame(base) {
		t.Error("Frame() after Close() = true")
	}
}

func waitLoop(t *testing.T, s *EditorSession, running bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.loop.Running() != running {
		if time.Now().After(deadline) {
			t.Fatalf("loop running = %v, want %v", !running, running)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoop_ParksWhenIdleAndWakesOnEdit(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"))
	// Grace periods end before the first wall clock tick.
	h.s.now = func() time.Time { return base }
	h.s.SetPreviewPlaying(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.s.Start(ctx)
	waitLoop(t, h.s, false)

	if !h.s.Play() {
		t.Fatal("Play() = false")
	}
	if !h.s.loop.Running() {
		t.Fatal("Play() did not wake the loop")
	}

	h.s.Pause()
	waitLoop(t, h.s, false)

	h.s.mu.Lock()
	h.s.now = time.Now
	h.s.mu.Unlock()
	if _, err := h.s.AddZoomEffect(0, 1, 2); err != nil {
		t.Fatal(err)
	}
	if !h.s.loop.Running() {
		t.Error("zoom edit did not wake the loop")
	}
	waitLoop(t, h.s, false)

	h.s.SetPreviewPlaying(true)
	time.Sleep(50 * time.Millisecond)
	if !h.s.loop.Running() {
		t.Error("loop parked while the preview animates")
	}
}

func TestLoop_StaysParkedAfterCancel(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.s.Start(ctx)
	cancel()
	waitLoop(t, h.s, false)

	h.s.SeekTo(1)
	if h.s.loop.Running() {
		t.Error("edit restarted a loop whose context ended")
	}
}

func TestAddZoomEffect_OutsideTimeline(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.add(t, image1("a"), image1("b"), image1("c"))

	if _, err := h.s.AddZoomEffect(-5, 100, 2); !errors.Is(err, timeline.ErrInvalidZoomRange) {
		t.Errorf("AddZoomEffect(-5, 100) error = %v, want ErrInvalidZoomRange", err)
	}
	z, err := h.s.AddZoomEffect(1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	level := -3.0
	if _, err := h.s.UpdateZoomEffect(z.ID, timeline.ZoomPatch{ZoomLevel: &level}); !errors.Is(err, timeline.ErrInvalidZoomLevel) {
		t.Errorf("UpdateZoomEffect(level=-3) error = %v, want ErrInvalidZoomLevel", err)
	}
	if st := h.s.Snapshot(); len(st.Zooms) != 1 || st.Zooms[0].ZoomLevel != 2 {
		t.Errorf("zooms = %+v", st.Zooms)
	}
}

// Recording

type stubSurface struct{}

func (stubSurface) Bounds() image.Rectangle { return image.Rect(0, 0, 2, 2) }
func (stubSurface) Snapshot(*image.RGBA) error { return nil }

type stubWriter struct{}

func (stubWriter) WriteFrame(*image.RGBA) error { return nil }
func (stubWriter) Close() (capture.Recording, error) {
	return capture.Recording{Chunks: [][]byte{[]byte("webm")}, Ext: "webm"}, nil
}
func (stubWriter) Abort() {}

type stubEncoder struct{}

func (stubEncoder) Open(context.Context, capture.StreamConfig) (capture.FrameWriter, error) {
	return stubWriter{}, nil
}

type discardSink struct{}

func (discardSink) Save(name string, _ []byte) (string, error) { return "/tmp/" + name, nil }

func withRecorder(surface capture.Surface) func(*Options) {
	return func(o *Options) {
		o.Surface = surface
		o.Capture = capture.Options{Encoder: stubEncoder{}, Sink: discardSink{}, FPS: 100}
	}
}

func waitRecording(t *testing.T, s *EditorSession) {
	t.Helper()
	select {
	case <-s.RecordingDone():
	case <-time.After(3 * time.Second):
		t.Fatalf("recording did not finish: %+v", s.RecordingState())
	}
}

func TestStartRecording_RestartsTimeline(t *testing.T) {
	h := newHarness(t, nil, withRecorder(stubSurface{}))
	h.add(t, image1("a"))
	clip := h.s.Snapshot().Clips[0]
	short := 0.1
	if _, err := h.s.UpdateClip(clip.ID, timeline.ClipPatch{Duration: &short, TrimEnd: &short}); err != nil {
		t.Fatal(err)
	}
	h.s.SetPreviewPlaying(false)
	h.s.SeekTo(0.05)

	if err := h.s.StartRecording(context.Background(), config.Quality720p); err != nil {
		t.Fatalf("StartRecording() error = %v", err)
	}
	st := h.s.Snapshot()
	if st.CurrentTime != 0 || !st.Playing || !st.PreviewPlaying {
		t.Fatalf("after start: %+v", st)
	}
	if st.Recording.Duration != 0.1 || st.Recording.Bitrate != 4_000_000 {
		t.Errorf("recording = %+v", st.Recording)
	}
	if err := h.s.StartRecording(context.Background(), config.Quality720p); !errors.Is(err, capture.ErrBusy) {
		t.Errorf("second StartRecording() = %v, want ErrBusy", err)
	}

	waitRecording(t, h.s)
	st = h.s.Snapshot()
	if st.Playing || st.PreviewPlaying {
		t.Errorf("after stop: playing %v preview %v, want both false", st.Playing, st.PreviewPlaying)
	}
	if st.Recording.State != capture.StateDone {
		t.Errorf("recording state = %s", st.Recording.State)
	}
}

func TestStartRecording_EmptyTimeline(t *testing.T) {
	h := newHarness(t, nil, withRecorder(stubSurface{}))
	if err := h.s.StartRecording(context.Background(), config.Quality1080p); err != nil {
		t.Fatal(err)
	}
	st := h.s.Snapshot()
	if st.Recording.Duration != DefaultRecordDuration.Seconds() || st.Playing {
		t.Errorf("recording = %+v playing %v", st.Recording, st.Playing)
	}
	if err := h.s.StopRecording(); err != nil {
		t.Fatal(err)
	}
	waitRecording(t, h.s)
}

func TestStartRecording_NoSurface(t *testing.T) {
	h := newHarness(t, nil, withRecorder(nil))
	h.add(t, image1("a"))
	h.s.SeekTo(1)
	err := h.s.StartRecording(context.Background(), config.Quality1080p)
	if !errors.Is(err, capture.ErrNoSurface) {
		t.Fatalf("StartRecording() = %v, want ErrNoSurface", err)
	}
	st := h.s.Snapshot()
	if st.CurrentTime != 1 || st.Playing || st.Recording.State != capture.StateIdle {
		t.Errorf("state changed without a surface: %+v", st)
	}
}

func TestStartRecording_NotConfigured(t *testing.T) {
	h := newHarness(t, nil, nil)
	if err := h.s.StartRecording(context.Background(), config.Quality1080p); !errors.Is(err, ErrNoExporter) {
		t.Errorf("StartRecording() = %v, want ErrNoExporter", err)
	}
}
