// Package capture records the composited output into a video file.
//
// An Exporter reads frames from a Surface at a fixed rate and feeds them to
// a StreamEncoder (VP9/WebM by default). When the recording stops, either on
// its timer or on request, the stream is finalised off the caller's
// goroutine, optionally converted to MP4 and handed to a Sink.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/system"
)

const DefaultFPS = 60

var (
	ErrBusy         = errors.New("a recording is already in progress")
	ErrNoSurface    = errors.New("no capture surface")
	ErrNotRecording = errors.New("not recording")
	ErrEmpty        = errors.New("recording produced no data")
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateConverting State = "converting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Surface is what gets recorded.
type Surface interface {
	Bounds() image.Rectangle
	// Snapshot copies the current frame into dst, which has Bounds().
	Snapshot(dst *image.RGBA) error
}

// Sink stores a finished artifact and returns where it went.
type Sink interface {
	Save(name string, data []byte) (string, error)
}

type Request struct {
	Quality  config.Quality
	Duration time.Duration
	Surface  Surface
}

// Session is a snapshot of the current or last recording.
type Session struct {
	State     State          `json:"state"`
	Quality   config.Quality `json:"quality,omitempty"`
	Bitrate   int            `json:"bitrate,omitempty"`
	Duration  float64        `json:"duration_s,omitempty"`
	StartedAt time.Time      `json:"started_at,omitempty"`
	StoppedAt time.Time      `json:"stopped_at,omitempty"`
	Frames    int            `json:"frames"`
	Chunks    int            `json:"chunks"`
	Bytes     int            `json:"bytes"`
	Artifact  string         `json:"artifact,omitempty"`
	Converted bool           `json:"converted"`
	Error     string         `json:"error,omitempty"`
}

func (s Session) Active() bool {
	return s.State == StateRecording || s.State == StateConverting
}

type Options struct {
	Encoder    StreamEncoder
	Transcoder *Transcoder // nil keeps the WebM
	Sink       Sink // nil writes into the working directory
	FPS        int
	Logger     *slog.Logger
	// OnStopped runs once per recording after frame capture ended, before
	// any conversion. It is called without the exporter lock held.
	OnStopped func(Session)
	// OnDone runs after the artifact was saved or the recording failed.
	OnDone func(Session)
}

type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	writer  FrameWriter
	surface Surface
	stop    chan struct{}
	done    chan struct{}
}

type Exporter struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	session  Session
	current  *run
	stopping bool
	timer    *time.Timer
}

func NewExporter(opts Options) *Exporter {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sink == nil {
		opts.Sink = DirSink{Dir: "."}
	}
	return &Exporter{
		opts:    opts,
		logger:  opts.Logger,
		now:     time.Now,
		session: Session{State: StateIdle},
	}
}

func (e *Exporter) State() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Done returns a channel closed when the current or last recording has
// fully finished. It is nil before the first recording.
func (e *Exporter) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.done
}

// Start begins a recording of req.Duration. It returns once capture is
// running; the artifact is produced asynchronously.
func (e *Exporter) Start(ctx context.Context, req Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Active() {
		return ErrBusy
	}
	if req.Surface == nil {
		e.logger.Warn("capture surface not available for recording")
		return ErrNoSurface
	}
	if req.Duration <= 0 {
		return fmt.Errorf("invalid recording duration %s", req.Duration)
	}

	bounds := req.Surface.Bounds()
	cfg := StreamConfig{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		FPS:     e.opts.FPS,
		Bitrate: req.Quality.Bitrate(),
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	writer, err := e.opts.Encoder.Open(runCtx, cfg)
	if err != nil {
		cancel()
		e.session = Session{
			State:   StateFailed,
			Quality: req.Quality,
			Bitrate: cfg.Bitrate,
			Error:   err.Error(),
		}
		return fmt.Errorf("export did not start: %w", err)
	}

	r := &run{
		ctx:     runCtx,
		cancel:  cancel,
		writer:  writer,
		surface: req.Surface,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	e.current = r
	e.stopping = false
	e.session = Session{
		State:     StateRecording,
		Quality:   req.Quality,
		Bitrate:   cfg.Bitrate,
		Duration:  req.Duration.Seconds(),
		StartedAt: e.now(),
	}
	e.timer = time.AfterFunc(req.Duration, func() {
		if err := e.Stop(); err != nil && !errors.Is(err, ErrNotRecording) {
			e.logger.Warn("auto-stop failed", "error", err)
		}
	})

	e.logger.Info("recording started",
		"quality", req.Quality,
		"bitrate", cfg.Bitrate,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"duration_s", req.Duration.Seconds(),
	)
	go e.capture(r)
	return nil
}

// Stop ends the active recording. It returns immediately; finalisation runs
// in the background.
func (e *Exporter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.State != StateRecording || e.stopping || e.current == nil {
		return ErrNotRecording
	}
	e.stopping = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	close(e.current.stop)
	return nil
}

// Close stops any recording and waits for it to finish.
func (e *Exporter) Close() {
	_ = e.Stop()
	if done := e.Done(); done != nil {
		<-done
	}
}

func (e *Exporter) capture(r *run) {
	frames, err := e.captureFrames(r)

	e.mu.Lock()
	e.session.Frames = frames
	e.session.StoppedAt = e.now()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	stopped := e.session
	e.mu.Unlock()

	if e.opts.OnStopped != nil {
		e.opts.OnStopped(stopped)
	}

	e.finalize(r, err)
}

// captureFrames writes surface snapshots until stopped. Frames are
// duplicated when a snapshot takes longer than one frame period so the
// stream keeps wall-clock length.
func (e *Exporter) captureFrames(r *run) (int, error) {
	buf := system.GetImage(r.surface.Bounds())
	defer system.PutImage(buf)

	interval := time.Second / time.Duration(e.opts.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := e.now()
	written := 0
	for {
		select {
		case <-r.stop:
			return written, nil
		case <-r.ctx.Done():
			return written, r.ctx.Err()
		case <-ticker.C:
		}

		due := int(math.Floor(e.now().Sub(start).Seconds()*float64(e.opts.FPS))) + 1
		if due <= written {
			continue
		}
		if err := r.surface.Snapshot(buf); err != nil {
			return written, fmt.Errorf("snapshot frame %d: %w", written, err)
		}
		for ; written < due; written++ {
			if err := r.writer.WriteFrame(buf); err != nil {
				return written, fmt.Errorf("encode frame %d: %w", written, err)
			}
		}
	}
}

func (e *Exporter) finalize(r *run, captureErr error) {
	defer close(r.done)
	defer r.cancel()

	if captureErr != nil {
		r.writer.Abort()
		e.fail(captureErr)
		return
	}

	rec, err := r.writer.Close()
	if err != nil {
		e.fail(fmt.Errorf("finish stream: %w", err))
		return
	}
	primary := bytes.Join(rec.Chunks, nil)
	if len(primary) == 0 {
		e.fail(ErrEmpty)
		return
	}

	e.mu.Lock()
	e.session.Chunks = len(rec.Chunks)
	e.session.Bytes = len(primary)
	if e.opts.Transcoder != nil {
		e.session.State = StateConverting
	}
	e.mu.Unlock()

	data, ext, converted := primary, rec.Ext, false
	if e.opts.Transcoder != nil {
		mp4, err := e.opts.Transcoder.Convert(r.ctx, primary)
		if err != nil {
			e.logger.Warn("MP4 conversion failed, falling back to WebM", "error", err)
		} else {
			data, ext, converted = mp4, "mp4", true
		}
	}

	path, err := e.opts.Sink.Save(ArtifactName(e.now(), ext), data)
	if err != nil {
		e.fail(fmt.Errorf("save artifact: %w", err))
		return
	}

	e.mu.Lock()
	e.session.State = StateDone
	e.session.Artifact = path
	e.session.Converted = converted
	done := e.session
	e.mu.Unlock()

	e.logger.Info("recording saved", "path", path, "bytes", len(data), "converted", converted, "frames", done.Frames)
	if e.opts.OnDone != nil {
		e.opts.OnDone(done)
	}
}

func (e *Exporter) fail(err error) {
	e.mu.Lock()
	e.session.State = StateFailed
	e.session.Error = err.Error()
	failed := e.session
	e.mu.Unlock()

	e.logger.Error("recording failed", "error", err)
	if e.opts.OnDone != nil {
		e.opts.OnDone(failed)
	}
}
