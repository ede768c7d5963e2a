package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

const defaultDecodeFPS = 30

// Options control the decoded frame size and rate.
type Options struct {
	Width  int
	Height int
	FPS    int
	// Duration bounds the playback clock; 0 means unknown.
	Duration float64
	// FFmpeg overrides the ffmpeg binary, mainly for tests.
	FFmpeg string
}

// Element is a paused-by-default video player backed by an ffmpeg decode
// process. While playing it follows its own wall clock; frames are decoded
// in real time (-re) and the newest one is kept for the renderer.
//
// Element is safe for concurrent use.
type Element struct {
	path   string
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	paused    bool
	ended     bool
	base      float64
	startedAt time.Time
	cancel    context.CancelFunc
	latest    *image.RGBA
	seq       uint64
	closed    bool

	seekMu      sync.Mutex
	seekPending bool
	seekTarget  float64
	seekRunning bool
}

func NewElement(path string, opts Options, logger *slog.Logger) *Element {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultDecodeFPS
	}
	if opts.FFmpeg == "" {
		opts.FFmpeg = "ffmpeg"
	}
	return &Element{
		path:   path,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		paused: true,
		latest: image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
	}
}

func (e *Element) Path() string { return e.path }

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Ended reports whether playback ran to the end of the stream.
func (e *Element) Ended() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ended
}

// SetDuration updates the clock bound once the probe has finished.
func (e *Element) SetDuration(d float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Duration = d
}

// Position returns the current media time in seconds.
func (e *Element) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Element) positionLocked() float64 {
	pos := e.base
	if !e.paused {
		pos += e.now().Sub(e.startedAt).Seconds()
	}
	if e.opts.Duration > 0 {
		pos = math.Min(pos, e.opts.Duration)
	}
	return pos
}

// Play starts decoding from the current position.
func (e *Element) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("element closed")
	}
	if !e.paused {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, e.opts.FFmpeg, e.decodeArgs(e.base, true)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	e.paused = false
	e.ended = false
	e.startedAt = e.now()
	e.cancel = cancel

	go e.decode(ctx, cmd, stdout, &stderr)
	return nil
}

// Pause stops decoding and freezes the clock.
func (e *Element) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
}

func (e *Element) pauseLocked() {
	if e.paused {
		return
	}
	e.base = e.positionLocked()
	e.paused = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Seek moves the clock. On a paused element the frame at the new position is
// extracted in the background; the newest pending seek wins. A playing
// element restarts its decoder at the new position.
func (e *Element) Seek(seconds float64) {
	e.mu.Lock()
	target := math.Max(0, seconds)
	if e.opts.Duration > 0 {
		target = math.Min(target, e.opts.Duration)
	}
	wasPlaying := !e.paused
	e.pauseLocked()
	e.base = target
	e.mu.Unlock()

	if wasPlaying {
		if err := e.Play(); err != nil {
			e.logger.Warn("video restart after seek failed", "path", e.path, "error", err)
		}
		return
	}
	e.requestStill(target)
}

// CopyFrame copies the newest decoded frame into dst and returns its
// sequence number. Zero means no frame has been decoded yet.
func (e *Element) CopyFrame(dst *image.RGBA) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq == 0 || dst == nil || dst.Rect != e.latest.Rect {
		return 0
	}
	copy(dst.Pix, e.latest.Pix)
	return e.seq
}

func (e *Element) FrameSize() (int, int) {
	return e.opts.Width, e.opts.Height
}

func (e *Element) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseLocked()
	e.closed = true
	return nil
}

func (e *Element) decodeArgs(at float64, realtime bool) []string {
	args := []string{"-v", "error"}
	if realtime {
		args = append(args, "-re")
	}
	args = append(args,
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", e.path,
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", e.opts.Width, e.opts.Height, e.opts.Width, e.opts.Height),
		"-r", strconv.Itoa(e.opts.FPS),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
	)
	if !realtime {
		args = append(args, "-frames:v", "1")
	}
	return append(args, "pipe:1")
}

func (e *Element) decode(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *bytes.Buffer) {
	err := readFrames(stdout, e.opts.Width, e.opts.Height, e.publish)
	waitErr := cmd.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		// Paused or closed on purpose.
		return
	}
	if err == nil {
		err = waitErr
	}
	if err != nil {
		e.logger.Warn("video decode stopped", "path", e.path, "error", err, "ffmpeg", stderr.String())
	}
	// Natural end of stream: behave like a non-looping video.
	e.base = e.positionLocked()
	if e.opts.Duration > 0 {
		e.base = e.opts.Duration
	}
	e.paused = true
	e.ended = true
	e.cancel = nil
}

func (e *Element) requestStill(at float64) {
	e.seekMu.Lock()
	e.seekTarget = at
	e.seekPending = true
	if e.seekRunning {
		e.seekMu.Unlock()
		return
	}
	e.seekRunning = true
	e.seekMu.Unlock()

	go func() {
		for {
			e.seekMu.Lock()
			if !e.seekPending {
				e.seekRunning = false
				e.seekMu.Unlock()
				return
			}
			target := e.seekTarget
			e.seekPending = false
			e.seekMu.Unlock()

			if err := e.extractStill(target); err != nil {
				e.logger.Debug("still extraction failed", "path", e.path, "at", target, "error", err)
			}
		}
	}()
}

func (e *Element) extractStill(at float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, e.opts.FFmpeg, e.decodeArgs(at, false)...)
	out, err := cmd.Output()
	if err != nil {
		return err
	}
	return readFrames(bytes.NewReader(out), e.opts.Width, e.opts.Height, e.publishStill)
}

// publish stores a frame from the playing decoder.
func (e *Element) publish(pix []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return
	}
	copy(e.latest.Pix, pix)
	e.seq++
}

// publishStill stores a seek preview; it is dropped if playback started
// in the meantime.
func (e *Element) publishStill(pix []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		return
	}
	copy(e.latest.Pix, pix)
	e.seq++
}

// readFrames reads consecutive raw RGBA frames of w x h from r and hands
// each to fn. A clean EOF on a frame boundary is not an error.
func readFrames(r io.Reader, w, h int, fn func([]byte)) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	buf := make([]byte, w*h*4)
	for {
		_, err := io.ReadFull(r, buf)
		switch {
		case err == nil:
			fn(buf)
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("truncated frame: %w", err)
		default:
			return err
		}
	}
}
