package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProber struct {
	d   float64
	err error
}

func (f fakeProber) Duration(context.Context, string) (float64, error) { return f.d, f.err }

func TestProbeOrDefault(t *testing.T) {
	tests := []struct {
		name string
		p    fakeProber
		want float64
	}{
		{"ok", fakeProber{d: 12.5}, 12.5},
		{"error", fakeProber{err: errors.New("no ffprobe")}, FallbackDuration},
		{"zero", fakeProber{d: 0}, FallbackDuration},
		{"nan", fakeProber{d: math.NaN()}, FallbackDuration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProbeOrDefault(context.Background(), tc.p, "x.mp4", quietLogger()); got != tc.want {
				t.Errorf("ProbeOrDefault() = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestReadFrames(t *testing.T) {
	w, h := 2, 2
	frame := bytes.Repeat([]byte{1}, w*h*4)
	data := append(append([]byte{}, frame...), frame...)

	n := 0
	if err := readFrames(bytes.NewReader(data), w, h, func([]byte) { n++ }); err != nil {
		t.Fatalf("readFrames() error = %v", err)
	}
	if n != 2 {
		t.Errorf("frames = %d, want 2", n)
	}

	if err := readFrames(bytes.NewReader(data[:20]), w, h, func([]byte) {}); err == nil {
		t.Error("readFrames() on a truncated frame returned no error")
	}
}

func TestElement_ClockWhilePausedAndSeek(t *testing.T) {
	e := NewElement("clip.mp4", Options{Width: 2, Height: 2, Duration: 4, FFmpeg: "/nonexistent/ffmpeg"}, quietLogger())
	if !e.Paused() {
		t.Fatal("new element should be paused")
	}

	e.Seek(1.5)
	if e.Position() != 1.5 {
		t.Errorf("Position() = %f, want 1.5", e.Position())
	}
	e.Seek(9)
	if e.Position() != 4 {
		t.Errorf("Position() after seeking past the end = %f, want 4", e.Position())
	}
	e.Seek(-1)
	if e.Position() != 0 {
		t.Errorf("Position() after negative seek = %f, want 0", e.Position())
	}
}

func TestElement_PlayWithoutFFmpegFails(t *testing.T) {
	e := NewElement("clip.mp4", Options{Width: 2, Height: 2, FFmpeg: "/nonexistent/ffmpeg"}, quietLogger())
	if err := e.Play(); err == nil {
		t.Fatal("Play() returned no error without an ffmpeg binary")
	}
	if !e.Paused() {
		t.Error("element left playing after a failed start")
	}
}

func TestElement_PlayingClock(t *testing.T) {
	e := NewElement("clip.mp4", Options{Width: 2, Height: 2, Duration: 3}, quietLogger())
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	// Simulate a running decoder without spawning ffmpeg.
	e.mu.Lock()
	e.paused = false
	e.startedAt = now
	e.base = 1
	e.mu.Unlock()

	now = now.Add(1500 * time.Millisecond)
	if got := e.Position(); got != 2.5 {
		t.Errorf("Position() = %f, want 2.5", got)
	}
	now = now.Add(5 * time.Second)
	if got := e.Position(); got != 3 {
		t.Errorf("Position() past the end = %f, want 3", got)
	}

	e.Pause()
	now = now.Add(time.Second)
	if got := e.Position(); got != 3 || !e.Paused() {
		t.Errorf("paused Position() = %f paused=%v", got, e.Paused())
	}
}

func TestElement_CopyFrame(t *testing.T) {
	e := NewElement("clip.mp4", Options{Width: 1, Height: 1}, quietLogger())
	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if seq := e.CopyFrame(dst); seq != 0 {
		t.Errorf("CopyFrame() before decoding = %d, want 0", seq)
	}

	e.publishStill([]byte{9, 8, 7, 255})
	if seq := e.CopyFrame(dst); seq != 1 {
		t.Fatalf("CopyFrame() = %d, want 1", seq)
	}
	if dst.Pix[0] != 9 || dst.Pix[3] != 255 {
		t.Errorf("copied pixels = %v", dst.Pix)
	}

	// Frames from a playing decoder are ignored once paused.
	e.publish([]byte{1, 1, 1, 1})
	e.CopyFrame(dst)
	if dst.Pix[0] != 9 {
		t.Errorf("paused element accepted a playback frame: %v", dst.Pix)
	}

	if seq := e.CopyFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); seq != 0 {
		t.Error("CopyFrame() into a mismatched buffer should fail")
	}
}
