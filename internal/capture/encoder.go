package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// chunkSize is the read size on the encoder's output pipe.
const chunkSize = 64 * 1024

type StreamConfig struct {
	Width   int
	Height  int
	FPS     int
	Bitrate int
}

// Recording is the encoded stream as delivered by the encoder.
type Recording struct {
	Chunks [][]byte
	MIME   string
	Ext    string
}

// StreamEncoder opens a live encoding stream.
type StreamEncoder interface {
	Open(ctx context.Context, cfg StreamConfig) (FrameWriter, error)
}

type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
	// Close flushes the encoder and returns the stream.
	Close() (Recording, error)
	// Abort discards the stream.
	Abort()
}

// FFmpegStreamEncoder encodes raw RGBA frames piped on stdin to VP9 in a
// WebM container read back from stdout.
type FFmpegStreamEncoder struct {
	Binary string
}

func (e *FFmpegStreamEncoder) Open(ctx context.Context, cfg StreamConfig) (FrameWriter, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid stream config %+v", cfg)
	}
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, bin, buildStreamArgs(cfg)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	s := &ffmpegStream{
		cfg:    cfg,
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		stderr: &stderr,
		read:   make(chan error, 1),
	}
	go func() { s.read <- s.collect(stdout) }()
	return s, nil
}

func buildStreamArgs(cfg StreamConfig) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", "-",
		"-c:v", "libvpx-vp9",
		"-b:v", strconv.Itoa(cfg.Bitrate),
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-row-mt", "1",
		"-pix_fmt", "yuv420p",
		"-f", "webm",
		"pipe:1",
	}
}

type ffmpegStream struct {
	cfg    StreamConfig
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	read   chan error

	mu     sync.Mutex
	chunks [][]byte
	closed bool
}

// collect keeps every non-empty read from the output pipe.
func (s *ffmpegStream) collect(r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.mu.Lock()
			s.chunks = append(s.chunks, chunk)
			s.mu.Unlock()
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *ffmpegStream) WriteFrame(img *image.RGBA) error {
	return writeRawRGBA(s.stdin, img, s.cfg.Width, s.cfg.Height)
}

func (s *ffmpegStream) Close() (Recording, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Recording{}, errors.New("stream already closed")
	}
	s.closed = true
	s.mu.Unlock()
	defer s.cancel()

	s.stdin.Close()
	readErr := <-s.read
	if err := s.cmd.Wait(); err != nil {
		return Recording{}, fmt.Errorf("ffmpeg wait error: %w, output: %s", err, s.stderr.String())
	}
	if readErr != nil {
		return Recording{}, fmt.Errorf("read encoded stream: %w", readErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return Recording{Chunks: s.chunks, MIME: "video/webm", Ext: "webm"}, nil
}

func (s *ffmpegStream) Abort() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.stdin.Close()
	<-s.read
	s.cmd.Wait()
}

// writeRawRGBA writes img as tightly packed w x h RGBA rows.
func writeRawRGBA(w io.Writer, img *image.RGBA, width, height int) error {
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}
	if img.Stride != width*4 || bounds.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(packed, packed.Bounds(), img, bounds.Min, draw.Src)
		img = packed
	}
	_, err := w.Write(img.Pix)
	return err
}
