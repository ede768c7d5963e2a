package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ivlev/mockupreel/internal/system"
)

const (
	transcodeInput  = "input.webm"
	transcodeOutput = "output.mp4"
	transcodeCRF    = 22
)

// CodecEngine is a sandboxed ffmpeg: files live in its own working area.
type CodecEngine interface {
	Load(ctx context.Context) error
	WriteFile(name string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(name string) ([]byte, error)
	Terminate()
}

// Transcoder converts the WebM recording to H.264 MP4.
type Transcoder struct {
	NewEngine func() CodecEngine
	Encoder   string
}

// NewFFmpegTranscoder uses the host ffmpeg with the best H.264 encoder it
// offers.
func NewFFmpegTranscoder() *Transcoder {
	return &Transcoder{
		NewEngine: func() CodecEngine { return &FFmpegEngine{} },
		Encoder:   system.GetBestH264Encoder(),
	}
}

func (t *Transcoder) Args() []string {
	enc := t.Encoder
	if enc == "" {
		enc = "libx264"
	}
	args := []string{"-i", transcodeInput, "-c:v", enc}
	args = append(args, system.H264QualityArgs(enc, transcodeCRF)...)
	return append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart", transcodeOutput)
}

// Convert runs one conversion in a fresh engine that is always terminated.
func (t *Transcoder) Convert(ctx context.Context, webm []byte) ([]byte, error) {
	engine := t.NewEngine()
	defer engine.Terminate()

	if err := engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("load codec engine: %w", err)
	}
	if err := engine.WriteFile(transcodeInput, webm); err != nil {
		return nil, fmt.Errorf("write %s: %w", transcodeInput, err)
	}
	if err := engine.Exec(ctx, t.Args()); err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	out, err := engine.ReadFile(transcodeOutput)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", transcodeOutput, err)
	}
	if len(out) == 0 {
		return nil, errors.New("transcode produced an empty file")
	}
	return out, nil
}

// FFmpegEngine runs the ffmpeg binary inside a private temp directory.
type FFmpegEngine struct {
	Binary string

	mu  sync.Mutex
	dir string
}

func (f *FFmpegEngine) binary() string {
	if f.Binary != "" {
		return f.Binary
	}
	return "ffmpeg"
}

func (f *FFmpegEngine) Load(ctx context.Context) error {
	if _, err := exec.LookPath(f.binary()); err != nil {
		return err
	}
	dir, err := os.MkdirTemp("", "mockupreel-transcode-*")
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.dir = dir
	f.mu.Unlock()
	return nil
}

func (f *FFmpegEngine) path(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dir == "" {
		return "", errors.New("engine not loaded")
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(f.dir, name), nil
}

func (f *FFmpegEngine) WriteFile(name string, data []byte) error {
	p, err := f.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0644)
}

func (f *FFmpegEngine) Exec(ctx context.Context, args []string) error {
	f.mu.Lock()
	dir := f.dir
	f.mu.Unlock()
	if dir == "" {
		return errors.New("engine not loaded")
	}

	cmd := exec.CommandContext(ctx, f.binary(), append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %v, output: %s", err, strings.TrimSpace(out.String()))
	}
	return nil
}

func (f *FFmpegEngine) ReadFile(name string) ([]byte, error) {
	p, err := f.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (f *FFmpegEngine) Terminate() {
	f.mu.Lock()
	dir := f.dir
	f.dir = ""
	f.mu.Unlock()
	if dir != "" {
		os.RemoveAll(dir)
	}
}
