// Package media plays video screens through ffmpeg and probes their
// durations through ffprobe.
package media

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/ivlev/mockupreel/internal/system"
)

// FallbackDuration is used when a video's duration cannot be read.
const FallbackDuration = 5.0

const probeTimeout = 10 * time.Second

type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFprobe reads container durations with the ffprobe binary.
type FFprobe struct{}

func (FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return system.GetMediaDuration(ctx, path)
}

// ProbeOrDefault never fails: unreadable, zero or non-finite durations fall
// back to FallbackDuration.
func ProbeOrDefault(ctx context.Context, p Prober, path string, logger *slog.Logger) float64 {
	if logger == nil {
		logger = slog.Default()
	}
	d, err := p.Duration(ctx, path)
	if err != nil {
		logger.Warn("duration probe failed, using fallback", "path", path, "fallback_s", FallbackDuration, "error", err)
		return FallbackDuration
	}
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		logger.Warn("duration probe returned no usable value, using fallback", "path", path, "value", d)
		return FallbackDuration
	}
	return d
}
