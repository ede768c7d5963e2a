package timeline

import (
	"errors"
	"math"

	"github.com/google/uuid"
)

const (
	// DefaultClipDuration is the provisional length of a freshly appended clip.
	DefaultClipDuration = 3.0

	// SplitGuard is the minimum distance from a clip boundary for a split.
	SplitGuard = 0.1
)

var (
	ErrClipNotFound     = errors.New("clip not found")
	ErrInvalidClip      = errors.New("invalid clip")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrZoomNotFound     = errors.New("zoom effect not found")
	ErrInvalidZoomRange = errors.New("zoom effect range is outside the timeline or inverted")
	ErrInvalidZoomLevel = errors.New("zoom level must be positive")
)

// ClipEffect is a per-clip effect entry. The list is ordered; nothing
// consumes it beyond animation yet.
type ClipEffect struct {
	Kind   string             `json:"kind" yaml:"kind"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Clip is one segment of the timeline.
type Clip struct {
	ID        string       `json:"id"`
	ScreenID  string       `json:"screen_id"`
	StartTime float64      `json:"start_time"` // derived by recompute
	Duration  float64      `json:"duration"`
	TrimStart float64      `json:"trim_start"`
	TrimEnd   float64      `json:"trim_end"`
	Effects   []ClipEffect `json:"effects"`
	Animation string       `json:"animation,omitempty"`
}

// End returns the absolute time at which the clip stops.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// Contains reports whether t falls in [StartTime, End).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.End()
}

func (c Clip) validate() error {
	if !finite(c.Duration) || !finite(c.TrimStart) || !finite(c.TrimEnd) {
		return ErrInvalidClip
	}
	if c.Duration <= 0 {
		return ErrInvalidClip
	}
	if c.TrimStart < 0 || c.TrimStart >= c.TrimEnd {
		return ErrInvalidClip
	}
	return nil
}

func (c Clip) clone() Clip {
	if c.Effects != nil {
		effects := make([]ClipEffect, len(c.Effects))
		copy(effects, c.Effects)
		c.Effects = effects
	}
	return c
}

// ClipPatch lists the fields Update merges into a clip. Nil fields are kept.
type ClipPatch struct {
	Duration  *float64     `json:"duration,omitempty"`
	TrimStart *float64     `json:"trim_start,omitempty"`
	TrimEnd   *float64     `json:"trim_end,omitempty"`
	Animation *string      `json:"animation,omitempty"`
	Effects   []ClipEffect `json:"effects,omitempty"`
}

func (p ClipPatch) apply(c Clip) Clip {
	if p.Duration != nil {
		c.Duration = *p.Duration
	}
	if p.TrimStart != nil {
		c.TrimStart = *p.TrimStart
	}
	if p.TrimEnd != nil {
		c.TrimEnd = *p.TrimEnd
	}
	if p.Animation != nil {
		c.Animation = *p.Animation
	}
	if p.Effects != nil {
		c.Effects = append([]ClipEffect(nil), p.Effects...)
	}
	return c
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func newID() string {
	return uuid.NewString()
}
