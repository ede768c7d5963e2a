package session

import (
	"image"
	"image/color"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/videosync"
)

// VideoSource hands out the newest decoded frame of a video screen.
type VideoSource interface {
	// CopyFrame copies the newest frame into dst and returns its sequence
	// number, 0 when nothing was decoded yet.
	CopyFrame(dst *image.RGBA) uint64
	FrameSize() (int, int)
}

// VideoElement is a player the session keeps in sync and renders from.
type VideoElement interface {
	videosync.Element
	VideoSource
	SetDuration(seconds float64)
	Close() error
}

// ElementFactory creates the player for a video screen shown on a device.
type ElementFactory func(screen assets.Screen, device animation.Layout) VideoElement

// ScreenView is what one device slot shows in a frame.
type ScreenView struct {
	Screen   assets.Screen
	Video    VideoSource // nil for stills
	SeekTime float64
	Playing  bool
}

// RenderFrame is the complete per-tick output handed to the renderer.
type RenderFrame struct {
	Time       float64
	Preset     animation.PresetID
	Layout     animation.Layout
	Pose       animation.Pose
	Camera     animation.CameraPose
	Zoom       float64
	Primary    *ScreenView
	Secondary  *ScreenView
	Background color.RGBA
	Gradient   bool
}

// Renderer draws frames. Render is called from one goroutine at a time.
type Renderer interface {
	Render(f RenderFrame) error
}
