// Package videosync keeps a playable media element aligned with the
// timeline playhead.
package videosync

import (
	"log/slog"
	"math"
)

// SeekTolerance is the drift, in seconds, below which a paused element is
// not re-seeked.
const SeekTolerance = 0.03

// Element is the subset of a media player the controller drives.
type Element interface {
	Paused() bool
	Play() error
	Pause()
	Seek(seconds float64)
}

// SeekTime maps the playhead into the clip's source media.
func SeekTime(current, clipStart, trimStart float64) float64 {
	return current - clipStart + trimStart
}

// Controller is the per-session sync state. Not safe for concurrent use.
type Controller struct {
	logger     *slog.Logger
	clipID     string
	element    Element
	lastForced float64
}

func NewController(logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{logger: logger, lastForced: -1}
}

// Sync is called once per frame with the element of the active clip.
//
// While playing, a paused element is seeked to seek and started once; after
// that it runs on its own clock. While not playing, the element is paused
// and only re-seeked when it drifted more than SeekTolerance from the last
// forced position.
func (c *Controller) Sync(clipID string, el Element, seek float64, playing bool) {
	if clipID != c.clipID || el != c.element {
		c.Detach()
		c.clipID = clipID
		c.element = el
	}
	if el == nil {
		return
	}

	if playing {
		if el.Paused() {
			el.Seek(seek)
			if err := el.Play(); err != nil {
				c.logger.Warn("video play failed", "clip_id", clipID, "error", err)
			}
			c.lastForced = -1
		}
		return
	}

	if !el.Paused() {
		el.Pause()
	}
	if math.Abs(c.lastForced-seek) > SeekTolerance {
		el.Seek(seek)
		c.lastForced = seek
	}
}

// Detach pauses the element driven so far and forgets the last forced
// position.
func (c *Controller) Detach() {
	if c.element != nil && !c.element.Paused() {
		c.element.Pause()
	}
	c.clipID = ""
	c.element = nil
	c.lastForced = -1
}

func (c *Controller) ClipID() string { return c.clipID }

func (c *Controller) LastForced() float64 { return c.lastForced }
