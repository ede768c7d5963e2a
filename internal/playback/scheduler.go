// Package playback drives the playhead over the timeline.
//
// Scheduler is plain state advanced with frame timestamps; Loop is the
// ticker that delivers those timestamps while something needs animating.
package playback

import (
	"math"
	"time"
)

// Scheduler owns the playhead. It is not safe for concurrent use.
type Scheduler struct {
	current  float64
	playing  bool
	last     time.Time
	haveLast bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) CurrentTime() float64 { return s.current }

func (s *Scheduler) Playing() bool { return s.playing }

// Advance moves the playhead by the wall time elapsed since the previous
// tick. The first tick after a start only records ts. Reaching total clamps
// the playhead there and stops playback. It returns the elapsed seconds.
func (s *Scheduler) Advance(ts time.Time, total float64) float64 {
	if !s.playing {
		s.haveLast = false
		return 0
	}
	if !s.haveLast {
		s.last = ts
		s.haveLast = true
		return 0
	}
	delta := ts.Sub(s.last).Seconds()
	s.last = ts
	if delta < 0 {
		delta = 0
	}

	s.current += delta
	if s.current >= total {
		s.current = math.Max(0, total)
		s.playing = false
		s.haveLast = false
	}
	return delta
}

// Play starts playback. A playhead at or past the end rewinds to 0 first.
func (s *Scheduler) Play(total float64) {
	if s.current >= total {
		s.current = 0
	}
	s.playing = true
	s.haveLast = false
}

func (s *Scheduler) Pause() {
	s.playing = false
	s.haveLast = false
}

// Toggle flips playback for the hotkey. It does nothing without clips and
// reports whether the scheduler is playing afterwards.
func (s *Scheduler) Toggle(total float64, hasClips bool) bool {
	if !hasClips {
		return s.playing
	}
	if s.playing {
		s.Pause()
	} else {
		s.Play(total)
	}
	return s.playing
}

// SeekTo moves the playhead, clamped into [0, total]. Playback state is kept.
func (s *Scheduler) SeekTo(t, total float64) float64 {
	s.current = math.Max(0, math.Min(t, math.Max(0, total)))
	s.haveLast = false
	return s.current
}

// Restart rewinds to 0 and sets the playing flag, as done when a recording
// starts.
func (s *Scheduler) Restart(playing bool) {
	s.current = 0
	s.playing = playing
	s.haveLast = false
}

// Clamp keeps the playhead inside a timeline that just shrank.
func (s *Scheduler) Clamp(total float64) {
	if s.current > total {
		s.current = math.Max(0, total)
	}
}
