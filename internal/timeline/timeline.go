// Package timeline holds the ordered clip sequence and the zoom overlays that
// sit on top of it.
//
// The clip sequence is a gapless partition of [0, TotalDuration): every
// mutation builds the next sequence off to the side, recomputes start times
// and only then swaps it in, so a reader never observes a half-edited state.
// Timeline and ZoomStore are not safe for concurrent use; the editor session
// serialises access.
package timeline

import "fmt"

type Timeline struct {
	clips []Clip
}

func New() *Timeline {
	return &Timeline{}
}

// Clips returns a copy of the clip sequence.
func (tl *Timeline) Clips() []Clip {
	out := make([]Clip, len(tl.clips))
	for i, c := range tl.clips {
		out[i] = c.clone()
	}
	return out
}

func (tl *Timeline) Len() int {
	return len(tl.clips)
}

func (tl *Timeline) Clip(id string) (Clip, bool) {
	i := tl.indexOf(id)
	if i < 0 {
		return Clip{}, false
	}
	return tl.clips[i].clone(), true
}

func (tl *Timeline) TotalDuration() float64 {
	total := 0.0
	for _, c := range tl.clips {
		total += c.Duration
	}
	return total
}

// ActiveClip resolves the clip under the playhead. Past the end the last
// clip stays active.
func (tl *Timeline) ActiveClip(t float64) (Clip, bool) {
	if len(tl.clips) == 0 {
		return Clip{}, false
	}
	for _, c := range tl.clips {
		if c.Contains(t) {
			return c.clone(), true
		}
	}
	return tl.clips[len(tl.clips)-1].clone(), true
}

// Append adds a clip for screenID at the end of the sequence.
func (tl *Timeline) Append(screenID string, duration float64) (Clip, error) {
	if duration <= 0 {
		duration = DefaultClipDuration
	}
	if !finite(duration) {
		return Clip{}, fmt.Errorf("append %s: duration=%v: %w", screenID, duration, ErrInvalidClip)
	}
	clip := Clip{
		ID:        newID(),
		ScreenID:  screenID,
		Duration:  duration,
		TrimStart: 0,
		TrimEnd:   duration,
		Effects:   []ClipEffect{},
	}
	next := append(tl.Clips(), clip)
	tl.commit(next)
	return tl.clips[len(tl.clips)-1].clone(), nil
}

func (tl *Timeline) Remove(id string) error {
	i := tl.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrClipNotFound)
	}
	next := tl.Clips()
	next = append(next[:i], next[i+1:]...)
	tl.commit(next)
	return nil
}

// RemoveByScreen drops every clip that references screenID and returns the
// removed clip IDs.
func (tl *Timeline) RemoveByScreen(screenID string) []string {
	var removed []string
	next := make([]Clip, 0, len(tl.clips))
	for _, c := range tl.clips {
		if c.ScreenID == screenID {
			removed = append(removed, c.ID)
			continue
		}
		next = append(next, c.clone())
	}
	if len(removed) > 0 {
		tl.commit(next)
	}
	return removed
}

func (tl *Timeline) Reorder(from, to int) error {
	n := len(tl.clips)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("reorder %d -> %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	next := tl.Clips()
	moved := next[from]
	next = append(next[:from], next[from+1:]...)
	next = append(next[:to], append([]Clip{moved}, next[to:]...)...)
	tl.commit(next)
	return nil
}

// Update merges patch into the clip. The merged clip must still satisfy
// Duration > 0 and 0 <= TrimStart < TrimEnd, otherwise nothing changes.
func (tl *Timeline) Update(id string, patch ClipPatch) (Clip, error) {
	i := tl.indexOf(id)
	if i < 0 {
		return Clip{}, fmt.Errorf("update %s: %w", id, ErrClipNotFound)
	}
	merged := patch.apply(tl.clips[i].clone())
	if err := merged.validate(); err != nil {
		return Clip{}, fmt.Errorf("update %s: duration=%.3f trim=[%.3f, %.3f]: %w",
			id, merged.Duration, merged.TrimStart, merged.TrimEnd, err)
	}
	next := tl.Clips()
	next[i] = merged
	tl.commit(next)
	return tl.clips[i].clone(), nil
}

// Split cuts the clip at the absolute time at. A cut within SplitGuard of
// either clip boundary is ignored and reported as false.
func (tl *Timeline) Split(id string, at float64) ([2]Clip, bool) {
	i := tl.indexOf(id)
	if i < 0 || !finite(at) {
		return [2]Clip{}, false
	}
	clip := tl.clips[i]
	offset := at - clip.StartTime
	if offset <= SplitGuard || offset >= clip.Duration-SplitGuard {
		return [2]Clip{}, false
	}

	first := clip.clone()
	first.ID = newID()
	first.Duration = offset
	first.TrimEnd = clip.TrimStart + offset
	first.Effects = []ClipEffect{}

	second := clip.clone()
	second.ID = newID()
	second.Duration = clip.Duration - offset
	second.TrimStart = clip.TrimStart + offset
	second.Effects = []ClipEffect{}

	next := make([]Clip, 0, len(tl.clips)+1)
	next = append(next, tl.Clips()[:i]...)
	next = append(next, first, second)
	next = append(next, tl.Clips()[i+1:]...)
	tl.commit(next)
	return [2]Clip{tl.clips[i].clone(), tl.clips[i+1].clone()}, true
}

func (tl *Timeline) indexOf(id string) int {
	for i, c := range tl.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// commit recomputes start times on next and makes it the current sequence.
func (tl *Timeline) commit(next []Clip) {
	recalcStartTimes(next)
	tl.clips = next
}

func recalcStartTimes(clips []Clip) {
	t := 0.0
	for i := range clips {
		clips[i].StartTime = t
		t += clips[i].Duration
	}
}
