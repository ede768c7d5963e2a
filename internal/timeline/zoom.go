package timeline

import (
	"fmt"
	"math"
)

const (
	DefaultZoomLevel  = 2.0
	defaultZoomLength = 1.0
)

// ZoomEffect scales the whole device group while the playhead is inside
// [StartTime, EndTime]. Both ends are inclusive.
type ZoomEffect struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	ZoomLevel float64 `json:"zoom_level"`
}

func (z ZoomEffect) Covers(t float64) bool {
	return t >= z.StartTime && t <= z.EndTime
}

type ZoomPatch struct {
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	ZoomLevel *float64 `json:"zoom_level,omitempty"`
}

// ZoomStore keeps zoom effects in insertion order. Overlaps are allowed and
// the earliest inserted effect wins.
type ZoomStore struct {
	effects []ZoomEffect
}

func NewZoomStore() *ZoomStore {
	return &ZoomStore{}
}

func (s *ZoomStore) Effects() []ZoomEffect {
	out := make([]ZoomEffect, len(s.effects))
	copy(out, s.effects)
	return out
}

func (s *ZoomStore) Len() int {
	return len(s.effects)
}

// Add stores an effect that must lie within [0, total]. A zero level means
// DefaultZoomLevel.
func (s *ZoomStore) Add(start, end, level, total float64) (ZoomEffect, error) {
	if err := checkRange(start, end, total); err != nil {
		return ZoomEffect{}, fmt.Errorf("add zoom [%.3f, %.3f]: %w", start, end, err)
	}
	if level == 0 {
		level = DefaultZoomLevel
	}
	if !validLevel(level) {
		return ZoomEffect{}, fmt.Errorf("add zoom level %.3f: %w", level, ErrInvalidZoomLevel)
	}
	z := ZoomEffect{ID: newID(), StartTime: start, EndTime: end, ZoomLevel: level}
	s.effects = append(s.effects, z)
	return z, nil
}

// AddAt places a one second effect at the playhead, clamped to the timeline.
func (s *ZoomStore) AddAt(current, total float64) (ZoomEffect, error) {
	start := math.Max(0, current)
	end := math.Min(total, current+defaultZoomLength)
	if end < start {
		end = start
	}
	return s.Add(start, end, DefaultZoomLevel, total)
}

// Update merges patch into an effect. The result must still lie within
// [0, total] with a positive level.
func (s *ZoomStore) Update(id string, patch ZoomPatch, total float64) (ZoomEffect, error) {
	i := s.indexOf(id)
	if i < 0 {
		return ZoomEffect{}, fmt.Errorf("update zoom %s: %w", id, ErrZoomNotFound)
	}
	z := s.effects[i]
	if patch.StartTime != nil {
		z.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		z.EndTime = *patch.EndTime
	}
	if patch.ZoomLevel != nil {
		z.ZoomLevel = *patch.ZoomLevel
	}
	if err := checkRange(z.StartTime, z.EndTime, total); err != nil {
		return ZoomEffect{}, fmt.Errorf("update zoom %s [%.3f, %.3f]: %w", id, z.StartTime, z.EndTime, err)
	}
	if !validLevel(z.ZoomLevel) {
		return ZoomEffect{}, fmt.Errorf("update zoom %s level %.3f: %w", id, z.ZoomLevel, ErrInvalidZoomLevel)
	}
	s.effects[i] = z
	return z, nil
}

func (s *ZoomStore) Remove(id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("remove zoom %s: %w", id, ErrZoomNotFound)
	}
	s.effects = append(s.effects[:i:i], s.effects[i+1:]...)
	return nil
}

// Level returns the zoom level of the first inserted effect covering t,
// or 1 when none does.
func (s *ZoomStore) Level(t float64) float64 {
	for _, z := range s.effects {
		if z.Covers(t) {
			return z.ZoomLevel
		}
	}
	return 1
}

// Clamp fits the effects to a timeline of length total. Effects that start at
// or after the end are dropped, effects that run past it are cut at total.
// An empty timeline drops everything. It returns the IDs of dropped effects.
func (s *ZoomStore) Clamp(total float64) []string {
	var dropped []string
	kept := s.effects[:0:0]
	for _, z := range s.effects {
		if total <= 0 || (z.StartTime >= total && z.EndTime > total) {
			dropped = append(dropped, z.ID)
			continue
		}
		if z.EndTime > total {
			z.EndTime = total
		}
		kept = append(kept, z)
	}
	s.effects = kept
	return dropped
}

func checkRange(start, end, total float64) error {
	if !finite(start) || !finite(end) || start < 0 || end > total || start > end {
		return ErrInvalidZoomRange
	}
	return nil
}

func validLevel(level float64) bool {
	return finite(level) && level > 0
}

func (s *ZoomStore) indexOf(id string) int {
	for i, z := range s.effects {
		if z.ID == id {
			return i
		}
	}
	return -1
}
