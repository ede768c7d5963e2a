package session

import (
	"fmt"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/capture"
	"github.com/ivlev/mockupreel/internal/timeline"
)

// State is a read-only copy of the session.
type State struct {
	Screens        []assets.Screen       `json:"screens"`
	Clips          []timeline.Clip       `json:"clips"`
	Zooms          []timeline.ZoomEffect `json:"zooms"`
	TotalDuration  float64               `json:"total_duration"`
	CurrentTime    float64               `json:"current_time"`
	Playing        bool                  `json:"playing"`
	PreviewPlaying bool                  `json:"preview_playing"`
	SelectedClipID string                `json:"selected_clip_id,omitempty"`
	ActiveClipID   string                `json:"active_clip_id,omitempty"`
	ActiveScreenID string                `json:"active_screen_id,omitempty"`
	Preset         animation.PresetID    `json:"preset"`
	Layout         animation.Layout      `json:"layout"`
	Background     string                `json:"background"`
	Gradient       bool                  `json:"gradient"`
	Zoom           float64               `json:"zoom"`
	Recording      capture.Session       `json:"recording"`
}

// Snapshot copies the session state. Active clip and screen are as of the
// last frame.
func (s *EditorSession) Snapshot() State {
	rec := s.RecordingState()

	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Screens:        s.screens.List(),
		Clips:          s.timeline.Clips(),
		Zooms:          s.zooms.Effects(),
		TotalDuration:  s.timeline.TotalDuration(),
		CurrentTime:    s.scheduler.CurrentTime(),
		Playing:        s.scheduler.Playing(),
		PreviewPlaying: s.previewPlaying,
		SelectedClipID: s.selected,
		ActiveClipID:   s.activeClipID,
		ActiveScreenID: s.activeScreenID,
		Preset:         s.preset,
		Layout:         s.layout,
		Background:     fmt.Sprintf("#%02x%02x%02x", s.background.R, s.background.G, s.background.B),
		Gradient:       s.gradient,
		Zoom:           s.engine.Zoom(),
		Recording:      rec,
	}
}
