package api

import (
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type AddScreensRequest struct {
	Paths []string `json:"paths"`
}

type ScreensResponse struct {
	Screens []assets.Screen `json:"screens"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// SplitRequest splits at the playhead when At is omitted.
type SplitRequest struct {
	At *float64 `json:"at,omitempty"`
}

type SplitResponse struct {
	Split bool            `json:"split"`
	Clips []timeline.Clip `json:"clips,omitempty"`
}

// ZoomRequest adds a one second effect at the playhead when Start and End
// are omitted.
type ZoomRequest struct {
	Start *float64 `json:"start_time,omitempty"`
	End   *float64 `json:"end_time,omitempty"`
	Level float64  `json:"zoom_level,omitempty"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type PreviewRequest struct {
	Playing bool `json:"playing"`
}

type PlaybackResponse struct {
	Playing     bool    `json:"playing"`
	CurrentTime float64 `json:"current_time"`
}

type LookRequest struct {
	Preset     *string `json:"preset,omitempty"`
	Layout     *string `json:"layout,omitempty"`
	Background *string `json:"background,omitempty"`
	Gradient   *bool   `json:"gradient,omitempty"`
}

type ExportRequest struct {
	Quality string `json:"quality,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
