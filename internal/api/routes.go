package api

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivlev/mockupreel/internal/animation"
	"github.com/ivlev/mockupreel/internal/assets"
	"github.com/ivlev/mockupreel/internal/capture"
	"github.com/ivlev/mockupreel/internal/config"
	"github.com/ivlev/mockupreel/internal/project"
	"github.com/ivlev/mockupreel/internal/session"
	"github.com/ivlev/mockupreel/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/session", sessionHandler(cfg))
	r.Put("/look", lookHandler(cfg))
	r.Get("/project", projectHandler(cfg))
	r.Get("/preview.png", previewHandler(cfg))

	r.Route("/screens", func(r chi.Router) {
		r.Post("/", addScreensHandler(cfg))
		r.Post("/reorder", reorderScreensHandler(cfg))
		r.Delete("/{id}", removeScreenHandler(cfg))
	})

	r.Route("/clips", func(r chi.Router) {
		r.Post("/reorder", reorderClipsHandler(cfg))
		r.Patch("/{id}", updateClipHandler(cfg))
		r.Delete("/{id}", removeClipHandler(cfg))
		r.Post("/{id}/split", splitClipHandler(cfg))
		r.Post("/{id}/select", selectClipHandler(cfg))
	})

	r.Route("/zooms", func(r chi.Router) {
		r.Post("/", addZoomHandler(cfg))
		r.Patch("/{id}", updateZoomHandler(cfg))
		r.Delete("/{id}", removeZoomHandler(cfg))
	})

	r.Route("/playback", func(r chi.Router) {
		r.Post("/play", playHandler(cfg))
		r.Post("/pause", pauseHandler(cfg))
		r.Post("/toggle", toggleHandler(cfg))
		r.Post("/seek", seekHandler(cfg))
		r.Post("/preview", previewPlayingHandler(cfg))
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/", exportStateHandler(cfg))
		r.Post("/start", exportStartHandler(cfg))
		r.Post("/stop", exportStopHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func sessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func lookHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LookRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Preset != nil {
			if err := cfg.Session.SetPreset(animation.PresetID(*req.Preset)); err != nil {
				writeSessionError(w, err)
				return
			}
		}
		if req.Layout != nil {
			if err := cfg.Session.SetLayout(animation.Layout(*req.Layout)); err != nil {
				writeSessionError(w, err)
				return
			}
		}
		if req.Background != nil || req.Gradient != nil {
			st := cfg.Session.Snapshot()
			hex, gradient := st.Background, st.Gradient
			if req.Background != nil {
				hex = *req.Background
			}
			if req.Gradient != nil {
				gradient = *req.Gradient
			}
			c, err := config.ParseHexColor(hex)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			cfg.Session.SetBackground(c, gradient)
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func projectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := project.FromState(cfg.Session.Snapshot(), cfg.Quality)
		if err != nil {
			WriteError(w, http.StatusConflict, err.Error(), "EMPTY_TIMELINE")
			return
		}
		data, err := project.Marshal(p)
		if err != nil {
			cfg.Logger.Error("failed to marshal project", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to marshal project", "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Preview == nil {
			WriteError(w, http.StatusServiceUnavailable, "preview not available", "NO_PREVIEW")
			return
		}
		img := cfg.Preview.NewFrame()
		defer cfg.Preview.ReleaseFrame(img)
		if err := cfg.Preview.Snapshot(img); err != nil {
			cfg.Logger.Error("preview snapshot failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "preview snapshot failed", "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		if err := png.Encode(w, img); err != nil {
			cfg.Logger.Warn("preview encode failed", "error", err)
		}
	}
}

// Screens

func addScreensHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddScreensRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if len(req.Paths) == 0 {
			WriteError(w, http.StatusBadRequest, "paths is required", "BAD_REQUEST")
			return
		}
		screens, err := cfg.Session.AddScreens(r.Context(), req.Paths)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "IMPORT_FAILED")
			return
		}
		WriteJSON(w, http.StatusCreated, ScreensResponse{Screens: screens})
	}
}

func removeScreenHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveScreen(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderScreensHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := cfg.Session.ReorderScreens(req.From, req.To); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ScreensResponse{Screens: cfg.Session.Snapshot().Screens})
	}
}

// Clips

func reorderClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := cfg.Session.ReorderClips(req.From, req.To); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch timeline.ClipPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		clip, err := cfg.Session.UpdateClip(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveClip(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")

		var (
			parts [2]timeline.Clip
			ok    bool
			err   error
		)
		if req.At != nil {
			parts, ok, err = cfg.Session.SplitClip(id, *req.At)
		} else {
			parts, ok, err = cfg.Session.SplitClipAtPlayhead(id)
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		resp := SplitResponse{Split: ok}
		if ok {
			resp.Clips = parts[:]
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func selectClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.SelectClip(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Zooms

func addZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ZoomRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		var (
			z   timeline.ZoomEffect
			err error
		)
		switch {
		case req.Start == nil && req.End == nil:
			z, err = cfg.Session.AddZoomEffectAtPlayhead()
		case req.Start != nil && req.End != nil:
			z, err = cfg.Session.AddZoomEffect(*req.Start, *req.End, req.Level)
		default:
			WriteError(w, http.StatusBadRequest, "start_time and end_time go together", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, z)
	}
}

func updateZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch timeline.ZoomPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		z, err := cfg.Session.UpdateZoomEffect(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, z)
	}
}

func removeZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveZoomEffect(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Playback

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Play()
		writePlayback(w, cfg)
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Pause()
		writePlayback(w, cfg)
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.TogglePlayback()
		writePlayback(w, cfg)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.SeekTo(req.Time)
		writePlayback(w, cfg)
	}
}

func previewPlayingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PreviewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		cfg.Session.SetPreviewPlaying(req.Playing)
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func writePlayback(w http.ResponseWriter, cfg ServerConfig) {
	st := cfg.Session.Snapshot()
	WriteJSON(w, http.StatusOK, PlaybackResponse{Playing: st.Playing, CurrentTime: st.CurrentTime})
}

// Export

func exportStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.RecordingState())
	}
}

func exportStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		quality := cfg.Quality
		if req.Quality != "" {
			q, err := config.ParseQuality(req.Quality)
			if err != nil {
				WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
				return
			}
			quality = q
		}
		if err := cfg.Session.StartRecording(r.Context(), quality); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, cfg.Session.RecordingState())
	}
}

func exportStopHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.StopRecording(); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, cfg.Session.RecordingState())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// writeSessionError maps session and store errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assets.ErrScreenNotFound),
		errors.Is(err, timeline.ErrClipNotFound),
		errors.Is(err, timeline.ErrZoomNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, assets.ErrIndexOutOfRange),
		errors.Is(err, timeline.ErrIndexOutOfRange),
		errors.Is(err, timeline.ErrInvalidClip),
		errors.Is(err, timeline.ErrInvalidZoomRange),
		errors.Is(err, timeline.ErrInvalidZoomLevel),
		errors.Is(err, session.ErrUnknownPreset),
		errors.Is(err, session.ErrInvalidLayout):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrNotRecording):
		WriteError(w, http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, capture.ErrNoSurface),
		errors.Is(err, session.ErrNoExporter):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "UNAVAILABLE")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
