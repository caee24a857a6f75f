package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seamline/seamline-agent/internal/editor"
	"github.com/seamline/seamline-agent/internal/surface"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackOnly(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/state", stateHandler(cfg))

		r.Post("/clips", generateClipHandler(cfg))
		r.Delete("/clips/{id}", removeClipHandler(cfg))
		r.Post("/clips/{id}/select", selectClipHandler(cfg))
		r.Post("/selection/clear", clearSelectionHandler(cfg))

		r.Post("/gestures/reorder", beginReorderHandler(cfg))
		r.Post("/gestures/trim", beginTrimHandler(cfg))
		r.Post("/gestures/move", moveGestureHandler(cfg))
		r.Post("/gestures/commit", commitGestureHandler(cfg))
		r.Post("/gestures/cancel", cancelGestureHandler(cfg))

		r.Post("/playback/seek", seekHandler(cfg))
		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/toggle", toggleHandler(cfg))

		r.Post("/exports", startExportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))

		r.Get("/assets/*", assetHandler(cfg))
		r.Head("/assets/*", assetHandler(cfg))
	})

	return r
}

// decodeValid decodes a JSON body and runs struct validation. Handlers
// bail out when it reports false.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return false
	}
	return true
}

// writeSessionError maps session errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrGestureActive):
		WriteError(w, http.StatusConflict, err.Error(), "GESTURE_ACTIVE")
	case errors.Is(err, editor.ErrNoGesture):
		WriteError(w, http.StatusConflict, err.Error(), "NO_GESTURE")
	case errors.Is(err, editor.ErrClipNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, editor.ErrNoClips):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func generateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateClipRequest
		if !decodeValid(w, r, &req) {
			return
		}

		clip, err := cfg.Session.HandleGeneration(r.Context(), req.SourceURL, req.Label)
		if err != nil {
			writeSessionError(w, err)
			return
		}

		WriteJSON(w, http.StatusCreated, GenerateClipResponse{Clip: ClipToResponse(clip)})
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.RemoveClip(id); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.Select(id); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SelectResponse{SelectedClipID: cfg.Session.SelectedClipID()})
	}
}

func clearSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.ClearSelection()
		WriteJSON(w, http.StatusOK, SelectResponse{})
	}
}

func beginReorderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BeginReorderRequest
		if !decodeValid(w, r, &req) {
			return
		}

		if err := cfg.Session.BeginReorder(*req.Index); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func beginTrimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BeginTrimRequest
		if !decodeValid(w, r, &req) {
			return
		}

		edge := surface.EdgeStart
		if req.Edge == "end" {
			edge = surface.EdgeEnd
		}

		if err := cfg.Session.BeginTrim(*req.Index, edge); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func moveGestureHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MoveGestureRequest
		if !decodeValid(w, r, &req) {
			return
		}

		if err := cfg.Session.MoveGesture(*req.X); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func commitGestureHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		switch cfg.Session.Snapshot().Gesture {
		case editor.GestureReorder:
			err = cfg.Session.DropReorder()
		case editor.GestureTrim:
			err = cfg.Session.ReleaseTrim()
		default:
			err = editor.ErrNoGesture
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func cancelGestureHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.CancelGesture(); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var err error
		switch {
		case req.Seconds != nil:
			err = cfg.Session.Seek(*req.Seconds)
		case req.X != nil:
			err = cfg.Session.SeekToX(*req.X)
		default:
			WriteError(w, http.StatusBadRequest, "seconds or x is required", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Play()
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Pause()
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func toggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Toggle()
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Session.Snapshot()))
	}
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartExportRequest
		if !decodeValid(w, r, &req) {
			return
		}

		jobID, err := cfg.Session.StartExport(r.Context(), req.Kind, req.Title, req.Format, req.Quality, req.Resolution)
		if err != nil {
			writeSessionError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, StartExportResponse{JobID: jobID})
	}
}

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListExportJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list export jobs", "INTERNAL_ERROR")
			return
		}

		resp := ExportJobsResponse{Jobs: make([]ExportJobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = ExportJobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "export id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetExportJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "export job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ExportJobToResponse(job))
	}
}

func assetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" {
			WriteError(w, http.StatusBadRequest, "asset name required", "BAD_REQUEST")
			return
		}

		if err := cfg.Assets.ServeAsset(w, r, name); err != nil {
			cfg.Logger.Error("asset streaming error", "error", err, "asset", name)
		}
	}
}
