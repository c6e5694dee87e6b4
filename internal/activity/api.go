package activity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/briangreenhill/pacer/internal/tracking"
)

func NewAPI(logger *slog.Logger, activityService *Service, framer tracking.Framer, uiDir string, mapboxToken string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServer(http.Dir(uiDir)))
	mux.Handle("GET /sessions", handleListSessions(logger, activityService))
	mux.Handle("GET /sessions/{id}", handleGetSession(logger, activityService))
	mux.Handle("GET /sessions/{id}/gpx", handleGetSessionGPX(logger, activityService))
	mux.Handle("GET /sessions/{id}/frame", handleGetSessionFrame(logger, activityService, framer))
	mux.Handle("GET /token", handleToken(logger, mapboxToken))

	return mux
}

func handleToken(logger *slog.Logger, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			logger.Error("Error getting token", slog.String("error", "MAPBOX_TOKEN not set"))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, map[string]string{"token": token})
	})
}

func handleListSessions(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activities, err := activityService.Get(r.Context())
		if err != nil {
			logger.Error("Error getting sessions", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, activities)
	})
}

func handleGetSession(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activity, ok := lookup(w, r, logger, activityService)
		if !ok {
			return
		}

		writeJSON(w, logger, activity)
	})
}

func handleGetSessionGPX(logger *slog.Logger, activityService *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activity, ok := lookup(w, r, logger, activityService)
		if !ok {
			return
		}

		w.Header().Set("Content-Type", "application/gpx+xml")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(activity.GPX); err != nil {
			logger.Error("Error writing gpx", slog.Any("error", err))
		}
	})
}

func handleGetSessionFrame(logger *slog.Logger, activityService *Service, framer tracking.Framer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activity, ok := lookup(w, r, logger, activityService)
		if !ok {
			return
		}

		writeJSON(w, logger, framer.Frame(activity.Route))
	})
}

func lookup(w http.ResponseWriter, r *http.Request, logger *slog.Logger, activityService *Service) (Activity, bool) {
	id := r.PathValue("id")
	activity, err := activityService.GetByID(r.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return Activity{}, false
	}
	if err != nil {
		logger.Error("Error getting session", slog.String("id", id), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return Activity{}, false
	}
	return activity, true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
