package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fbettag/liveu-chat-monitor/internal/commands"
	"github.com/fbettag/liveu-chat-monitor/internal/database"
	"github.com/fbettag/liveu-chat-monitor/internal/liveu"
	"github.com/gorilla/mux"
)

// Routes builds the status API router
func (app *App) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", app.HealthHandler).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(app.BasicAuthMiddleware)
	api.HandleFunc("/status", app.GetStatusHandler).Methods("GET")
	api.HandleFunc("/battery", app.GetBatteryHandler).Methods("GET")
	api.HandleFunc("/logs", app.GetLogsHandler).Methods("GET")

	return router
}

// Helper function to send JSON error responses
func (app *App) sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	}); err != nil {
		app.Logger.Errorf("Failed to encode error response: %v", err)
	}
}

func (app *App) sendJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		app.Logger.Errorf("Failed to encode response: %v", err)
	}
}

// BasicAuthMiddleware guards the API with the status credentials. Without a
// password hash configured the API is open.
func (app *App) BasicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.Config.StatusAPI.PasswordHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok || username != app.Config.StatusAPI.Username || !app.Config.VerifyStatusPassword(password) {
			app.Logger.Warnf("Rejected status API request from %s", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Basic realm="liveu-chat-monitor"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	app.sendJSON(w, map[string]string{"status": "ok"})
}

// Get status API
func (app *App) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := app.Telemetry.GetInterfaces(r.Context(), app.UnitID)
	if err != nil {
		app.Logger.Debugf("Status unavailable: %v", err)
		app.sendJSONError(w, commands.OfflineReply, http.StatusServiceUnavailable)
		return
	}

	interfaces := liveu.ApplyCustomNames(raw, &app.Config.LiveU.CustomPortNames)

	var streaming, idle bool
	if video, err := app.Telemetry.GetVideo(r.Context(), app.UnitID); err != nil {
		app.Logger.Debugf("Video status unavailable: %v", err)
	} else {
		streaming = video.IsStreaming()
		idle = video.IsIdle()
	}

	app.sendJSON(w, map[string]interface{}{
		"success":    true,
		"unit_id":    app.UnitID,
		"streaming":  streaming,
		"idle":       idle,
		"interfaces": interfaces,
		"total_kbps": commands.TotalKbps(interfaces),
		"message":    commands.Describe(interfaces, idle, nil),
	})
}

// Get battery API
func (app *App) GetBatteryHandler(w http.ResponseWriter, r *http.Request) {
	battery, err := app.Telemetry.GetBattery(r.Context(), app.UnitID)
	if err != nil {
		app.Logger.Debugf("Battery unavailable: %v", err)
		app.sendJSONError(w, commands.OfflineReply, http.StatusServiceUnavailable)
		return
	}

	app.sendJSON(w, map[string]interface{}{
		"success": true,
		"battery": battery,
		"state":   commands.ChargingState(*battery),
		"message": commands.FormatBattery(*battery),
	})
}

// Get logs API
func (app *App) GetLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !app.Config.LogActivity || app.DB == nil {
		app.sendJSONError(w, "Activity logging is disabled", http.StatusNotFound)
		return
	}

	limit := 100
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil {
			limit = v
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if v, err := strconv.Atoi(o); err == nil {
			offset = v
		}
	}

	var logs []database.LogEntry
	var err error
	if kind := r.URL.Query().Get("kind"); kind != "" {
		logs, err = app.DB.GetLogsByKind(kind, limit)
	} else {
		logs, err = app.DB.GetLogs(limit, offset)
	}
	if err != nil {
		http.Error(w, "Failed to get logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []database.LogEntry{}
	}

	app.sendJSON(w, logs)
}
