package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ecoroute-dashboard/internal/dashboard"
	"ecoroute-dashboard/internal/websocket"
	"ecoroute-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// CreateSession starts a dashboard session in the welcome view
// POST /api/sessions
func CreateSession(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := registry.Create()
		utils.JSON(w, http.StatusCreated, session.Snapshot())
	}
}

// GetSession returns the session snapshot
// GET /api/sessions/{id}
func GetSession(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		utils.Success(w, session.Snapshot())
	}
}

// DeleteSession tears the session down and disconnects its sockets
// DELETE /api/sessions/{id}
func DeleteSession(registry *dashboard.Registry, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !registry.Close(id) {
			utils.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		hub.CloseSession(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ConfirmSession moves from the welcome view into the intro
// POST /api/sessions/{id}/confirm
func ConfirmSession(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		if err := session.Confirm(); err != nil {
			respondSessionError(w, session.ID, "confirm", err)
			return
		}
		utils.Success(w, session.Snapshot())
	}
}

// UpdateControls edits date and fleet size
// PATCH /api/sessions/{id}/controls
func UpdateControls(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}

		var req dashboard.ControlsUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if _, err := session.SetControls(req); err != nil {
			respondSessionError(w, session.ID, "update controls", err)
			return
		}
		utils.Success(w, session.Snapshot())
	}
}

// TriggerOptimization starts the processing sequence; routes follow asynchronously
// POST /api/sessions/{id}/trigger
func TriggerOptimization(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		if err := session.Trigger(); err != nil {
			respondSessionError(w, session.ID, "trigger", err)
			return
		}
		utils.JSON(w, http.StatusAccepted, session.Snapshot())
	}
}

// RefreshBins re-fetches the bin snapshot
// POST /api/sessions/{id}/bins/refresh
func RefreshBins(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		if err := session.RefreshBins(); err != nil {
			respondSessionError(w, session.ID, "refresh bins", err)
			return
		}
		utils.JSON(w, http.StatusAccepted, session.Snapshot())
	}
}

// GetScene renders the map: viewport, base layers and GeoJSON features
// GET /api/sessions/{id}/scene
func GetScene(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		utils.Success(w, session.Scene())
	}
}

// GetSceneFeatures returns only the FeatureCollection, for GIS tooling
// GET /api/sessions/{id}/scene.geojson
func GetSceneFeatures(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		utils.GeoJSON(w, session.Scene().Features)
	}
}

// GetMetrics returns the summary figures for the last route set
// GET /api/sessions/{id}/metrics
func GetMetrics(registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := lookupSession(registry, w, r)
		if !ok {
			return
		}
		utils.Success(w, session.Snapshot().Metrics)
	}
}

func lookupSession(registry *dashboard.Registry, w http.ResponseWriter, r *http.Request) (*dashboard.Session, bool) {
	id := chi.URLParam(r, "id")
	session, ok := registry.Get(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return session, true
}

func respondSessionError(w http.ResponseWriter, sessionID, action string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dashboard.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, dashboard.ErrBusy),
		errors.Is(err, dashboard.ErrWrongView),
		errors.Is(err, dashboard.ErrNotOperational):
		status = http.StatusConflict
	case errors.Is(err, dashboard.ErrSessionClosed):
		status = http.StatusGone
	}

	log.Printf("⚠️  [SESSION %s] %s refused (%d): %v", sessionID, action, status, err)
	utils.RespondError(w, status, err.Error())
}
