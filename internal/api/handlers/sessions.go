package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/terminal"
	"github.com/piyushgupta53/termbridge/internal/types"
)

// SessionHandler serves the REST checkpoint surface over the registry. It
// only ever hands out metadata snapshots, never a live PTY handle.
type SessionHandler struct {
	registry *terminal.Registry
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *terminal.Registry) *SessionHandler {
	return &SessionHandler{
		registry: registry,
	}
}

// ListSessions handles GET /api/sessions
func (sh *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	snapshots := sh.registry.Snapshots()

	response := types.SessionListResponse{
		Sessions: snapshots,
		Count:    len(snapshots),
	}

	writeJSON(w, http.StatusOK, response)

	logrus.WithField("session_count", len(snapshots)).Debug("Sessions listed")
}

// GetSession handles GET /api/sessions/{id}
func (sh *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, exists := sh.registry.Get(sessionID)
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, session.Snapshot())
}

// KillSession handles DELETE /api/sessions/{id}. Idempotent: deleting an
// unknown session still succeeds.
func (sh *SessionHandler) KillSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"remote_addr": r.RemoteAddr,
	}).Info("Kill session request")

	sh.registry.CloseSession(sessionID)

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /api/stats
func (sh *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sh.registry.Stats())
}

// RegisterRoutes registers all session-related routes
func (sh *SessionHandler) RegisterRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()

	apiRouter.HandleFunc("/sessions", sh.ListSessions).Methods("GET")
	apiRouter.HandleFunc("/sessions/{id}", sh.GetSession).Methods("GET")
	apiRouter.HandleFunc("/sessions/{id}", sh.KillSession).Methods("DELETE")
	apiRouter.HandleFunc("/stats", sh.GetStats).Methods("GET")

	logrus.Info("Session routes registered")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}
