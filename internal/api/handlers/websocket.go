package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// allow all in dev
		// implement origin check in production
		return true
	},
}

// WebSocketHandler upgrades HTTP connections into gateway connections
type WebSocketHandler struct {
	hub *ws.Hub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// ServeHTTP implements http.Handler
func (wsh *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.UserAgent(),
	}).Info("WebSocket upgrade request")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).WithField("remote_addr", r.RemoteAddr).Error("Failed to upgrade WebSocket connection")
		return
	}

	connectionID := uuid.New().String()

	client := ws.NewClient(conn, wsh.hub, connectionID)
	wsh.hub.OnConnect(client)
	client.Run()

	logrus.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"remote_addr":   r.RemoteAddr,
	}).Info("WebSocket client connected")
}
