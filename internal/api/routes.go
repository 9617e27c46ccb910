package api

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/api/handlers"
	"github.com/piyushgupta53/termbridge/internal/monitoring"
	"github.com/piyushgupta53/termbridge/internal/terminal"
	"github.com/piyushgupta53/termbridge/internal/ws"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(server *Server, version string, registry *terminal.Registry, hub *ws.Hub, metrics *monitoring.Collector) {
	router := server.router

	healthHandler := handlers.NewHealthHandler(version)
	sessionHandler := handlers.NewSessionHandler(registry)
	wsHandler := handlers.NewWebSocketHandler(hub)

	router.Handle("/health", healthHandler).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	router.Handle("/ws", wsHandler).Methods("GET")

	sessionHandler.RegisterRoutes(router)

	logrus.Info("Routes configured successfully")

	router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		template, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		logrus.WithFields(logrus.Fields{
			"path":    template,
			"methods": methods,
		}).Debug("Registered route")
		return nil
	})
}
