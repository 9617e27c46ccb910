package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piyushgupta53/termbridge/internal/api"
	"github.com/piyushgupta53/termbridge/internal/config"
	"github.com/piyushgupta53/termbridge/internal/limits"
	"github.com/piyushgupta53/termbridge/internal/monitoring"
	"github.com/piyushgupta53/termbridge/internal/terminal"
	"github.com/piyushgupta53/termbridge/internal/ws"
)

const (
	AppName = "TermBridge"
	Version = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.SetupLogging(); err != nil {
		logrus.WithError(err).Fatal("Failed to setup logging")
	}

	logrus.WithFields(logrus.Fields{
		"app":     AppName,
		"version": Version,
	}).Info("Starting application")

	metrics := monitoring.NewCollector()

	registry := terminal.NewRegistry(terminal.RegistryConfig{
		MaxSessions:       cfg.MaxSessions,
		MinCreateInterval: cfg.MinCreateInterval,
		KillGracePeriod:   cfg.KillGracePeriod,
		IdleTimeout:       cfg.IdleTimeout,
		IdleSweepInterval: cfg.IdleSweepInterval,
		HistorySize:       cfg.HistorySize,
		Shell:             cfg.Shell,
	}, metrics)

	hub := ws.NewHub(registry, metrics)
	go hub.Run()

	resourceMonitor := limits.NewMonitor(limits.DefaultThresholds(), metrics)
	resourceMonitor.Start(30 * time.Second)

	server := api.NewServer(cfg)
	api.SetupRoutes(server, Version, registry, hub, metrics)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logrus.WithError(err).Fatal("Server failed to start")

	case sig := <-shutdown:
		logrus.WithField("signal", sig).Info("Shutdown signal received")

		// Stop accepting gateway traffic, then tear sessions down
		hub.Stop()
		registry.Shutdown()
		resourceMonitor.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logrus.WithError(err).Error("Failed to shutdown server gracefully")
		}

		logrus.Info("Server shutdown complete")
	}
}
