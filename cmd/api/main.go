// Package main provides the entry point for the Booklog server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/booklog/booklog-server/internal/di"
	"github.com/booklog/booklog-server/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// Dependents shut down before their dependencies: the HTTP server and
	// trackers stop before the search index and the store are closed.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Happy reading")
}
