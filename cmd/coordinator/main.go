package main

import (
	"context"
	"log"

	"github.com/philly/ipcbus/internal/server"
)

func main() {
	// Initialize the coordinator with all dependencies wired
	app, cleanup, err := server.InitializeCoordinator()
	if err != nil {
		log.Fatalf("Failed to initialize coordinator: %v", err)
	}
	defer cleanup()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("Failed to run coordinator: %v", err)
	}
}
