package main

import (
	"context"
	"log"

	"github.com/philly/ipcbus/internal/server"
)

func main() {
	ctx := context.Background()

	// Dial the coordinator and build the satellite bus
	app, cleanup, err := server.InitializeSatellite(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize satellite: %v", err)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Satellite stopped with error: %v", err)
	}
}
