package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"upload-service/internal/api"
	"upload-service/internal/config"
	"upload-service/internal/instrument"
	"upload-service/internal/mirror"
	"upload-service/internal/storage"
	"upload-service/internal/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, storage: %s)", cfg.Server.Port, cfg.Storage.Location)

	// 2. Create storage root
	svc, err := storage.New(storage.Config{
		Location:    cfg.Storage.Location,
		MaxFileSize: cfg.Storage.MaxFileSize,
	})
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}
	if err := svc.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Storage ready at %s", svc.Root())

	// 3. Event store (only when instrumentation is on)
	var sink instrument.Sink
	var events *instrument.EventHandler
	if cfg.Instrumentation.Enabled {
		db, err := store.New(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to event database: %v", err)
		}
		defer db.Close()
		if err := db.Bootstrap(ctx); err != nil {
			log.Fatalf("Failed to bootstrap event table: %v", err)
		}

		buffer := instrument.NewEventBuffer(db.DB, db.Dialect, cfg.Instrumentation.BufferSize, cfg.Instrumentation.FlushIntervalMs)
		defer buffer.Stop()
		sink = buffer

		instrument.StartCleanup(ctx, db.DB, db.Dialect, cfg.Instrumentation.RetentionDays, time.Hour)
		events = instrument.NewEventHandler(db.DB, db.Dialect)
		log.Printf("Instrumentation enabled (%s)", db.Dialect.Name())
	}

	// 4. Optional bucket mirror
	var fileMirror api.Mirror
	if cfg.Mirror.Enabled {
		m, err := mirror.New(ctx, cfg.Mirror)
		if err != nil {
			log.Fatalf("Failed to connect to mirror: %v", err)
		}
		fileMirror = m
		log.Printf("Mirroring uploads to bucket %s at %s", m.Bucket(), cfg.Mirror.Endpoint)
	}

	// 5. Create Fiber app
	app := api.NewApp(cfg.Server.BodyLimit, instrument.Middleware(cfg.Instrumentation, sink))

	// 6. Register routes
	api.RegisterFileRoutes(app, api.NewFileHandler(svc, fileMirror))
	if events != nil {
		events.RegisterRoutes(app)
	}

	// 7. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Printf("ERROR: server stopped: %v", err)
	}
}
