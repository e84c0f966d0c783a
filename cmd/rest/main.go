package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"scanguard-be/internal/bootstrap"
	"scanguard-be/internal/config"
	"scanguard-be/internal/server"
	"scanguard-be/internal/tracer"
	"scanguard-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services; SIGTERM cancels them cooperatively so an
	// in-flight resync sweep stops at the next account boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := container.AlertConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Alert Consumer Error: %v", err)
	}
	container.ResyncService.Start(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
