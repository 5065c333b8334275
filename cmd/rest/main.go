package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai-mail-workspace-be/internal/bootstrap"
	"ai-mail-workspace-be/internal/config"
	"ai-mail-workspace-be/internal/pkg/logger"
	"ai-mail-workspace-be/internal/server"
	"ai-mail-workspace-be/internal/tracer"
	"ai-mail-workspace-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, database.Options{
		LogLevel:      cfg.Database.LogLevel,
		SlowThreshold: cfg.Database.SlowThreshold,
		Logger:        sysLogger,
	})
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go container.WebSocketHub.Run(ctx)

	log.Println("Background: Starting Consumer Service...")
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Printf("Background Consumer Error: %v", err)
	}

	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
