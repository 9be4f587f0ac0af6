package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"discovery-client/internal/bootstrap"
	"discovery-client/internal/config"
	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/server"
	"discovery-client/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing, cfg.App.Environment, sysLogger)
	defer shutdownTracer(context.Background())

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, sysLogger)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting decision dispatcher...")
		if err := container.ConsumerService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	if container.NatsRelay != nil {
		go func() {
			log.Println("Background: Starting NATS relay...")
			if err := container.NatsRelay.Run(ctx); err != nil {
				log.Printf("Background Relay Error: %v", err)
			}
		}()
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 5. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
