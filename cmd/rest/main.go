package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"pet-aftercare-be/internal/bootstrap"
	"pet-aftercare-be/internal/config"
	"pet-aftercare-be/internal/server"
	"pet-aftercare-be/internal/service"
	"pet-aftercare-be/internal/tracer"
	"pet-aftercare-be/pkg/database"
)

// retryInterval is how often the scheduled refund retry sweep runs.
const retryInterval = 15 * time.Minute

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

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// Scheduled refund retry sweep. Goes through the queue so manual and
	// scheduled runs share the same single-consumer path.
	go func() {
		ticker := time.NewTicker(retryInterval)
		defer ticker.Stop()
		for range ticker.C {
			payload, _ := json.Marshal(service.RetryRunMessage{Trigger: "scheduled"})
			if err := container.QueuePublisher.Publish(context.Background(), payload); err != nil {
				log.Printf("Background: Failed to queue retry run: %v", err)
			}
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
