package main

import (
	"context"
	"log"
	"time"

	"pet-aftercare-be/internal/config"
	"pet-aftercare-be/internal/pkg/logger"
	"pet-aftercare-be/internal/repository/unitofwork"
	"pet-aftercare-be/internal/service"
	"pet-aftercare-be/pkg/database"
	"pet-aftercare-be/pkg/gateway"
	pktNats "pet-aftercare-be/pkg/nats"

	"github.com/fatih/color"
)

// Ops tool: runs one refund retry sweep from the command line, for when a
// gateway incident leaves a pile of failed refunds and nobody wants to wait
// for the next scheduled run.
func main() {
	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	uowFactory := unitofwork.NewRepositoryFactory(db)

	gatewayClient := gateway.NewMidtransClient(
		cfg.Gateway.ServerKey,
		cfg.Gateway.IsProduction,
		cfg.Gateway.TimeoutSeconds,
	)

	// Events still flow so customers get their emails; a missing NATS just
	// degrades to log-only.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		color.Yellow("Warning: NATS unavailable, events will not be published: %v", err)
		natsPub = nil
	}
	publisher := service.NewPublisherService(natsPub, sysLogger)

	retryService := service.NewRefundRetryService(uowFactory, gatewayClient, publisher, sysLogger, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	color.Cyan("Running refund retry sweep...")

	result, err := retryService.RetryFailedRefunds(ctx)
	if err != nil {
		color.Red("Retry sweep failed: %v", err)
		return
	}

	if result.Attempted == 0 {
		color.Green("Nothing to retry.")
		return
	}

	color.White("Attempted:    %d", result.Attempted)
	color.Green("Succeeded:    %d", result.Succeeded)
	if result.StillFailed > 0 {
		color.Red("Still failed: %d (check the staff dashboard for manual processing)", result.StillFailed)
	} else {
		color.Green("Still failed: 0")
	}
}
