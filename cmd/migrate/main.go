package main

import (
	"log"
	"os"

	"pet-aftercare-be/internal/model"
	"pet-aftercare-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting Authoritative GORM Migration...")

	// 3. Pre-Migration: Extensions (things AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.Booking{},
		&model.PaymentTransaction{},
		&model.RefundTransaction{},
		&model.GatewayEvent{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: Constraints & Views
	log.Println("Step 3: Creating Constraints and Views...")

	postMigrationSQL := []string{
		// One active refund per booking, enforced at the database no matter
		// how many instances race.
		`CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_refund_per_booking
		 ON refund_transactions (booking_id)
		 WHERE status IN ('pending', 'processing');`,

		// Staff-side financial history per booking.
		`CREATE OR REPLACE VIEW booking_payment_history AS
		 SELECT b.id AS booking_id, b.customer_name, b.service_name,
		        pt.id AS transaction_id, pt.amount, pt.payment_method, pt.status,
		        pt.provider_transaction_id, pt.created_at AS paid_at
		 FROM bookings b
		 JOIN payment_transactions pt ON pt.booking_id = b.id
		 ORDER BY pt.created_at DESC;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
