package main

import (
	"context"
	"log"
	"time"

	"github.com/ucmarket/backend/internal/config"
	"github.com/ucmarket/backend/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db := database.InitDatabase(cfg.Database)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("[MIGRATE] Schema applied to %s database", cfg.Database.Driver)
}
