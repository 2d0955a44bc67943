// Command sweeper runs a single expiration sweep and exits. It is meant to
// be invoked by an external scheduler (cron, systemd timer); the exit code
// tells the invoker whether the pass succeeded, and retries are the
// scheduler's job, not ours.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/clustershield/clustershield/internal/config"
	"github.com/clustershield/clustershield/internal/database"
	"github.com/clustershield/clustershield/internal/repository"
	"github.com/clustershield/clustershield/internal/sweeper"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Printf("sweeper: database: %v", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	n, err := sweeper.Sweep(ctx, repository.NewServiceRepo(db), time.Now().UTC())
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
		os.Exit(1)
	}
	log.Printf("sweeper: deactivated %d expired services", n)
}
