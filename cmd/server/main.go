package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/clustershield/clustershield/internal/agent"
	"github.com/clustershield/clustershield/internal/config"
	"github.com/clustershield/clustershield/internal/database"
	"github.com/clustershield/clustershield/internal/handler"
	"github.com/clustershield/clustershield/internal/queue"
	"github.com/clustershield/clustershield/internal/repository"
	"github.com/clustershield/clustershield/internal/router"
	"github.com/clustershield/clustershield/internal/sweeper"
)

func main() {
	_ = godotenv.Load() // best-effort .env for local development
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Repositories share the one pool.
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	offers := repository.NewOfferRepo(db)
	services := repository.NewServiceRepo(db)
	servers := repository.NewServerRepo(db)
	clusters := repository.NewClusterRepo(db)
	invoices := repository.NewInvoiceRepo(db)

	agentClient := agent.New(cfg.AgentPort, cfg.AgentInstallTimeout, cfg.AgentOpTimeout)

	authHandler := handler.NewAuthHandler(cfg, users, sessions)
	billingHandler := handler.NewBillingHandler(offers, services, invoices, clusters)
	clusterHandler := handler.NewClusterHandler(services, servers, clusters, agentClient)

	rdb := config.NewRedisClient() // nil disables rate limiting

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, cfg, rdb, sessions, authHandler, billingHandler, clusterHandler)

	// Background workers: the notification consumer drains the queues the
	// handlers publish to, and the sweeper deactivates expired services on
	// a fixed interval independent of request traffic.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notify-consumer: stopped: %v", err)
		}
	}()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx, services, cfg.SweepInterval)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
