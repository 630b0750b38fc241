package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/snake-draft-server/internal/api"
	"github.com/dom/snake-draft-server/internal/config"
	"github.com/dom/snake-draft-server/internal/replication"
	"github.com/dom/snake-draft-server/internal/repository"
	"github.com/dom/snake-draft-server/internal/repository/postgres"
	"github.com/dom/snake-draft-server/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Database is optional; without one, rooms live only in memory.
	var repos *repository.Repositories
	if cfg.DatabaseURL != "" {
		db, err := postgres.NewConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		repos = postgres.NewRepositories(db)
	} else {
		log.Println("DATABASE_URL not set, running without persistence")
	}

	roomCfg := replication.Config{
		HeartbeatInterval: cfg.HeartbeatInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		TickInterval:      cfg.PickTickInterval,
		AIPickDelay:       cfg.AIPickDelay,
	}
	var sessions repository.DraftSessionRepository
	if repos != nil {
		sessions = repos.DraftSession
	}
	hub := replication.NewHub(roomCfg, sessions)

	services := service.NewServices(hub, repos, cfg)

	router := api.NewRouter(services)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	hub.Stop()
	log.Println("Server stopped")
}
