package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/goblin-king/internal/config"
	"github.com/jwebster45206/goblin-king/internal/engine"
	"github.com/jwebster45206/goblin-king/internal/handlers"
	"github.com/jwebster45206/goblin-king/internal/logger"
	"github.com/jwebster45206/goblin-king/internal/middleware"
	"github.com/jwebster45206/goblin-king/internal/services"
	"github.com/jwebster45206/goblin-king/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Goblin King API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName,
		"rule_injection", cfg.RuleInjection)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.GameStateTTL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	// rule vectors share the redis instance with game state
	cache := services.NewRedisService(cfg.RedisURL, log)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	gk, err := engine.New(ctx, cfg, cache, log)
	if err != nil {
		log.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}
	if err := gk.InitModel(ctx); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", gk.Model)
		os.Exit(1)
	}

	mux := handlers.NewRouter(store, gk.NewManager, log)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
