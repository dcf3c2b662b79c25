package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mpeters88/chatdesk/internal/agent"
	"github.com/mpeters88/chatdesk/internal/api/router"
	"github.com/mpeters88/chatdesk/internal/app/bootstrap"
	"github.com/mpeters88/chatdesk/internal/availability"
	"github.com/mpeters88/chatdesk/internal/cache"
	appconfig "github.com/mpeters88/chatdesk/internal/config"
	"github.com/mpeters88/chatdesk/internal/http/handlers"
	"github.com/mpeters88/chatdesk/internal/knowledge"
	"github.com/mpeters88/chatdesk/internal/observability/metrics"
	"github.com/mpeters88/chatdesk/pkg/logging"
)

func main() {
	// A .env file is optional outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting chatdesk API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	sqlDB, err := bootstrap.OpenDatabase(cfg)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	pool, err := bootstrap.OpenPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to open pgx pool", "error", err)
		os.Exit(1)
	}

	conversationMetrics := metrics.NewConversationMetrics(nil)

	modeStore := agent.NewModeStore(redisClient, logger)
	hub := agent.NewHub(modeStore, nil, logger)

	orch, llmCleanup, err := bootstrap.BuildOrchestrator(ctx, cfg, bootstrap.ConversationDeps{
		Redis:     redisClient,
		DB:        sqlDB,
		Pool:      pool,
		Agents:    modeStore,
		AgentEcho: hub,
		Metrics:   conversationMetrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build conversation pipeline", "error", err)
		os.Exit(1)
	}
	defer llmCleanup()
	hub.SetSink(orch)

	var (
		adminKnowledge *handlers.AdminKnowledgeHandler
		cacheSvc       *cache.Service
	)
	if redisClient != nil {
		cacheSvc = cache.New(redisClient, logger)
		adminKnowledge = handlers.NewAdminKnowledgeHandler(
			knowledge.NewRedisRepository(redisClient),
			knowledge.NewRedisFAQStore(redisClient),
			cacheSvc,
			logger,
		)
	}

	var adminAvailability *handlers.AdminAvailabilityHandler
	if pool != nil {
		adminAvailability = handlers.NewAdminAvailabilityHandler(availability.NewStore(pool, logger), logger)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        handlers.NewChatHandler(orch, logger),
		AdminKnowledge:     adminKnowledge,
		AdminAvailability:  adminAvailability,
		AgentHub:           hub,
		MetricsHandler:     promhttp.Handler(),
		HealthCheck:        healthCheck,
		APIKeys:            bootstrap.ParseAPIKeys(cfg.ChatAPIKeys),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: []string{"*"},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if pool != nil {
		pool.Close()
	}
	if sqlDB != nil {
		_ = sqlDB.Close()
	}

	logger.Info("server stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
