package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctor-agent/internal/backend"
	"github.com/SAP-F-2025/proctor-agent/internal/cache"
	"github.com/SAP-F-2025/proctor-agent/internal/clock"
	"github.com/SAP-F-2025/proctor-agent/internal/config"
	"github.com/SAP-F-2025/proctor-agent/internal/grouping"
	"github.com/SAP-F-2025/proctor-agent/internal/handlers"
	"github.com/SAP-F-2025/proctor-agent/internal/integrity"
	"github.com/SAP-F-2025/proctor-agent/internal/metrics"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories"
	"github.com/SAP-F-2025/proctor-agent/internal/repositories/postgres"
	"github.com/SAP-F-2025/proctor-agent/internal/session"
	"github.com/SAP-F-2025/proctor-agent/internal/utils"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
	"github.com/SAP-F-2025/proctor-agent/pkg"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logCloser := pkg.NewLogger(cfg)
	defer logCloser.Close()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Proctor agent stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics.Init()

	participantID, err := backend.ParticipantID(cfg.ParticipantToken)
	if err != nil {
		logger.Warn("Participant id unavailable, questions will use the default option order", "error", err)
	}

	var api backend.Backend = backend.New(backend.Config{
		BaseURL: cfg.BackendURL,
		Token:   cfg.ParticipantToken,
		Timeout: cfg.BackendTimeout,
	}, logger)

	if cfg.RedisURL != "" {
		client, err := pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Question cache disabled", "error", err)
		} else {
			defer client.Close()
			api = backend.NewCachedBackend(api, cache.NewRedisCache(client, logger), cfg.QuestionCacheTTL, logger)
			logger.Info("Question cache enabled", "ttl", cfg.QuestionCacheTTL)
		}
	}

	var auditRepo repositories.ProctoringEventRepository
	var recorder session.AuditRecorder
	if cfg.DatabaseURL != "" {
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		auditRepo = postgres.NewProctoringEventPostgreSQL(db)
		recorder = auditRepo
		logger.Info("Proctoring audit log enabled")
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	clk := clock.Real()
	surface := integrity.NewRemoteSurface(logger)
	monitor := integrity.NewMonitor(surface, clk, integrity.Config{
		MaxExits:     cfg.MaxFullscreenExits,
		ReentryDelay: cfg.FullscreenReentryDelay,
	}, logger)

	controller := session.NewController(session.Dependencies{
		Backend:   api,
		Monitor:   monitor,
		Clock:     clk,
		Publisher: publisher,
		Recorder:  recorder,
		Logger:    logger,
	}, session.Config{
		ParticipantID:      participantID,
		MaxExits:           cfg.MaxFullscreenExits,
		TimeWarningSeconds: cfg.TimeWarningSeconds,
		Grouping:           grouping.Options{PreserveOrder: cfg.GroupingPreserveOrder},
	})
	defer controller.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandlerManager(controller, surface, auditRepo, validator.New(), utils.NewSlogLogger(logger)).
		SetupRoutes(router)

	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the assignment list up front so the UI opens on it.
	if _, err := controller.Refresh(ctx); err != nil {
		logger.Warn("Initial assignment refresh failed", "error", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Proctor agent listening", "addr", srv.Addr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down proctor agent")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Proctor agent exited")
	return nil
}
