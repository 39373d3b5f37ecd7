package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/invigil/invigil-backend/internal/artifact"
	"github.com/invigil/invigil-backend/internal/config"
	"github.com/invigil/invigil-backend/internal/database"
	"github.com/invigil/invigil-backend/internal/handler"
	"github.com/invigil/invigil-backend/internal/logger"
	"github.com/invigil/invigil-backend/internal/notification"
	"github.com/invigil/invigil-backend/internal/proctoring"
	"github.com/invigil/invigil-backend/internal/repository"
	"github.com/invigil/invigil-backend/internal/router"
	"github.com/invigil/invigil-backend/internal/service"
	"github.com/invigil/invigil-backend/internal/validator"
	"github.com/invigil/invigil-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Invigil Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	artifactRepo := repository.NewArtifactRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// ─── Proctoring Pipeline Components ───────────────────────────────
	registry := proctoring.NewRegistry()
	sink := proctoring.NewRedisSink(rdb)

	var uploader artifact.Uploader
	if cfg.ArtifactEndpoint != "" {
		uploader = artifact.NewHTTPUploader(cfg.ArtifactEndpoint, artifact.StaticCredentials(cfg.ArtifactToken))
	} else {
		uploader = artifact.NewFSUploader(cfg.ArtifactDir)
	}

	dispatcher := notification.NewSMTPDispatcher(
		cfg.SMTPHost, cfg.SMTPAddr,
		cfg.SMTPFromName, cfg.SMTPFromAddr,
		cfg.SMTPUsername, cfg.SMTPPassword,
	)
	escalator := proctoring.NewEscalator(uploader, dispatcher)

	var anomaly proctoring.Detector
	if cfg.ClassifierPath != "" {
		classifier, err := proctoring.LoadClassifier(cfg.ClassifierPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.ClassifierPath).Msg("Anomaly classifier unavailable, running presence checks only")
		} else {
			anomaly = classifier
		}
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	sessionService := service.NewSessionService(submissionRepo, examRepo, registry, rdb)
	examService := service.NewExamService(examRepo, submissionRepo, rdb)
	proctoringService := service.NewProctoringService(
		cfg, submissionRepo, eventRepo, artifactRepo, userRepo,
		sessionService, registry, sink, escalator, anomaly,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:       handler.NewExamHandler(examService, sessionService),
		Proctoring: handler.NewProctoringHandler(proctoringService),
		WS:         handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	eventWorker := worker.NewEventWorker(pool, rdb, log)
	go eventWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop active monitoring runs; their pipelines finish reports on
	// a detached context.
	registry.StopAll()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
