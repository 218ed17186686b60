package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/events"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/router"
	"github.com/stemsi/exstem-proctor/internal/scorer"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stemsi/exstem-proctor/internal/worker"
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
		Msg("Starting ExStem Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	if err := validator.Setup(); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up validator")
	}

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
	store := repository.NewPostgresStore(pool)

	// ─── Event Bus ─────────────────────────────────────────────────────
	publisher, err := events.NewPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		Logger:       log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	bus := events.NewBus(rdb, publisher, cfg.EventsTopic, log)
	defer bus.Close()

	// ─── External Scorer ───────────────────────────────────────────────
	textScorer, err := scorer.NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create text scorer")
	}
	defer textScorer.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, store, log)
	examService := service.NewExamService(store, log)
	questionService := service.NewQuestionService(store)
	sessionService := service.NewExamSessionService(store, bus, rdb, cfg.SessionGrace, log)
	riskService := service.NewRiskService(store, sessionService, bus, log)
	cameraService := service.NewCameraCheckService(store, riskService, bus, log)
	integrityService := service.NewIntegrityService(store, textScorer, log)
	analysisService := service.NewAnalysisService(textScorer, log)
	studentService := service.NewStudentService(store)
	monitorService := service.NewMonitorService(store, rdb)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		StudentPortal: handler.NewStudentPortalHandler(examService, sessionService, riskService, cameraService),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService),
		Exam:          handler.NewExamHandler(examService),
		Question:      handler.NewQuestionHandler(questionService),
		Proctoring:    handler.NewProctoringHandler(sessionService, cameraService, integrityService, analysisService),
		Monitor:       handler.NewMonitorHandler(monitorService, log),
		WS:            handler.NewWSHandler(sessionService, riskService, cfg.AllowedOrigins, log),
		System:        handler.NewSystemHandler(database.NewHealth(pool, rdb), rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	reportWorker := worker.NewReportWorker(rdb, integrityService, cfg.ReportRetryAttempts, log)
	timeoutWorker := worker.NewTimeoutWorker(sessionService, cfg.TimeoutSweepEvery, integrity.AutoSubmitThreshold, log)

	for _, start := range []func(context.Context){reportWorker.Start, timeoutWorker.Start} {
		workers.Add(1)
		go func(start func(context.Context)) {
			defer workers.Done()
			start(workerCtx)
		}(start)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg, rdb, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop background workers; queued report jobs stay in Redis.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
