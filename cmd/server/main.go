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
	"github.com/stemsi/admissions-backend/internal/cache"
	"github.com/stemsi/admissions-backend/internal/config"
	"github.com/stemsi/admissions-backend/internal/database"
	"github.com/stemsi/admissions-backend/internal/events"
	"github.com/stemsi/admissions-backend/internal/handler"
	"github.com/stemsi/admissions-backend/internal/logger"
	"github.com/stemsi/admissions-backend/internal/middleware"
	"github.com/stemsi/admissions-backend/internal/notify"
	"github.com/stemsi/admissions-backend/internal/repository"
	"github.com/stemsi/admissions-backend/internal/router"
	"github.com/stemsi/admissions-backend/internal/service"
	"github.com/stemsi/admissions-backend/internal/validator"
	"github.com/stemsi/admissions-backend/internal/worker"
)

//go:generate swag init -d ../.. -g cmd/server/main.go -o ../../docs --outputTypes go,json

// @title Admissions Backend API
// @version 1.0
// @description Test versioning, question assembly, answer recording and reporting for admissions tests.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting admissions backend")

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

	// ─── Event Bus ─────────────────────────────────────────────────────
	bus, err := events.NewBus(events.Config{
		KafkaBrokers:  cfg.KafkaBrokers,
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, logger.NewWatermillAdapter(log))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event bus")
	}
	defer bus.Close()

	// ─── Notifications ─────────────────────────────────────────────────
	mailer, err := notify.NewSESMailer(ctx, cfg.SESRegion, cfg.SESSender)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure SES")
	}
	reporter := notify.NewReporter(mailer, cfg.ReportTo, cfg.ReportCc, cfg.ReportSubject)
	sms := notify.NewExotelSender(notify.ExotelConfig{
		BaseURL:  cfg.ExotelBaseURL,
		SID:      cfg.ExotelSID,
		Token:    cfg.ExotelToken,
		SenderID: cfg.ExotelSenderID,
	}, nil, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	questionRepo := repository.NewQuestionRepository(pool)
	passageRepo := repository.NewPassageRepository(pool)
	bucketRepo := repository.NewBucketRepository(pool)
	versionRepo := repository.NewVersionRepository(pool)
	keyRepo := repository.NewEnrolmentKeyRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	metricRepo := repository.NewMetricRepository(pool)

	passageCache := cache.NewPassageCache(rdb, cfg.PassageCacheTTL, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, adminRepo)
	versionService := service.NewVersionService(versionRepo, questionRepo, bucketRepo, bus, log)
	assembler := service.NewAssembler(questionRepo, passageRepo, bucketRepo, keyRepo, passageCache, bus, log)
	studentService := service.NewStudentService(studentRepo, keyRepo, bus, log)
	attemptService := service.NewAttemptService(keyRepo, assembler, studentService, bus, log)
	reportService := service.NewReportService(versionRepo, assembler, attemptRepo, log)
	bankService := service.NewQuestionBankService(questionRepo, passageRepo, bucketRepo, passageCache, log)
	metricsService := service.NewMetricsService(metricRepo, keyRepo, reporter, log)
	monitorService := service.NewMonitorService(keyRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService, log),
		Version:      handler.NewVersionHandler(versionService, assembler, reportService, log),
		QuestionBank: handler.NewQuestionBankHandler(bankService, log),
		EnrolmentKey: handler.NewEnrolmentKeyHandler(assembler, attemptService, log),
		Student:      handler.NewStudentHandler(studentService, log),
		Monitor:      handler.NewMonitorHandler(rdb, monitorService, metricsService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	eventRouter, err := worker.NewEventRouter(
		bus.Subscriber(),
		bus.Logger(),
		worker.NewSMSDispatcher(studentRepo, sms, log),
		worker.NewMonitorRelay(rdb, log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event router")
	}
	scheduler, err := worker.NewMetricsScheduler(cfg.MetricsCron, metricsService, log)
	if err != nil {
		log.Fatal().Err(err).Str("spec", cfg.MetricsCron).Msg("Invalid metrics cron spec")
	}
	studentLimiter := middleware.NewRateLimiter(cfg.StudentRateLimit, cfg.StudentRateBurst)

	workers.Add(3)
	go func() {
		defer workers.Done()
		if err := eventRouter.Start(workerCtx); err != nil {
			log.Error().Err(err).Msg("Event router stopped")
		}
	}()
	go func() {
		defer workers.Done()
		scheduler.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		studentLimiter.StartCleanup(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, studentLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
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

	// 2. Stop consumers and the scheduler, letting a running metrics job finish.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
