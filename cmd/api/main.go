package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rollcall-io/attendance-api/internal/config"
	"github.com/rollcall-io/attendance-api/internal/database"
	"github.com/rollcall-io/attendance-api/internal/handler"
	"github.com/rollcall-io/attendance-api/internal/middleware"
	"github.com/rollcall-io/attendance-api/internal/repository"
	"github.com/rollcall-io/attendance-api/internal/router"
	"github.com/rollcall-io/attendance-api/internal/service"
	"github.com/rollcall-io/attendance-api/pkg/facematch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	verifier, err := facematch.New(facematch.Config{
		BaseURL:     cfg.FaceMatchURL,
		BearerToken: cfg.FaceMatchToken,
		Timeout:     cfg.FaceMatchTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create face-match client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewSessionRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	eventStream := service.NewEventStream(natsConn, cfg.EventChannelBase, logger)
	roster := service.NewStaticRosterProvider(nil)

	sessionService := service.NewSessionService(sessionRepo, statusRepo, ledgerRepo, eventStream, validate, logger)
	statusService := service.NewStatusService(statusRepo, ledgerRepo, validate, logger)
	ledgerService := service.NewLedgerService(sessionRepo, statusRepo, ledgerRepo, eventStream, validate, logger)
	checkinService := service.NewCheckinService(sessionRepo, statusRepo, credentialRepo, ledgerService, verifier, eventStream, validate, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, sessionRepo, ledgerService, validate, logger)
	reportService := service.NewReportService(sessionRepo, statusRepo, ledgerRepo, roster, redisClient, cfg.SummaryCacheTTL, logger)

	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	statusHandler := handler.NewStatusHandler(statusService, logger)
	ledgerHandler := handler.NewLedgerHandler(ledgerService, logger)
	checkinHandler := handler.NewCheckinHandler(checkinService, eventStream, logger)
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, logger)
	reportHandler := handler.NewReportHandler(reportService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    16 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:  sessionHandler,
		StatusHandler:   statusHandler,
		LedgerHandler:   ledgerHandler,
		CheckinHandler:  checkinHandler,
		FeedbackHandler: feedbackHandler,
		ReportHandler:   reportHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	eventStream.Start(streamCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
