package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/Dosada05/matchmaking-system/config"
	"github.com/Dosada05/matchmaking-system/db"
	"github.com/Dosada05/matchmaking-system/handlers"
	"github.com/Dosada05/matchmaking-system/live"
	"github.com/Dosada05/matchmaking-system/repositories"
	api "github.com/Dosada05/matchmaking-system/routes"
	"github.com/Dosada05/matchmaking-system/services"
	"github.com/Dosada05/matchmaking-system/storage"
	"github.com/Dosada05/matchmaking-system/workers"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var archiver services.SeriesArchiver
	if cfg.R2Configured() {
		store, err := storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 storage", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewSeriesArchive(store)
		logger.Info("series archive storage initialized")
	} else {
		logger.Info("series archive storage disabled, R2 not configured")
	}

	wsHub := live.NewHub()
	go wsHub.Run()
	notifier := live.NewNotifier(wsHub)
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tenantRepo := repositories.NewPostgresTenantRepository(dbConn)
	configRepo := repositories.NewPostgresQueueConfigRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	rankRepo := repositories.NewPostgresRankBandRepository(dbConn)
	eligibilityRepo := repositories.NewPostgresEligibilityRepository(dbConn)
	activityRepo := repositories.NewPostgresActivityRepository(dbConn)
	txManager := repositories.NewSQLTxManager(dbConn)
	logger.Info("repositories initialized")

	authService := services.NewAuthService(userRepo)
	tenantService := services.NewTenantService(tenantRepo)
	configService := services.NewConfigService(configRepo, eligibilityRepo)
	ratingService := services.NewRatingService(ratingRepo, configRepo, services.DecayConfig{
		Step:              cfg.DecayStep,
		InactiveThreshold: cfg.DecayInactiveAfter,
	}, logger)
	roleService := services.NewDBRoleService(eligibilityRepo)
	rankService := services.NewRankService(rankRepo, ratingRepo, eligibilityRepo, roleService, logger)
	matchService := services.NewMatchService(
		matchRepo,
		ratingRepo,
		configRepo,
		txManager,
		ratingService,
		rankService,
		archiver,
		notifier,
		logger,
	)
	admissionService := services.NewAdmissionService(
		configRepo,
		eligibilityRepo,
		activityRepo,
		ratingService,
		matchService,
		notifier,
		logger,
	)
	logger.Info("services initialized")

	decayWorker := workers.NewDecayWorker(ratingService, cfg.DecayInterval, logger)
	if err := decayWorker.Start(); err != nil {
		logger.Error("failed to start decay worker", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := decayWorker.Stop(); err != nil {
			logger.Error("failed to stop decay worker", slog.Any("error", err))
		}
	}()

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tenantHandler := handlers.NewTenantHandler(tenantService)
	queueHandler := handlers.NewQueueHandler(admissionService)
	matchHandler := handlers.NewMatchHandler(matchService)
	statsHandler := handlers.NewStatsHandler(ratingService)
	configHandler := handlers.NewConfigHandler(configService, rankService, ratingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		tenantHandler,
		queueHandler,
		matchHandler,
		statsHandler,
		configHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
