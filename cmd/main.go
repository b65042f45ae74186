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

	"github.com/Dosada05/bgmi-arena/config"
	"github.com/Dosada05/bgmi-arena/db"
	_ "github.com/Dosada05/bgmi-arena/docs"
	"github.com/Dosada05/bgmi-arena/handlers"
	"github.com/Dosada05/bgmi-arena/middleware"
	"github.com/Dosada05/bgmi-arena/repositories"
	api "github.com/Dosada05/bgmi-arena/routes"
	"github.com/Dosada05/bgmi-arena/services"
	"github.com/Dosada05/bgmi-arena/storage"
	"github.com/go-chi/chi/v5"
)

// @title BGMI Arena API
// @version 1.0
// @description Турниры, команды, матчи и рейтинги BGMI.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.RunMigrations(migrateCtx, dbConn)
		cancel()
		if err != nil {
			logger.Error("failed to apply database migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	// Загрузчик файлов (Cloudflare R2) необязателен: без него загрузки отвечают 503
	var uploader storage.FileUploader
	if cfg.UploadsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, file uploads are disabled")
	}

	// Инициализация репозиториев
	transactor := repositories.NewTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	memberRepo := repositories.NewPostgresTeamMemberRepository(dbConn)
	invitationRepo := repositories.NewPostgresInvitationRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	resultRepo := repositories.NewPostgresMatchResultRepository(dbConn)
	chatRepo := repositories.NewPostgresChatRepository(dbConn)
	replayRepo := repositories.NewPostgresReplayRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	userService := services.NewUserService(userRepo)
	tournamentService := services.NewTournamentService(
		transactor,
		tournamentRepo,
		registrationRepo,
		matchRepo,
		resultRepo,
		teamRepo,
		memberRepo,
		userRepo,
		uploader,
		logger,
	)
	registrationService := services.NewRegistrationService(transactor, tournamentRepo, teamRepo, registrationRepo, uploader, logger)
	teamService := services.NewTeamService(transactor, teamRepo, memberRepo, registrationRepo, tournamentRepo, resultRepo, uploader, logger)
	invitationService := services.NewInvitationService(transactor, invitationRepo, teamRepo, memberRepo, userRepo, uploader, logger)
	matchService := services.NewMatchService(
		transactor,
		matchRepo,
		resultRepo,
		tournamentRepo,
		teamRepo,
		memberRepo,
		userRepo,
		registrationRepo,
		chatRepo,
		uploader,
		logger,
	)
	chatService := services.NewChatService(chatRepo, matchRepo)
	replayService := services.NewReplayService(replayRepo, matchRepo, tournamentRepo)
	rankingService := services.NewRankingService(userRepo, teamRepo, tournamentRepo, matchRepo, resultRepo, uploader)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	routeHandlers := api.Handlers{
		User:       handlers.NewUserHandler(teamService, invitationService),
		Tournament: handlers.NewTournamentHandler(tournamentService, registrationService, matchService, rankingService),
		Team:       handlers.NewTeamHandler(teamService),
		Invitation: handlers.NewInvitationHandler(invitationService),
		Match:      handlers.NewMatchHandler(matchService, chatService),
		Replay:     handlers.NewReplayHandler(replayService),
		Ranking:    handlers.NewRankingHandler(rankingService),
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		middleware.Authenticate(userService, cfg.JWTSecretKey),
		cfg.CORSAllowedOrigins,
		routeHandlers,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
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

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
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
