package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/matchpoint-hq/backend/brackets"
	"github.com/matchpoint-hq/backend/config"
	"github.com/matchpoint-hq/backend/db"
	"github.com/matchpoint-hq/backend/handlers"
	"github.com/matchpoint-hq/backend/repositories"
	"github.com/matchpoint-hq/backend/routes"
	"github.com/matchpoint-hq/backend/services"
	"github.com/matchpoint-hq/backend/storage"
)

const migrationsSource = "file://migrations"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
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

	if err := db.Migrate(dbConn, migrationsSource); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	if !cfg.R2Enabled() {
		logger.Error("Cloudflare R2 configuration is incomplete")
		os.Exit(1)
	}
	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
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

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	orgRepo := repositories.NewPostgresOrganizationRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	divisionRepo := repositories.NewPostgresDivisionRepository(dbConn)
	involvementRepo := repositories.NewPostgresInvolvementRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	setRepo := repositories.NewPostgresSetRepository(dbConn)

	clock := clockwork.NewRealClock()
	jwtSecret := []byte(cfg.JWTSecretKey)

	authService := services.NewAuthService(userRepo, jwtSecret, cfg.JWTTokenTTL, clock)
	userService := services.NewUserService(userRepo)
	orgService := services.NewOrganizationService(orgRepo, uploader, logger)
	playerService := services.NewPlayerService(playerRepo, uploader, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, orgRepo, divisionRepo, uploader, logger)
	divisionService := services.NewDivisionService(divisionRepo, tournamentRepo, matchRepo, clock, logger)
	involvementService := services.NewInvolvementService(involvementRepo, divisionRepo, playerRepo, matchRepo, clock, logger)
	matchService := services.NewMatchService(matchRepo, setRepo, divisionRepo, involvementRepo, wsHub)
	scoreService := services.NewScoreService(dbConn, matchRepo, setRepo, clock, logger, wsHub)
	bracketService := services.NewBracketService(dbConn, divisionRepo, involvementRepo, matchRepo, setRepo, playerRepo, clock, logger, wsHub)
	logger.Info("services initialized")

	router := routes.InitRoutes(routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		User:         handlers.NewUserHandler(userService),
		Organization: handlers.NewOrganizationHandler(orgService),
		Player:       handlers.NewPlayerHandler(playerService),
		Tournament:   handlers.NewTournamentHandler(tournamentService, divisionService),
		Division:     handlers.NewDivisionHandler(divisionService, involvementService, bracketService),
		Involvement:  handlers.NewInvolvementHandler(involvementService),
		Match:        handlers.NewMatchHandler(matchService, scoreService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}, jwtSecret)
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
		logger.Info("server stopped")
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
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
