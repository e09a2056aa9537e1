package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/audit"
	"github.com/streamgate/access-server-go/internal/config"
	"github.com/streamgate/access-server-go/internal/database"
	"github.com/streamgate/access-server-go/internal/handler"
	"github.com/streamgate/access-server-go/internal/jobs"
	"github.com/streamgate/access-server-go/internal/middleware"
	"github.com/streamgate/access-server-go/internal/redis"
	"github.com/streamgate/access-server-go/internal/repository"
	"github.com/streamgate/access-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	probeCtx, probeCancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	caps, err := repository.DetectCapabilities(probeCtx, db.DB)
	probeCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to probe store capabilities")
	}
	log.Info().Bool("supportsUsageCap", caps.SupportsUsageCap).Msg("store capabilities resolved")

	codeRepo := repository.NewAccessCodeRepository(db.DB)
	logRepo := repository.NewUsageLogRepository(db.DB)

	recorder := audit.NewRecorder(logRepo)

	generatorService := service.NewGeneratorService(codeRepo, recorder, caps)
	validatorService := service.NewValidatorService(codeRepo, logRepo, recorder, caps)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	adminAuthMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminToken)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	accessHandler := handler.NewAccessCodeHandler(
		generatorService, validatorService, rateLimiter, adminAuthMiddleware.Handler,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api/codes", func(r chi.Router) {
		r.Mount("/", accessHandler.Routes())
	})

	sweepJob := jobs.NewSweepJob(validatorService, logRepo, cfg.SweepInterval(), cfg.LogRetention())
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
