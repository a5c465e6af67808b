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

	"github.com/therapease/booking-server-go/internal/config"
	"github.com/therapease/booking-server-go/internal/database"
	"github.com/therapease/booking-server-go/internal/events"
	"github.com/therapease/booking-server-go/internal/handler"
	"github.com/therapease/booking-server-go/internal/jobs"
	"github.com/therapease/booking-server-go/internal/mail"
	"github.com/therapease/booking-server-go/internal/middleware"
	"github.com/therapease/booking-server-go/internal/notify"
	"github.com/therapease/booking-server-go/internal/redis"
	"github.com/therapease/booking-server-go/internal/repository"
	"github.com/therapease/booking-server-go/internal/service"
	"github.com/therapease/booking-server-go/internal/token"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

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

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run schema migration")
	}
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db.DB)
	seriesRepo := repository.NewSeriesRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)
	therapistRepo := repository.NewTherapistRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	bus := events.NewBus()
	defer bus.Close()

	mailer := mail.New(cfg)
	notifier := notify.New(mailer, cfg.ServerBaseURL, cfg.MailFromName)
	notifier.Register(bus)

	bookingTokens := token.NewIssuer(cfg.JWTSecret)
	authTokens := token.NewAuthIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret,
		config.AccessTokenTTL, config.RefreshTokenTTL)

	sessionService := service.NewSessionService(
		db, sessionRepo, seriesRepo, templateRepo, therapistRepo, userRepo,
		bookingTokens, bus,
		cfg.MaxSessionsUserPerDay, cfg.SeriesLengthDays,
	)
	userService := service.NewUserService(userRepo, authTokens, bus, redisClient)
	therapistService := service.NewTherapistService(therapistRepo)
	templateService := service.NewTemplateService(templateRepo, therapistRepo)
	seriesService := service.NewSeriesService(seriesRepo)

	authMiddleware := middleware.NewAuthMiddleware(authTokens)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	isProduction := os.Getenv("FLY_APP_NAME") != ""

	sessionHandler := handler.NewSessionHandler(sessionService, authMiddleware.Handler, authMiddleware.RequireAdmin)
	userHandler := handler.NewUserHandler(userService, authMiddleware.Handler, authMiddleware.RequireAdmin, isProduction)
	therapistHandler := handler.NewTherapistHandler(therapistService, authMiddleware.Handler, authMiddleware.RequireAdmin)
	templateHandler := handler.NewTemplateHandler(templateService, authMiddleware.Handler, authMiddleware.RequireAdmin)
	seriesHandler := handler.NewSeriesHandler(seriesService, authMiddleware.Handler, authMiddleware.RequireAdmin)

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

	r.Mount("/session", sessionHandler.Routes())
	r.Mount("/user", userHandler.Routes())
	r.Mount("/therapist", therapistHandler.Routes())
	r.Mount("/template", templateHandler.Routes())
	r.Mount("/series", seriesHandler.Routes())

	completionJob := jobs.NewCompletionJob(sessionRepo, config.CompletionJobInterval)
	completionJob.Start()
	defer completionJob.Stop()

	reminderJob := jobs.NewReminderJob(sessionRepo, userRepo, bus,
		config.ReminderWindow, config.ReminderJobInterval)
	reminderJob.Start()
	defer reminderJob.Stop()

	pruneJob := jobs.NewPruneJob(sessionRepo, config.PruneRetention, config.PruneJobInterval)
	pruneJob.Start()
	defer pruneJob.Stop()

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
