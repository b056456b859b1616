package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain/account"
	"github.com/medvault/medvault/internal/domain/appointment"
	"github.com/medvault/medvault/internal/domain/medicalrecord"
	"github.com/medvault/medvault/internal/domain/onboarding"
	"github.com/medvault/medvault/internal/domain/profile"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/middleware"
	"github.com/medvault/medvault/internal/platform/notification"
	"github.com/medvault/medvault/internal/platform/tokenstore"
)

const sweepInterval = time.Minute

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Reset tokens
	tokens, closeTokens, err := newTokenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to token store")
	}
	defer closeTokens()

	e, err := newServer(cfg, logger, pool, tokens, newEmailSender(cfg, logger))
	if err != nil {
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newTokenStore uses Redis when REDIS_URL is set and an in-process store
// otherwise. The in-process store loses tokens on restart and is not shared
// between replicas.
func newTokenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (account.ResetTokenStore, func(), error) {
	if cfg.RedisURL != "" {
		store, err := tokenstore.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("using redis for password reset tokens")
		return store, func() { _ = store.Close() }, nil
	}
	store := tokenstore.NewMemoryStore()
	store.StartSweeper(ctx, sweepInterval)
	logger.Warn().Msg("REDIS_URL not set, password reset tokens are kept in memory")
	return store, func() {}, nil
}

func newEmailSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if cfg.SMTPHost == "" {
		logger.Warn().Msg("SMTP_HOST not set, outgoing email is logged instead of sent")
		return notification.NewLogSender(logger)
	}
	return notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
}

// newServer wires repositories, services and handlers onto a fresh echo
// instance. Nothing here touches the database until a request arrives.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, tokens account.ResetTokenStore, sender notification.EmailSender) (*echo.Echo, error) {
	hasher, err := auth.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	mailer := notification.NewMailer(sender, notification.NewTemplateEngine(), logger)

	// Repositories
	accountRepo := account.NewRepo(pool)
	doctorRepo := profile.NewDoctorRepo(pool)
	patientRepo := profile.NewPatientRepo(pool)
	requestRepo := onboarding.NewRequestRepo(pool)
	recordRepo := medicalrecord.NewRepo(pool)
	appointmentRepo := appointment.NewRepo(pool)

	// Services
	creds := account.NewCredentialGenerator(accountRepo, cfg.UsernameMaxProbes)
	accountSvc := account.NewService(accountRepo, hasher, tokens, mailer, account.Options{
		ResetTokenTTL:      cfg.ResetTokenTTL,
		DisableResetEmails: cfg.DisablePasswordResetEmails,
	}, logger)
	onboardingSvc := onboarding.NewService(
		db.NewTxManager(pool),
		requestRepo,
		accountRepo,
		doctorRepo,
		patientRepo,
		creds,
		hasher,
		mailer,
		logger,
	)
	profileSvc := profile.NewService(doctorRepo, patientRepo)
	recordSvc := medicalrecord.NewService(recordRepo, patientRepo)
	appointmentSvc := appointment.NewService(appointmentRepo, patientRepo, doctorRepo)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Public endpoints that accept credentials or new identities are rate
	// limited per client IP.
	limiter := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	account.NewHandler(accountSvc).RegisterRoutes(apiV1, limiter)
	onboarding.NewHandler(onboardingSvc).RegisterRoutes(apiV1, limiter)
	profile.NewHandler(profileSvc).RegisterRoutes(apiV1)
	medicalrecord.NewHandler(recordSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)

	return e, nil
}
