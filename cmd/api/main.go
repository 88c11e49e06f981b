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

	"github.com/avencourt/gatehouse/internal/auth"
	"github.com/avencourt/gatehouse/internal/background"
	"github.com/avencourt/gatehouse/internal/config"
	"github.com/avencourt/gatehouse/internal/database"
	"github.com/avencourt/gatehouse/internal/handlers"
	middlewareCustom "github.com/avencourt/gatehouse/internal/middleware"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/notify"
	"github.com/avencourt/gatehouse/internal/repositories"
	"github.com/avencourt/gatehouse/internal/routes"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/avencourt/gatehouse/internal/session"
	pkgauth "github.com/avencourt/gatehouse/pkg/auth"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Session store: redis when configured, in-process memory otherwise
	var sessionStore session.Store
	if cfg.Session.RedisAddr != "" {
		redisStore, err := session.NewRedisStore(cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB, cfg.Session.TTL)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		sessionStore = redisStore
		logger.Info("using redis session store", slog.String("addr", cfg.Session.RedisAddr))
	} else {
		sessionStore = session.NewMemoryStore(cfg.Session.TTL)
		logger.Warn("SESSION_REDIS_ADDR not set, using in-memory session store")
	}

	cookieConfig := session.CookieConfig{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.CookieDomain,
		Secure: cfg.Session.CookieSecure,
	}

	// Repositories
	accountRepo := repositories.NewAccountRepository(db)

	// Notifier backend
	notifier, err := buildNotifier(&cfg.Email, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Token manager for the supplementary bearer token
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	// Timing delay for enumeration-sensitive paths
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   200,
		RandomDelayMs: 100,
	})

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Services
	accountService := services.NewAccountService(
		accountRepo, notifier, sessionStore, logger, auditLogger,
		cfg.Server.BaseURL, cfg.Auth.ProvisioningCode,
	)
	authService := services.NewAuthService(
		accountRepo, sessionStore, tokenManager, timingDelay, logger, auditLogger,
	)
	resetService := services.NewPasswordResetService(
		accountRepo, notifier, sessionStore, timingDelay, logger, auditLogger,
		cfg.Server.FrontendURL, cfg.Auth.ResetTokenTTL,
	)
	profileService := services.NewProfileService(accountRepo, logger, auditLogger)

	// Handlers
	accountHandler := handlers.NewAccountHandler(accountService, profileService, authService, cookieConfig, cfg.Server.FrontendURL)
	authHandler := handlers.NewAuthHandler(authService, cookieConfig, nil)
	resetHandler := handlers.NewPasswordResetHandler(resetService, cookieConfig)
	profileHandler := handlers.NewProfileHandler(profileService)
	healthHandler := handlers.NewHealthHandler(db)

	// Bootstrap first admin account if configured
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminAccount(bootCtx, accountRepo, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	bootCancel()

	// Cleanup manager sweeps expired reset tokens
	cleanupManager := background.NewCleanupManager(accountRepo, logger, cfg.Auth.CleanupInterval)

	// CORS: credentialed requests from the SPA origin
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(session.Middleware(sessionStore, cookieConfig, logger))

	routes.RegisterRoutes(router, accountHandler, authHandler, resetHandler, profileHandler, healthHandler, session.RequireSession)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// buildNotifier selects the email backend from configuration. "log" keeps
// development environments working without credentials.
func buildNotifier(cfg *config.EmailConfig, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.Provider {
	case "ses":
		return notify.NewSESNotifier(cfg.AWSRegion, cfg.FromAddress, logger)
	case "smtp":
		return notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.FromAddress, logger), nil
	case "log":
		return notify.NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// ensureAdminAccount creates the first admin account if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminAccount(ctx context.Context, accountRepo *repositories.AccountRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	_, err := accountRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Account{
		Username:     "admin",
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		IsVerified:   true,
		IsAdmin:      true,
	}

	if _, err := accountRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	logger.Info("admin account created successfully")
	return nil
}
