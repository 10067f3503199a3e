package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/lockgate/internal/auth"
	"github.com/BradenHooton/lockgate/internal/background"
	"github.com/BradenHooton/lockgate/internal/config"
	"github.com/BradenHooton/lockgate/internal/database"
	"github.com/BradenHooton/lockgate/internal/handlers"
	"github.com/BradenHooton/lockgate/internal/lockout"
	"github.com/BradenHooton/lockgate/internal/metrics"
	"github.com/BradenHooton/lockgate/internal/repositories"
	"github.com/BradenHooton/lockgate/internal/routes"
	"github.com/BradenHooton/lockgate/internal/services"
	pkghttp "github.com/BradenHooton/lockgate/pkg/http"
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

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("lockout_store", cfg.Lockout.Store),
		slog.Int("lockout_threshold", cfg.Lockout.Threshold),
		slog.Duration("lockout_duration", cfg.Lockout.Duration))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	m := metrics.New()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	healthChecks := []routes.HealthCheck{{Name: "database", Check: db.HealthCheck}}

	// Lockout state store
	var (
		store  services.SecurityStateStore
		locked background.LockedCounter
	)
	switch cfg.Lockout.Store {
	case config.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rdb, err := database.NewRedis(ctx, cfg.Redis, logger)
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()

		redisStore := repositories.NewRedisSecurityStateRepository(rdb.Client, userRepo)
		store, locked = redisStore, redisStore
		healthChecks = append(healthChecks, routes.HealthCheck{Name: "redis", Check: rdb.HealthCheck})
	default:
		store, locked = repositories.NewSecurityStateRepository(db), userRepo
	}

	policy, err := lockout.NewPolicy(lockout.Config{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	})
	if err != nil {
		logger.Error("invalid lockout policy", slog.Any("error", err))
		os.Exit(1)
	}

	// Audit sinks
	auditService := services.NewAuditService(auditRepo, logger)
	sinks := []services.NamedSink{{Name: "db", Sink: auditService}}
	if cfg.Email.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		emailService, err := services.NewAWSSESEmailService(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		sinks = append(sinks, services.NamedSink{Name: "email", Sink: services.NewLockoutNotifier(emailService, userRepo)})
	}
	fanout := services.NewAuditFanout(logger, m, sinks...)

	// Initialize services
	lockoutService := services.NewLockoutService(policy, store, fanout, m, logger)
	rateLimitService := services.NewRateLimitService(loginAttemptRepo, services.RateLimitConfig{
		MaxAttemptsPerIP:     cfg.Auth.MaxAttemptsPerIP,
		MaxAttemptsPerDevice: cfg.Auth.MaxAttemptsPerDevice,
		LookbackWindow:       cfg.Auth.RateLimitLookbackWindow,
	}, logger)
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, "lockgate", cfg.Auth.AccessTokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})

	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:             userRepo,
		Lockout:           lockoutService,
		RateLimiter:       rateLimitService,
		Auditor:           auditService,
		Tokens:            tokenManager,
		Timing:            timingDelay,
		AccessTokenExpiry: cfg.Auth.AccessTokenExpiry,
		Metrics:           m,
		Logger:            logger,
	})
	userService := services.NewUserService(userRepo, logger)
	adminService := services.NewAdminService(locked, auditRepo, logger)

	// Bootstrap first admin user if configured
	if err := bootstrapAdmin(context.Background(), cfg.Admin, userService, logger); err != nil {
		logger.Error("admin bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)

	router := routes.NewRouter(routes.Dependencies{
		AuthHandler:            handlers.NewAuthHandler(authService, ipConfig),
		AccountHandler:         handlers.NewAccountHandler(lockoutService, userService, ipConfig, logger),
		AuditHandler:           handlers.NewAuditHandler(auditService, logger),
		AdminHandler:           handlers.NewAdminHandler(adminService),
		TokenManager:           tokenManager,
		UserRepo:               userRepo,
		IPConfig:               ipConfig,
		LoginRequestsPerMinute: cfg.Auth.LoginRequestsPerMinute,
		AdminRequestsPerMinute: cfg.Admin.RequestsPerMinute,
		Metrics:                m.Handler(),
		HealthChecks:           healthChecks,
		Env:                    cfg.Server.Env,
		Logger:                 logger,
	})

	cleanupManager := background.NewCleanupManager(background.CleanupConfig{
		Attempts:      loginAttemptRepo,
		Audit:         auditRepo,
		Locked:        locked,
		Gauge:         m,
		RetentionDays: cfg.Audit.RetentionDays,
		Interval:      cfg.Auth.CleanupInterval,
		Logger:        logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
