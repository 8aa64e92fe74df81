package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/application/auth"
	"github.com/sparknexora/backoffice/internal/application/collection"
	"github.com/sparknexora/backoffice/internal/application/console"
	"github.com/sparknexora/backoffice/internal/application/notify"
	"github.com/sparknexora/backoffice/internal/application/storefront"
	"github.com/sparknexora/backoffice/internal/infrastructure/apiclient"
	"github.com/sparknexora/backoffice/internal/infrastructure/config"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
	"github.com/sparknexora/backoffice/internal/infrastructure/tokenstore"
	"github.com/sparknexora/backoffice/internal/infrastructure/validation"
	"github.com/sparknexora/backoffice/internal/interfaces/http/middleware"
	"github.com/sparknexora/backoffice/internal/interfaces/http/router"
)

//	@title			Spark Nexora Back-office API
//	@version		1.0
//	@description	Marketing storefront and admin console for Spark Nexora
//	@BasePath		/api/v1

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Backend.BaseURL),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.New()

	// Credential storage
	store, err := tokenstore.New(cfg.TokenStore, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to open token store", zap.String("driver", cfg.TokenStore.Driver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing token store", zap.Error(err))
		}
	}()

	// Backend client. The guard is created after the client, so the token
	// source reads it lazily.
	var guard *auth.Guard
	api, err := apiclient.New(cfg.Backend,
		apiclient.WithTokenSource(apiclient.TokenFunc(func() string { return guard.Token() })),
		apiclient.WithMetrics(m),
		apiclient.WithLogger(log),
	)
	if err != nil {
		log.Fatal("Failed to create backend client", zap.Error(err))
	}
	guard = auth.NewGuard(api, store, auth.GuardConfig{FallbackName: cfg.Console.FallbackName}, log, m)

	queue := notify.NewQueue(
		notify.WithDefaultDuration(cfg.Console.NotificationDuration),
		notify.WithLogger(log),
		notify.WithMetrics(m),
	)
	defer queue.Close()

	adminConsole := console.New(guard,
		collection.NewContactsClient(api, log),
		collection.NewPaymentsClient(api, log),
		api, queue,
		console.Config{
			PageSize:    cfg.Console.PageSize,
			RecentLimit: cfg.Console.RecentLimit,
			NoteAuthor:  cfg.Console.NoteAuthor,
		},
		log, m,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
	if adminConsole.Start(startCtx) {
		log.Info("Restored stored console session")
	}
	cancelStart()

	shop := storefront.New(api, validation.New(), log)

	// HTTP surface
	routerCfg := router.Config{
		AppName:        cfg.App.Name,
		Version:        version,
		CORS:           middleware.DefaultCORSConfig(),
		Security:       middleware.DefaultSecurityConfig(),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		SessionCookie: middleware.SessionCookie{
			Name:   cfg.HTTP.SessionCookieName,
			Secure: cfg.IsProduction(),
		},
	}
	routerCfg.CORS.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	routerCfg.CORS.AllowMethods = cfg.HTTP.CORSAllowMethods
	routerCfg.CORS.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	routerCfg.Security.HSTSEnabled = cfg.IsProduction()
	if cfg.HTTP.RateLimitEnabled {
		routerCfg.PublicLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		routerCfg.LoginLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	engine, err := router.NewEngine(routerCfg, router.Deps{
		Console:    adminConsole,
		Storefront: shop,
		Logger:     log,
		Metrics:    m,
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
