package router

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sparknexora/backoffice/internal/application/console"
	"github.com/sparknexora/backoffice/internal/application/storefront"
	"github.com/sparknexora/backoffice/internal/infrastructure/logger"
	"github.com/sparknexora/backoffice/internal/infrastructure/metrics"
	"github.com/sparknexora/backoffice/internal/interfaces/http/handler"
	"github.com/sparknexora/backoffice/internal/interfaces/http/middleware"
)

// Config shapes the engine built by NewEngine
type Config struct {
	AppName        string
	Version        string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	TrustedProxies []string
	MetricsPath    string // empty disables /metrics
	SessionCookie  middleware.SessionCookie

	// nil disables the matching limit
	PublicLimiter *middleware.RateLimiter
	LoginLimiter  *middleware.RateLimiter
}

// Deps are the services the routes call into
type Deps struct {
	Console    *console.Console
	Storefront *storefront.Service
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewEngine builds the console host's gin engine with every route mounted
func NewEngine(cfg Config, deps Deps) (*gin.Engine, error) {
	if deps.Console == nil || deps.Storefront == nil {
		return nil, errors.New("router: console and storefront are required")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SecureWithConfig(cfg.Security),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.Metrics(deps.Metrics),
	)

	systemHandler := handler.NewSystemHandler(cfg.AppName, cfg.Version, func() bool {
		_, ok := deps.Console.Session()
		return ok
	})
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ping", systemHandler.Ping)
	if cfg.MetricsPath != "" && deps.Metrics != nil {
		engine.GET(cfg.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	r := NewRouter(engine)
	groups := []*DomainGroup{
		publicRoutes(cfg, handler.NewPublicHandler(deps.Storefront)),
		consoleRoutes(cfg, deps.Console, handler.NewConsoleHandler(deps.Console, cfg.SessionCookie)),
	}
	for _, g := range groups {
		r.Register(g)
		log.Debug("routes mounted",
			zap.String("group", g.Name()),
			zap.String("prefix", r.Prefix()+g.Prefix()),
			zap.Int("count", len(g.Routes())),
		)
	}
	r.Setup()

	return engine, nil
}

func limited(l *middleware.RateLimiter, h gin.HandlerFunc) []gin.HandlerFunc {
	if l == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{middleware.RateLimit(l), h}
}

func publicRoutes(cfg Config, h *handler.PublicHandler) *DomainGroup {
	g := NewDomainGroup("public", "")
	if cfg.MaxBodySize > 0 {
		g.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	g.GET("/packages", h.ListPackages)
	g.POST("/contact", limited(cfg.PublicLimiter, h.SubmitContact)...)
	g.POST("/checkout", limited(cfg.PublicLimiter, h.BeginCheckout)...)
	g.GET("/payment/success", h.VerifyPayment)
	return g
}

func consoleRoutes(cfg Config, c *console.Console, h *handler.ConsoleHandler) *DomainGroup {
	g := NewDomainGroup("console", "/console")
	if cfg.MaxBodySize > 0 {
		g.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	g.POST("/login", limited(cfg.LoginLimiter, h.Login)...)

	signedIn := g.Group("signed-in", "").Use(middleware.RequireSession(c, cfg.SessionCookie, handler.LoginPath))
	signedIn.POST("/logout", h.Logout)
	signedIn.GET("/session", h.Session)
	signedIn.GET("/notifications", h.ListNotifications)
	signedIn.DELETE("/notifications/:id", h.DismissNotification)
	signedIn.GET("/overview", h.Overview)

	signedIn.GET("/tabs/:tab", h.GetTab)
	signedIn.POST("/tabs/:tab/refresh", h.RefreshTab)
	signedIn.PUT("/tabs/:tab/filters", h.SetFilters)
	signedIn.DELETE("/tabs/:tab/filters", h.ClearFilters)
	signedIn.PUT("/tabs/:tab/page", h.GoToPage)

	signedIn.PUT("/contacts/:id/status", h.UpdateContactStatus)
	signedIn.POST("/contacts/:id/notes", h.AddContactNote)
	signedIn.POST("/contacts/:id/deletion", h.RequestContactDeletion)

	signedIn.GET("/confirmations", h.ListConfirmations)
	signedIn.POST("/confirmations/:id", h.Confirm)
	signedIn.DELETE("/confirmations/:id", h.Cancel)
	return g
}
