package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prkovalenko/identity-link-service/internal/config"
	"github.com/prkovalenko/identity-link-service/internal/handler"
	"github.com/prkovalenko/identity-link-service/internal/repository"
	"github.com/prkovalenko/identity-link-service/internal/service"
	"github.com/prkovalenko/identity-link-service/internal/utils"
	"github.com/prkovalenko/identity-link-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	repos := repository.NewRepositories(infra.Postgres())

	tokens := utils.NewSessionTokenManager(
		cfg.Session.Secret,
		cfg.Session.TokenExpiry.Duration,
	)

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	audit := service.NewAudit(repos.AuditEvent, infra.EngineMetrics(), infra.Logger())
	resolver := service.NewResolver(repos.Account, infra.Directory(), infra.Logger())
	methods := service.NewMethods(repos.AuthMethod)
	linker := service.NewLinker(repos.AuthMethod, infra.Directory(), infra.EngineMetrics(), infra.Logger())
	discovery := service.NewDiscovery(resolver, methods)
	lifecycle := service.NewLifecycle(repos.Account, resolver, linker, audit, infra.Directory(), infra.Logger())
	passwordSetup := service.NewPasswordSetup(
		repos.Account,
		infra.Directory(),
		linker,
		audit,
		infra.Logger(),
		cfg.Security.PasswordMinLength,
		cfg.Security.RecentAuthWindow.Duration,
	)

	identityHandler := handler.NewIdentityHandler(discovery, methods, resolver, passwordSetup, infra.Logger())
	triggerHandler := handler.NewTriggerHandler(lifecycle, infra.Logger())

	router := gin.Default()
	router.Use(otelgin.Middleware("identity-link-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, identityHandler, triggerHandler, tokens, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	identityHandler *handler.IdentityHandler,
	triggerHandler *handler.TriggerHandler,
	tokens *utils.SessionTokenManager,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	throttled := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
	)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/discover", throttled, identityHandler.Discover)
			auth.GET("/methods", handler.AuthMiddleware(tokens), identityHandler.ListMethods)
			auth.POST("/password-setup/start", throttled, identityHandler.PasswordSetupStart)
			auth.POST("/password-setup/complete", throttled, identityHandler.PasswordSetupComplete)
			auth.POST("/set-password", handler.AuthMiddleware(tokens), identityHandler.SetPassword)
		}
	}

	// Trigger endpoints are called by the directory itself and sit outside
	// the public API surface; network policy keeps them internal.
	triggers := router.Group("/internal/triggers")
	{
		triggers.POST("/pre-signup", triggerHandler.PreSignup)
		triggers.POST("/post-confirmation", triggerHandler.PostConfirmation)
		triggers.POST("/post-authentication", triggerHandler.PostAuthentication)
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
