package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"agro-dashboard/backend/internal/api"
	"agro-dashboard/backend/internal/auth"
	"agro-dashboard/backend/internal/mcp"
	"agro-dashboard/backend/internal/services"
	"agro-dashboard/backend/internal/telemetry"
)

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	logger.Info("starting production timeline service",
		"version", version,
		"environment", cfg.Environment,
		"db_driver", cfg.DB.Driver,
		"auth_enabled", cfg.AuthEnabled(),
		"auth_issuer", cfg.Auth.Issuer,
		"updatable_stages", cfg.Timeline.UpdatableStages,
	)

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Stdout:      cfg.Telemetry.Stdout,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()
	metrics, err := telemetry.NewMetrics(telemetry.Meter())
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	catalogService := services.NewCatalogService(store, logger.With("component", "catalog"))
	timelineService := services.NewTimelineService(store, logger.With("component", "timeline"), metrics, cfg.Timeline.UpdatableStages)
	logger.Info("service layer initialized")

	authz, err := auth.New(ctx, cfg, logger.With("component", "auth"))
	if err != nil {
		return fmt.Errorf("auth initialization failed: %w", err)
	}

	apiServer := api.NewServer(catalogService, timelineService, store, logger.With("component", "api"), version)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apiServer.HTTPErrorHandler
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(cfg.Telemetry.ServiceName))
	e.Use(api.RequestLogger(logger.With("component", "http")))

	e.GET("/health", apiServer.HandleHealth)

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(echo.WrapMiddleware(authz.RequireAuth))
	apiGroup.Use(echo.WrapMiddleware(auth.RequireScope(auth.ScopeTimelineRead)))
	api.RegisterHandlers(apiGroup, apiServer, echo.WrapMiddleware(auth.RequireScope(auth.ScopeTimelineWrite)))
	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(timelineService, catalogService, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers), echo.WrapMiddleware(authz.RequireAuth))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers), echo.WrapMiddleware(authz.RequireAuth))
	logger.Info("MCP protocol handlers mounted")

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.Issuer)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.ClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(api.OAuthRedirectHandler)))

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("server close error", "error", err)
			}
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
