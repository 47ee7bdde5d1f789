package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/epsviewer/internal/config"
	"github.com/ehr/epsviewer/internal/domain/summary"
	"github.com/ehr/epsviewer/internal/platform/auth"
	"github.com/ehr/epsviewer/internal/platform/export"
	"github.com/ehr/epsviewer/internal/platform/intake"
	"github.com/ehr/epsviewer/internal/platform/middleware"
	"github.com/ehr/epsviewer/internal/platform/viewer"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the summary HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(os.Stdout)
			if err != nil {
				logger.Error().Err(err).Msg("failed to load config")
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServer(cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

// newServer wires the middleware chain and routes.
func newServer(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, error) {
	maxSize, err := cfg.MaxDocumentBytes()
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, viewer.DocumentIDHeader},
	}))

	apiV1 := e.Group("/api/v1")

	authCfg := auth.Config{
		SigningKey: []byte(cfg.AuthSigningKey),
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		Leeway:     30 * time.Second,
	}
	if authCfg.Enabled() {
		apiV1.Use(auth.BearerAuth(authCfg))
	} else if !cfg.IsDev() {
		logger.Warn().Msg("AUTH_SIGNING_KEY is not set; summary endpoints are unauthenticated")
	}
	apiV1.Use(middleware.BodyLimit(maxSize))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	reader := intake.NewReader(maxSize, logger)
	h := viewer.NewHandler(reader, summary.NewExtractor(), format, logger)
	h.RegisterRoutes(apiV1)

	return e, nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	e, err := newServer(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build server")
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
