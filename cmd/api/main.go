package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/multimodal-agent/server/internal/bootstrap"
	"github.com/multimodal-agent/server/internal/http/handlers"
	"github.com/multimodal-agent/server/internal/http/httpapi"
	"github.com/multimodal-agent/server/internal/infra"
	"github.com/multimodal-agent/server/internal/infra/geoip"
	"github.com/multimodal-agent/server/internal/middleware"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg, "api")
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	ctx := context.Background()
	deps, err := bootstrap.Open(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise dependencies")
	}
	defer deps.Close()

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable; country lookup disabled")
	}
	var country middleware.CountryLookup
	if resolver != nil {
		defer resolver.Close()
		country = resolver.CountryCode
	}

	app := handlers.NewApp(handlers.App{
		Jobs:           deps.Jobs,
		Files:          deps.Files,
		Store:          deps.Store,
		Cache:          deps.Cache,
		TTL:            deps.TTLPolicy(),
		DB:             deps.Health,
		Logger:         &logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	opts := httpapi.Options{
		Logger:      logger,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Country:     country,
	}
	if cfg.RateLimitEnabled {
		opts.Limiter = deps.Limiter()
	}
	router := httpapi.NewRouter(app, opts)

	server := infra.NewHTTPServer(cfg, router, &logger)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
