package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stub-router/cache"
	"stub-router/config"
	"stub-router/cooldown"
	"stub-router/geo"
	"stub-router/handler"
	appLogger "stub-router/logger"
	"stub-router/middleware"
	"stub-router/postgres"
	"stub-router/recorder"
	redisClient "stub-router/redis"
	"stub-router/stats"
	"stub-router/store"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env before viper reads the environment
	_ = godotenv.Load()

	cfg := config.MustLoadConfig()
	appLogger.Initialize(cfg.Log.Level)
	log.Info().Msg("Configuration loaded successfully")

	// Stores
	rdb := redisClient.NewClient(cfg.Redis)
	pool := postgres.NewPool(cfg.Postgres)

	// Geo database, loaded once and held read-only
	geoResolver, err := geo.Open(cfg.Geo.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Geo.DatabasePath).Msg("Failed to open geo database")
	}

	// Link record cache (if enabled)
	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		cacheClient, err = cache.New(cfg.Cache)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize cache")
		}
	} else {
		log.Info().Msg("Cache disabled in configuration")
	}

	links := store.NewLinks(rdb, pool, cacheClient, cfg.Redis.KeyPrefix)
	clicks := store.NewClicks(rdb, cfg.Redis.KeyPrefix)

	clickRecorder := recorder.New(clicks, geoResolver, cfg.Recorder.QueueSize,
		time.Duration(cfg.Recorder.AppendTimeout)*time.Second)
	aggregator := stats.New(clicks)

	tracker := cooldown.New(rdb, cfg.Redis.KeyPrefix, cfg.Cooldown.WindowMs, cfg.Cooldown.MaxUses)

	// Handlers
	linkHandler := handler.NewLinkHandler(links, clickRecorder, cfg)
	internalHandler := handler.NewInternalHandler(links, clicks, aggregator,
		time.Duration(cfg.Redis.OperationTimeout)*time.Second)

	// Middleware
	cooldownLimit := middleware.NewCooldown(tracker, cfg.Cooldown.Enabled,
		cfg.WebServer.TrustProxy, cfg.WebServer.TrustProxyHeader,
		time.Duration(cfg.Redis.OperationTimeout)*time.Second)
	internalLimit := middleware.NewRateLimiter(cfg.Internal.RequestsPerSecond, cfg.Internal.Burst,
		cfg.WebServer.TrustProxy, cfg.WebServer.TrustProxyHeader)

	// Routes
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	internal := r.PathPrefix("/_stub").Subrouter()
	internal.Use(middleware.RequireAppSecret(cfg.Internal.AppHostname))
	internal.Use(internalLimit.Limit)
	internal.HandleFunc("", internalHandler.Healthcheck).Methods(http.MethodHead)
	internal.HandleFunc("/verify-password", internalHandler.VerifyPassword).Methods(http.MethodPost)
	internal.HandleFunc("/stats", internalHandler.Stats).Methods(http.MethodGet)
	internal.HandleFunc("/clicks", internalHandler.Clicks).Methods(http.MethodGet)

	// Catch-all link route (must be last to avoid conflicts)
	r.PathPrefix("/").Handler(cooldownLimit.Limit(http.HandlerFunc(linkHandler.ServeLink))).Methods(http.MethodGet, http.MethodHead)

	serverAddress := fmt.Sprintf("%s:%s", cfg.WebServer.IP, cfg.WebServer.Port)
	server := &http.Server{
		Addr:         serverAddress,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.WebServer.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WebServer.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddress).Msg("Starting edge router")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.WebServer.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Drain pending click recordings before tearing down stores
	clickRecorder.Close()

	geoResolver.Close()
	cacheClient.Close()
	pool.Close()

	if err := rdb.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close Redis connection")
	}

	log.Info().Msg("Server stopped gracefully")
}
