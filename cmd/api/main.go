// Package main provides the entrypoint for the StormWatch API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/api"
	"github.com/stormwatch/stormwatch/internal/api/handler"
	"github.com/stormwatch/stormwatch/internal/api/middleware"
	"github.com/stormwatch/stormwatch/internal/config"
	"github.com/stormwatch/stormwatch/internal/dashboard"
	"github.com/stormwatch/stormwatch/internal/database"
	"github.com/stormwatch/stormwatch/internal/favorites"
	"github.com/stormwatch/stormwatch/internal/notify"
	"github.com/stormwatch/stormwatch/internal/provider/resilience"
	"github.com/stormwatch/stormwatch/internal/telemetry"
	"github.com/stormwatch/stormwatch/internal/timezone"
	"github.com/stormwatch/stormwatch/internal/weather"
	"github.com/stormwatch/stormwatch/internal/weather/openweathermap"
	"github.com/stormwatch/stormwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "stormwatch-api"

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.NewLogger(os.Stdout, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting StormWatch API")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}
	weatherMetrics, err := telemetry.NewWeatherMetrics()
	if err != nil {
		return err
	}
	alertMetrics, err := telemetry.NewAlertMetrics()
	if err != nil {
		return err
	}

	// Weather provider behind the circuit breaker
	registry := resilience.NewRegistry()
	httpConfig := resilience.DefaultClientConfig(openweathermap.ProviderName)
	httpConfig.Timeout = cfg.Weather.Timeout
	httpConfig.Registry = registry
	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:            cfg.Weather.APIKey,
			BaseURL:           cfg.Weather.BaseURL,
			RequestsPerMinute: cfg.Weather.RequestsPerMinute,
			HTTPClient:        resilience.NewClient(httpConfig),
			Logger:            log,
		}),
		Logger:   log,
		Metrics:  weatherMetrics,
		CacheTTL: cfg.Weather.CacheTTL,
	})

	// Favorites persistence
	kv, checks, closeKV, err := openFavorites(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()
	store := favorites.NewStore(favorites.StoreConfig{
		KV:     kv,
		Key:    cfg.Favorites.Key,
		Logger: log,
	})

	// Alert delivery
	initial, err := notify.ParsePermission(cfg.Notify.Permission)
	if err != nil {
		return err
	}
	answer, err := notify.ParsePermission(cfg.Notify.PromptAnswer)
	if err != nil {
		return err
	}
	permissions := notify.NewPermissions(initial, answer)

	notifiers := []notify.Notifier{notify.NewLogNotifier(log)}
	if cfg.Notify.PubSubProjectID != "" && cfg.Notify.PubSubTopic != "" {
		publisher, pubErr := notify.NewPubSubNotifier(ctx, notify.PubSubConfig{
			ProjectID: cfg.Notify.PubSubProjectID,
			Topic:     cfg.Notify.PubSubTopic,
			Logger:    log,
		})
		if pubErr != nil {
			return pubErr
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
		log.Info().Str("topic", cfg.Notify.PubSubTopic).Msg("pubsub notifications enabled")
	}

	var player notify.Player
	if cfg.Notify.Sound {
		player = notify.NewChime(os.Stderr)
	}

	board := notify.NewBoard(0)
	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Board:       board,
		Player:      player,
		Notifiers:   notifiers,
		Permissions: permissions,
		Metrics:     alertMetrics,
		Logger:      log,
	})

	clock := alert.SystemClock()
	scheduler := alert.NewScheduler(alert.SchedulerConfig{
		Sink:        dispatcher,
		Clock:       clock,
		Permissions: permissions,
		Metrics:     alertMetrics,
		Logger:      log,
	})
	defer scheduler.Cancel(context.Background())
	monitor := alert.NewCurrentMonitor(alert.CurrentMonitorConfig{
		Sink:    dispatcher,
		Clock:   clock,
		Metrics: alertMetrics,
		Logger:  log,
	})

	timezones, err := timezone.NewDefaultResolver(log)
	if err != nil {
		log.Warn().Err(err).Msg("timezone lookup unavailable, using provider offsets")
	}

	session := dashboard.NewSession(dashboard.Config{
		Weather:     weatherService,
		Favorites:   store,
		Scheduler:   scheduler,
		Monitor:     monitor,
		Timezones:   timezones,
		Clock:       clock,
		Logger:      log,
		DefaultCity: cfg.Dashboard.DefaultCity,
	})
	if _, err := session.Start(ctx); err != nil {
		log.Warn().Err(err).Str("city", cfg.Dashboard.DefaultCity).Msg("initial search failed")
	}

	// Background refresh
	refreshConfig := worker.DefaultRefreshConfig()
	refreshConfig.Interval = cfg.Dashboard.RefreshInterval
	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    refreshConfig,
		Dashboard: session,
		Weather:   weatherService,
		Logger:    log,
	})
	go refreshJob.Loop(ctx)

	if cfg.Notify.PubSubProjectID != "" && cfg.Notify.RefreshSubscription != "" {
		triggers, subErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Notify.PubSubProjectID,
			SubscriptionName: cfg.Notify.RefreshSubscription,
			RefreshJob:       refreshJob,
			Logger:           log,
		})
		if subErr != nil {
			return subErr
		}
		defer triggers.Close()
		go func() {
			if err := triggers.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("pubsub refresh triggers stopped")
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		RateLimit:   cfg.Server.RateLimit,
		RequireTLS:  cfg.Server.RequireTLS,
		Dashboard:   session,
		Alerts: handler.AlertsHandlerConfig{
			Scheduler:   scheduler,
			Monitor:     monitor,
			Board:       board,
			Permissions: permissions,
		},
		Providers:    registry,
		CacheStats:   weatherService.CacheStats,
		RefreshStats: refreshJob.MetricsSnapshot,
		ReadyChecks:  checks,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// openFavorites opens the configured favorites backend and returns its
// readiness checks and a close function.
func openFavorites(ctx context.Context, cfg *config.Config, log zerolog.Logger) (favorites.KV, map[string]handler.ReadinessCheck, func(), error) {
	switch cfg.Favorites.Backend {
	case config.BackendSQLite:
		kv, err := favorites.OpenSQLiteKV(ctx, cfg.Favorites.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("path", cfg.Favorites.SQLitePath).Msg("favorites stored in sqlite")
		checks := map[string]handler.ReadinessCheck{"favorites": kv.Ping}
		return kv, checks, func() { _ = kv.Close() }, nil

	case config.BackendPostgres:
		dbConfig := database.FromConfig(cfg.Database)
		pool, err := database.ConnectWithRetry(ctx, dbConfig, log)
		if err != nil {
			return nil, nil, nil, err
		}
		kv := favorites.NewPostgresKV(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
		checks := map[string]handler.ReadinessCheck{"favorites": pool.Ping}
		return kv, checks, pool.Close, nil

	default:
		log.Warn().Msg("favorites kept in memory and lost on restart")
		return favorites.NewMemoryKV(), nil, func() {}, nil
	}
}
