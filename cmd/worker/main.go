// Package main provides the StormWatch refresh scheduler. It publishes
// refresh triggers to Pub/Sub on a fixed interval for API instances
// subscribed to the refresh topic.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/config"
	"github.com/stormwatch/stormwatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "stormwatch-worker"

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	city := flag.String("city", "", "publish a single search trigger for this city and exit")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := cfg.NewLogger(os.Stdout, serviceName, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting StormWatch worker")

	if cfg.Notify.PubSubProjectID == "" || cfg.Notify.RefreshTopic == "" {
		log.Fatal().Msg("notify.pubsub_project_id and notify.refresh_topic are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	triggers, err := worker.NewTriggerPublisher(ctx, worker.TriggerConfig{
		ProjectID: cfg.Notify.PubSubProjectID,
		Topic:     cfg.Notify.RefreshTopic,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create trigger publisher")
	}
	defer triggers.Close()

	if *city != "" {
		if _, err := triggers.Publish(ctx, worker.RefreshMessage{JobType: worker.JobSearch, City: *city}); err != nil {
			log.Error().Err(err).Msg("failed to publish search trigger")
			return
		}
		log.Info().Str("city", *city).Msg("search trigger published")
		return
	}

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"OK","version":%q}`, Version)
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	schedule(ctx, triggers, cfg.Dashboard.RefreshInterval, log)

	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// schedule publishes a refresh trigger every interval until ctx is done.
func schedule(ctx context.Context, triggers *worker.TriggerPublisher, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		log.Warn().Msg("refresh interval disabled, nothing to schedule")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("refresh schedule started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := triggers.Publish(ctx, worker.RefreshMessage{JobType: worker.JobRefresh}); err != nil {
				log.Error().Err(err).Msg("failed to publish refresh trigger")
			}
		}
	}
}
