package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"randevu/internal/api"
	"randevu/internal/config"
	"randevu/internal/db"
	"randevu/internal/metrics"
)

// NewServeCommand runs the HTTP API together with the background services.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation API",
		Long: `Start the HTTP API, the profile reloader, scheduled backups and the monthly export.

Example:
  randevu serve --config configs/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, cmd)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	a, err := newApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Error().Err(err).Msg("shutdown")
		}
	}()
	cfg := a.cfg

	err = config.WatchProfiles(ctx, cfg.ProfilesPath, cfg.ReloadInterval(), &a.logger, func(pc *config.ProfilesConfig) {
		a.reloadProfiles(ctx, pc)
	})
	if err != nil {
		return wrapExitError(ExitCommandError, "watch profiles", err)
	}

	go db.NewBackupService(a.db, cfg.Backup, &a.logger).Start(ctx)

	exporter := a.exporter()
	exporter.Start()
	defer exporter.Stop()

	separateMetrics := false
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		if cfg.Monitoring.PrometheusPort != cfg.API.Port {
			separateMetrics = true
			go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &a.logger)
		}
	}

	checks := []api.ReadinessCheck{{Name: "db", Ping: a.db.PingContext}}
	if a.cache != nil {
		checks = append(checks, api.ReadinessCheck{Name: "redis", Ping: a.cache.Ping})
	}
	if !cfg.API.Enabled || cfg.Monitoring.HealthCheckPort != cfg.API.Port {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, checks, &a.logger)
	}

	if !cfg.API.Enabled {
		a.logger.Info().Msg("API disabled; running background services only")
		<-ctx.Done()
		return nil
	}

	server := api.NewHTTPServer(api.Options{
		Port:           cfg.API.Port,
		APIKey:         cfg.API.APIKey,
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
		Metrics:        cfg.Monitoring.PrometheusEnabled && !separateMetrics,
	}, a.engine, exporter, a.loc, &a.logger, checks...)

	if err := server.Start(ctx); err != nil {
		return wrapExitError(ExitFailure, "serve", err)
	}
	a.logger.Info().Msg("randevu stopped")
	return nil
}

func startHealthServer(ctx context.Context, port int, checks []api.ReadinessCheck, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.Ping(ctxPing); err != nil {
				http.Error(w, c.Name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
