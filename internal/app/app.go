// Package app wires the watchdog process together: it reads configuration,
// connects to infrastructure, constructs the three engines plus the
// SelfReporter and Coordinator, mounts the Listener surface, and runs until
// cancellation.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/wisbric/watchdog/internal/cleanup"
	"github.com/wisbric/watchdog/internal/cleanup/pgtablestore"
	"github.com/wisbric/watchdog/internal/config"
	"github.com/wisbric/watchdog/internal/coordinator"
	"github.com/wisbric/watchdog/internal/healthcheck"
	"github.com/wisbric/watchdog/internal/listener"
	"github.com/wisbric/watchdog/internal/metricengine"
	"github.com/wisbric/watchdog/internal/platform"
	"github.com/wisbric/watchdog/internal/platformclient"
	"github.com/wisbric/watchdog/internal/selfreport"
	"github.com/wisbric/watchdog/internal/storekv"
	"github.com/wisbric/watchdog/internal/telemetry"
	"github.com/wisbric/watchdog/internal/telemetrysink"
	"github.com/wisbric/watchdog/internal/watchconfig"
)

const serviceName = "watchdog"

// version is stamped at build time; left as a placeholder constant here
// since this module has no release pipeline of its own yet.
const version = "dev"

// Run is the watchdog's main entry point. It reads config, connects to
// infrastructure, and runs the Coordinator and the Listener surface until
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting watchdog", "listen", cfg.ListenAddr())

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, version)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("shutting down tracer", "error", err)
		}
	}()

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunGlobalMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry()
	sink := telemetrysink.NewPrometheusSink(metricsReg)

	instanceID := cfg.InstanceID
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	elector := coordinator.NewElector(rdb, telemetry.Component(logger, "elector"), cfg.LeaderGroup, instanceID)

	store, err := storekv.Open(cfg.DurableStorePath, elector)
	if err != nil {
		return fmt.Errorf("opening durable store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing durable store", "error", err)
		}
	}()

	platformClient := platformclient.NewHTTPClient(cfg.PlatformBaseURL)

	pgStore := pgtablestore.New(db)

	defaults := watchconfig.Defaults()

	hcEngine := healthcheck.New(store, platformClient, sink, telemetry.Component(logger, "healthcheck"), defaults.HealthCheckInterval)
	mcEngine := metricengine.New(store, platformClient, sink, telemetry.Component(logger, "metricengine"), defaults.MetricInterval)
	clEngine := cleanup.New(store, pgStore, telemetry.Component(logger, "cleanup"), defaults.DiagnosticInterval, cleanup.DefaultTables)
	reporter := selfreport.New(platformClient, sink, telemetry.Component(logger, "selfreport"), hcEngine, mcEngine, clEngine, uuid.New(), defaults.WatchdogHealthReportInterval)

	var cfgWatcher *watchconfig.Watcher
	if cfg.ConfigPath != "" {
		cfgWatcher, err = watchconfig.NewWatcher(cfg.ConfigPath, telemetry.Component(logger, "watchconfig"))
		if err != nil {
			logger.Warn("watchconfig: starting watcher failed, running with static defaults", "path", cfg.ConfigPath, "error", err)
			cfgWatcher = nil
		}
	}

	coord := coordinator.New(store, platformClient, hcEngine, mcEngine, clEngine, reporter, elector, cfgWatcher, telemetry.Component(logger, "coordinator"), cfg.ListenAddr())

	if err := coord.RegisterSelfProbe(ctx); err != nil {
		return fmt.Errorf("registering self health probe: %w", err)
	}

	router := listener.NewRouter(listener.Config{
		HealthChecks:       hcEngine,
		MetricChecks:       mcEngine,
		Probe:              coord,
		Logger:             logger,
		Metrics:            metricsReg,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	reporter.SetListenerCount(1)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listener surface listening", "addr", cfg.ListenAddr())
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
			return
		}
		errCh <- nil
	}()

	coordErrCh := make(chan error, 1)
	go func() { coordErrCh <- coord.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down watchdog")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down http server", "error", err)
		}
		<-coordErrCh
		return nil
	case err := <-errCh:
		return err
	case err := <-coordErrCh:
		return err
	}
}
