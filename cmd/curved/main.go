// Command curved serves bootstrapped curves over HTTP and rebuilds them when
// the market snapshot changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/curvekit/api"
	"github.com/meenmo/curvekit/config"
	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/marketdata"
	"github.com/meenmo/curvekit/metrics"
	"github.com/meenmo/curvekit/scheduler"
	"github.com/meenmo/curvekit/service"
	"github.com/meenmo/curvekit/store"
)

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "curved: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("curved")
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Infow("starting", "name", cfg.App.Name, "environment", cfg.App.Environment)

	var rec store.Recorder
	if cfg.Store.Path != "" {
		sr, err := store.NewSQLiteRecorder(cfg.Store.Path)
		if err != nil {
			log.Warnw("init sqlite recorder failed, using noop", "error", err)
			rec = store.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = store.NewNoopRecorder()
	}
	defer rec.Close()

	m := metrics.NewRecorder()
	opts := []service.Option{
		service.WithConfig(cfg),
		service.WithRecorder(rec),
		service.WithMetrics(m),
	}

	snap, err := marketdata.Load(cfg.Scheduler.Snapshot)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	reg, err := service.NewRegistry(snap, opts...)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// failed curves stay queryable through their status
	if _, err := reg.Refresh(ctx); err != nil {
		log.Warnw("initial build incomplete", "error", err)
	}
	current := service.NewCurrent(reg)

	sched := scheduler.NewScheduler(ctx, current, cfg.Scheduler.Snapshot, opts...)
	if err := sched.Register(cfg.Scheduler.Cron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	apiServer := api.NewServer(api.Config{
		Addr:         cfg.API.Addr(),
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}, current, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Start)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(m, cfg.Metrics.Port, cfg.Metrics.Path)
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		var errs []error
		if err := apiServer.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
