package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/compressor"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/notifier"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/adapter/objectstore"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/config"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/domain"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/infrastructure/logger"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/infrastructure/scheduler"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/monitor"
	"github.com/paulcyi/cloudops-automation-toolkit/internal/usecase"
)

type App struct {
	config   *config.Config
	logger   *logger.Logger
	backupUC *usecase.Backup
	registry *scheduler.Registry
	monitor  *monitor.Monitor
	server   *http.Server
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	store, err := objectstore.NewS3(ctx, &cfg.Backup)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	log.Infof("✓ Object store ready (bucket: %s)", store.Bucket())

	var notify domain.Notifier
	if cfg.Backup.Notify.Enabled {
		notify, err = notifier.NewTelegram(&cfg.Backup.Notify)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize notifier: %w", err)
		}
		log.Infof("✓ Telegram notifications enabled")
	}

	validator := usecase.NewMetadataValidator(cfg.Backup.MinRetentionDays, cfg.Backup.MaxRetentionDays)
	verifier := usecase.NewVerifier(store, log)
	history := usecase.NewHistory()

	backupUC := usecase.NewBackup(
		store,
		verifier,
		validator,
		history,
		compressor.NewGzip(),
		notify,
		log,
		cfg.Backup.Prefix,
		cfg.Backup.MaxRetries,
		cfg.Backup.Compress,
	)

	registry := scheduler.NewRegistry(backupUC, log)

	var mon *monitor.Monitor
	var server *http.Server
	if cfg.Monitor.Enabled {
		mon = monitor.New(prometheus.NewRegistry())
		mux := http.NewServeMux()
		mux.Handle("/metrics", mon.Handler())
		server = &http.Server{Addr: cfg.Monitor.ListenAddr, Handler: mux}
		log.Infof("✓ System monitor enabled (%s)", cfg.Monitor.ListenAddr)
	}

	return &App{
		config:   cfg,
		logger:   log,
		backupUC: backupUC,
		registry: registry,
		monitor:  mon,
		server:   server,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	jobs := a.config.GetEnabledJobs()
	for _, job := range jobs {
		cadence, err := scheduler.ParseCadence(job.Cadence)
		if err != nil {
			return fmt.Errorf("failed to schedule backup for %s: %w", job.FilePath, err)
		}
		if _, err := a.registry.Schedule(job.FilePath, cadence, job.Interval, job.RetentionDays); err != nil {
			return fmt.Errorf("failed to schedule backup for %s: %w", job.FilePath, err)
		}
	}

	a.registry.Start()
	a.logger.Infof("Scheduler started with %d backup job(s)", len(jobs))

	if a.monitor != nil {
		go a.runMonitor(ctx)
		go func() {
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	<-ctx.Done()
	return nil
}

func (a *App) runMonitor(ctx context.Context) {
	interval := time.Duration(a.config.Monitor.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.monitor.Update(); err != nil {
				a.logger.Warnf("Metrics collection failed: %v", err)
			}
		}
	}
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down...")
	a.registry.Stop()
	a.registry.CancelAll()
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}
	a.logger.Close()
}
