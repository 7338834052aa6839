package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/staffdesk/payroll-engine-go/internal/config"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cache"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cron"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
	"github.com/staffdesk/payroll-engine-go/internal/repository/postgresql"
	attendancesvc "github.com/staffdesk/payroll-engine-go/internal/service/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/service/retryqueue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), int32(cfg.Database.MaxConns), int32(cfg.Database.MinConns))
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	tenantRepo := postgresql.NewTenantRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	pendingRepo := postgresql.NewPendingRepository(db)

	invalidator := cache.NewMemory()

	attendanceService := attendancesvc.NewAttendanceService(db, tenantRepo, employeeRepo, attendanceRepo, invalidator)
	retryService := retryqueue.NewService(pendingRepo, employeeRepo, attendanceService, cfg.Worker.RetryMaxAttempts, logger)

	scheduler := cron.NewScheduler()

	scheduler.AddJob("retry-drain", cfg.Worker.DrainInterval, func(ctx context.Context) error {
		result, err := retryService.DrainBatch(ctx, cfg.Worker.RetryBatchSize)
		if err != nil {
			return err
		}
		if result.Claimed > 0 {
			logger.Info("drained pending attendance updates",
				slog.Int("claimed", result.Claimed),
				slog.Int("completed", result.Completed),
				slog.Int("retried", result.Retried),
				slog.Int("failed", result.Failed))
		}
		return nil
	})

	scheduler.AddJob("stale-reclaim", cfg.Worker.ProcessingLease/2, func(ctx context.Context) error {
		_, err := retryService.ReclaimStale(ctx, cfg.Worker.ProcessingLease)
		return err
	})

	scheduler.Start()
	logger.Info("worker started",
		slog.String("env", cfg.App.Env),
		slog.Duration("drain_interval", cfg.Worker.DrainInterval),
		slog.Duration("processing_lease", cfg.Worker.ProcessingLease))

	<-ctx.Done()
	logger.Info("shutting down")
	scheduler.Stop()
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.App.Env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
