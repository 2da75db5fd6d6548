package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/app"
	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/capital"
	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/entities"
	jobmetrics "github.com/meridian-re/meridian/internal/jobs"
	"github.com/meridian-re/meridian/internal/platform/cache"
	"github.com/meridian-re/meridian/internal/platform/db"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/internal/shared"
	"github.com/meridian-re/meridian/jobs"
)

type equityRollup struct {
	balances *balance.Service
}

func (a equityRollup) EquityTotal(ctx context.Context, entityID int64, asOf time.Time) (decimal.Decimal, error) {
	totals, err := a.balances.TypeTotals(ctx, entityID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return totals[coa.AccountTypeEquity].Add(totals[coa.AccountTypeRevenue]).Sub(totals[coa.AccountTypeExpense]), nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	entityService := entities.NewService(entities.NewRepository(pool), auditLogger)

	coaService := coa.NewService(coa.NewRepository(pool), entityService, nil)
	balanceService := balance.NewService(balance.NewRepository(pool), coaService)
	coaService.SetBalances(balanceService)

	reportCache := reports.NewCache(redisClient, 10*time.Minute)
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	reportService := reports.NewService(balanceService, coaService, reportCache)

	capitalService := capital.NewService(capital.NewRepository(pool), entityService, equityRollup{balances: balanceService}, auditLogger)

	metrics := jobmetrics.NewMetrics(nil)
	scanner := jobs.NewIntegrityScanner(logger, entityService, reportService, capitalService, metrics)
	warmer := jobs.NewReportWarmer(logger, entityService, reportService, metrics)

	scanTask, err := jobs.NewLedgerIntegrityTask(jobs.IntegrityScanPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportWarmupTask(jobs.WarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.IntegrityScanCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.IntegrityScanCron, Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}
	if cfg.ReportWarmupCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.ReportWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: scanner.HandleTask},
			{Type: jobs.TaskReportWarmup, Handler: warmer.HandleTask},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
