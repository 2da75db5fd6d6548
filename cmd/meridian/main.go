package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/app"
	"github.com/meridian-re/meridian/internal/audit"
	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/capital"
	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/consol"
	"github.com/meridian-re/meridian/internal/entities"
	"github.com/meridian-re/meridian/internal/journal"
	"github.com/meridian-re/meridian/internal/observability"
	"github.com/meridian-re/meridian/internal/periods"
	"github.com/meridian-re/meridian/internal/platform/cache"
	"github.com/meridian-re/meridian/internal/platform/db"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/internal/shared"
	"github.com/meridian-re/meridian/jobs"
)

// equityRollup adapts balance type totals to the capital verifier. Closed
// earnings live in equity accounts, current earnings in revenue and expense,
// so the book equity as of a date is E + R - X.
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

// invalidatingAudit records the audit log and then bumps the report cache
// version. Wired into services whose writes change report output.
type invalidatingAudit struct {
	audit   *shared.AuditLogger
	reports *reports.Service
	logger  *slog.Logger
}

func (a invalidatingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	err := a.audit.Record(ctx, log)
	if bumpErr := a.reports.Invalidate(ctx); bumpErr != nil {
		a.logger.Warn("report cache bump", slog.Any("error", bumpErr))
	}
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	entityRepo := entities.NewRepository(pool)
	entityService := entities.NewService(entityRepo, auditLogger)

	balanceRepo := balance.NewRepository(pool)

	coaRepo := coa.NewRepository(pool)
	coaService := coa.NewService(coaRepo, entityService, nil)

	balanceService := balance.NewService(balanceRepo, coaService)
	coaService.SetBalances(balanceService)

	reportCache := reports.NewCache(redisClient, 10*time.Minute)
	if err := reportCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	reportService := reports.NewService(balanceService, coaService, reportCache)

	ledgerAudit := invalidatingAudit{audit: auditLogger, reports: reportService, logger: logger}

	periodRepo := periods.NewRepository(pool)
	periodService := periods.NewService(periodRepo, ledgerAudit)

	journalRepo := journal.NewRepository(pool)
	journalService := journal.NewService(journalRepo, ledgerAudit)

	capitalRepo := capital.NewRepository(pool)
	capitalService := capital.NewService(capitalRepo, entityService, equityRollup{balances: balanceService}, auditLogger)

	consolService := consol.NewService(entityService, balanceService)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		EntityHandler:  entities.NewHandler(logger, entityService),
		AccountHandler: coa.NewHandler(logger, coaService),
		PeriodHandler:  periods.NewHandler(logger, periodService),
		JournalHandler: journal.NewHandler(logger, journalService),
		BalanceHandler: balance.NewHandler(logger, balanceService),
		CapitalHandler: capital.NewHandler(logger, capitalService),
		ConsolHandler:  consol.NewHandler(logger, consolService),
		ReportHandler:  reports.NewHandler(logger, reportService),
		AuditHandler:   audit.NewHandler(logger, auditService),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
