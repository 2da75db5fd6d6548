package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/meridian-re/meridian/internal/jobs"
	"github.com/meridian-re/meridian/internal/reports"
)

// ReportSource generates the reports the warmup precomputes.
type ReportSource interface {
	TrialBalance(ctx context.Context, entityID int64, asOf time.Time) (reports.TrialBalance, error)
	BalanceSheet(ctx context.Context, entityID int64, asOf time.Time) (reports.BalanceSheet, error)
}

// ReportWarmer precomputes the day's trial balance and balance sheet for
// every entity so the first interactive request hits a warm cache.
type ReportWarmer struct {
	logger   *slog.Logger
	entities EntitySource
	reports  ReportSource
	metrics  *jobmetrics.Metrics
	now      func() time.Time
}

// NewReportWarmer constructs the warmup job.
func NewReportWarmer(logger *slog.Logger, src EntitySource, reports ReportSource, metrics *jobmetrics.Metrics) *ReportWarmer {
	return &ReportWarmer{logger: logger, entities: src, reports: reports, metrics: metrics, now: time.Now}
}

// HandleTask adapts the warmer to an Asynq handler.
func (w *ReportWarmer) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := w.now().UTC()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}
	tracker := w.metrics.Track("report_warmup")
	return tracker.End(w.Warm(ctx, asOf))
}

// Warm runs the precomputation across entities in parallel. Report reads
// only touch committed state, so entity fan-out is safe.
func (w *ReportWarmer) Warm(ctx context.Context, asOf time.Time) error {
	scope, err := w.entities.List(ctx)
	if err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, entity := range scope {
		entity := entity
		g.Go(func() error {
			if _, err := w.reports.TrialBalance(ctx, entity.ID, asOf); err != nil {
				w.logger.Warn("warmup trial balance", slog.Int64("entity", entity.ID), slog.Any("error", err))
				return err
			}
			if _, err := w.reports.BalanceSheet(ctx, entity.ID, asOf); err != nil {
				w.logger.Warn("warmup balance sheet", slog.Int64("entity", entity.ID), slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
