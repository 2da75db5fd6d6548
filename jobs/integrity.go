package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-re/meridian/internal/entities"
	jobmetrics "github.com/meridian-re/meridian/internal/jobs"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/internal/shared"
)

// EntitySource lists entities in scope for a scan.
type EntitySource interface {
	List(ctx context.Context) ([]entities.Entity, error)
	Get(ctx context.Context, id int64) (entities.Entity, error)
}

// TrialBalancer generates a trial balance; a mismatch surfaces as an
// integrity fault.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, entityID int64, asOf time.Time) (reports.TrialBalance, error)
}

// CapitalVerifier compares member capital totals with the equity rollup.
type CapitalVerifier interface {
	VerifyAgainstEquity(ctx context.Context, entityID int64, asOf time.Time) error
}

// IntegrityScanner sweeps the ledger for invariant violations: unequal trial
// balance columns and capital ledgers diverging from equity. Findings are
// defects by definition; the scanner reports them and changes nothing.
type IntegrityScanner struct {
	logger   *slog.Logger
	entities EntitySource
	reports  TrialBalancer
	capital  CapitalVerifier
	metrics  *jobmetrics.Metrics
	now      func() time.Time
}

// NewIntegrityScanner constructs the scanner.
func NewIntegrityScanner(logger *slog.Logger, src EntitySource, tb TrialBalancer, capital CapitalVerifier, metrics *jobmetrics.Metrics) *IntegrityScanner {
	return &IntegrityScanner{
		logger:   logger,
		entities: src,
		reports:  tb,
		capital:  capital,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *IntegrityScanner) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// HandleTask adapts the scanner to an Asynq handler.
func (s *IntegrityScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	asOf := s.now().UTC()
	if payload.AsOf != "" {
		parsed, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = parsed
	}
	tracker := s.metrics.Track("ledger_integrity")
	return tracker.End(s.Scan(ctx, payload.EntityID, asOf))
}

// Scan checks one entity, or every entity when entityID is zero. All faults
// are collected so one bad entity does not hide another.
func (s *IntegrityScanner) Scan(ctx context.Context, entityID int64, asOf time.Time) error {
	scope, err := s.scope(ctx, entityID)
	if err != nil {
		return err
	}
	var faults []error
	for _, entity := range scope {
		for _, err := range s.checkEntity(ctx, entity.ID, asOf) {
			faults = append(faults, fmt.Errorf("entity %d (%s): %w", entity.ID, entity.Name, err))
			s.logger.Error("ledger integrity fault",
				slog.Int64("entity", entity.ID),
				slog.String("as_of", asOf.Format("2006-01-02")),
				slog.Any("error", err),
			)
			if shared.IsIntegrity(err) {
				s.metrics.AddIntegrityFaults(entity.ID, 1)
			}
		}
	}
	return errors.Join(faults...)
}

func (s *IntegrityScanner) scope(ctx context.Context, entityID int64) ([]entities.Entity, error) {
	if entityID != 0 {
		entity, err := s.entities.Get(ctx, entityID)
		if err != nil {
			return nil, err
		}
		return []entities.Entity{entity}, nil
	}
	return s.entities.List(ctx)
}

func (s *IntegrityScanner) checkEntity(ctx context.Context, entityID int64, asOf time.Time) []error {
	var faults []error
	if _, err := s.reports.TrialBalance(ctx, entityID, asOf); err != nil {
		faults = append(faults, err)
	}
	if s.capital != nil {
		if err := s.capital.VerifyAgainstEquity(ctx, entityID, asOf); err != nil {
			faults = append(faults, err)
		}
	}
	return faults
}
