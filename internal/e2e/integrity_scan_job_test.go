package e2e

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/meridian-re/meridian/internal/entities"
	jobmetrics "github.com/meridian-re/meridian/internal/jobs"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/jobs"
	_ "github.com/meridian-re/meridian/testing"
)

type stubEntitySource struct {
	list []entities.Entity
}

func (s *stubEntitySource) List(context.Context) ([]entities.Entity, error) {
	return append([]entities.Entity(nil), s.list...), nil
}

func (s *stubEntitySource) Get(_ context.Context, id int64) (entities.Entity, error) {
	for _, e := range s.list {
		if e.ID == id {
			return e, nil
		}
	}
	return entities.Entity{}, entities.ErrEntityNotFound
}

type stubTrialBalancer struct {
	calls []int64
}

func (s *stubTrialBalancer) TrialBalance(_ context.Context, entityID int64, _ time.Time) (reports.TrialBalance, error) {
	s.calls = append(s.calls, entityID)
	return reports.TrialBalance{EntityID: entityID}, nil
}

type stubVerifier struct{}

func (stubVerifier) VerifyAgainstEquity(context.Context, int64, time.Time) error { return nil }

// Drives the integrity scan the way the worker does: payload in, Asynq task,
// handler, metrics out.
func TestIntegrityScanJobEndToEnd(t *testing.T) {
	src := &stubEntitySource{list: []entities.Entity{
		{ID: 1, Name: "Meridian Holdings"},
		{ID: 2, Name: "Lakeview LLC"},
		{ID: 3, Name: "Harborview LP"},
	}}
	tb := &stubTrialBalancer{}
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	scanner := jobs.NewIntegrityScanner(slog.New(slog.DiscardHandler), src, tb, stubVerifier{}, metrics)
	task, err := jobs.NewLedgerIntegrityTask(jobs.IntegrityScanPayload{AsOf: "2024-06-30"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if err := scanner.HandleTask(context.Background(), task); err != nil {
		t.Fatalf("handle task: %v", err)
	}
	if len(tb.calls) != 3 {
		t.Fatalf("expected 3 trial balance checks, got %d", len(tb.calls))
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if !assertCounter(t, families, "meridian_jobs_total", map[string]string{"job": "ledger_integrity", "status": "success"}, 1) {
		t.Fatalf("expected meridian_jobs_total increment for the integrity scan")
	}
	if !metricExists(families, "meridian_job_duration_seconds") {
		t.Fatalf("expected meridian_job_duration_seconds to be recorded")
	}
}

func assertCounter(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string, expected float64) bool {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				if metric.GetCounter() == nil {
					return false
				}
				if metric.GetCounter().GetValue() == expected {
					return true
				}
			}
		}
	}
	return false
}

func metricExists(families []*dto.MetricFamily, name string) bool {
	for _, fam := range families {
		if fam.GetName() == name {
			return true
		}
	}
	return false
}

func matchLabels(pairs []*dto.LabelPair, expected map[string]string) bool {
	if len(expected) == 0 {
		return true
	}
	seen := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range expected {
		if seen[k] != v {
			return false
		}
	}
	return true
}
