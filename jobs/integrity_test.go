package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/meridian-re/meridian/internal/entities"
	"github.com/meridian-re/meridian/internal/reports"
	"github.com/meridian-re/meridian/internal/shared"
)

type stubEntities struct {
	list []entities.Entity
}

func (s *stubEntities) List(context.Context) ([]entities.Entity, error) { return s.list, nil }

func (s *stubEntities) Get(_ context.Context, id int64) (entities.Entity, error) {
	for _, e := range s.list {
		if e.ID == id {
			return e, nil
		}
	}
	return entities.Entity{}, entities.ErrEntityNotFound
}

type stubTB struct {
	failFor map[int64]error
	calls   []int64
}

func (s *stubTB) TrialBalance(_ context.Context, entityID int64, _ time.Time) (reports.TrialBalance, error) {
	s.calls = append(s.calls, entityID)
	if err, ok := s.failFor[entityID]; ok {
		return reports.TrialBalance{}, err
	}
	return reports.TrialBalance{EntityID: entityID}, nil
}

type stubCapital struct {
	failFor map[int64]error
}

func (s *stubCapital) VerifyAgainstEquity(_ context.Context, entityID int64, _ time.Time) error {
	return s.failFor[entityID]
}

func scannerFixture(tb *stubTB, capital *stubCapital) (*IntegrityScanner, *stubEntities) {
	src := &stubEntities{list: []entities.Entity{
		{ID: 1, Name: "Meridian Holdings"},
		{ID: 2, Name: "Lakeview LLC"},
	}}
	logger := slog.New(slog.DiscardHandler)
	return NewIntegrityScanner(logger, src, tb, capital, nil), src
}

func TestScanCleanLedger(t *testing.T) {
	tb := &stubTB{}
	scanner, _ := scannerFixture(tb, &stubCapital{})

	if err := scanner.Scan(context.Background(), 0, time.Now()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tb.calls) != 2 {
		t.Fatalf("trial balances checked = %d, want 2", len(tb.calls))
	}
}

func TestScanCollectsAllFaults(t *testing.T) {
	tbFault := shared.Integrity("reports: trial balance out of balance")
	capFault := shared.Integrity("capital: member balances diverge from equity rollup")
	tb := &stubTB{failFor: map[int64]error{1: tbFault}}
	scanner, _ := scannerFixture(tb, &stubCapital{failFor: map[int64]error{2: capFault}})

	err := scanner.Scan(context.Background(), 0, time.Now())
	if err == nil {
		t.Fatalf("expected faults")
	}
	// One bad entity must not hide the other.
	if !errors.Is(err, tbFault) || !errors.Is(err, capFault) {
		t.Fatalf("joined error missing a fault: %v", err)
	}
}

func TestScanSingleEntityScope(t *testing.T) {
	tb := &stubTB{failFor: map[int64]error{1: shared.Integrity("boom")}}
	scanner, _ := scannerFixture(tb, &stubCapital{})

	if err := scanner.Scan(context.Background(), 2, time.Now()); err != nil {
		t.Fatalf("scan entity 2: %v", err)
	}
	if len(tb.calls) != 1 || tb.calls[0] != 2 {
		t.Fatalf("calls = %v, want only entity 2", tb.calls)
	}
}

func TestScanUnknownEntity(t *testing.T) {
	scanner, _ := scannerFixture(&stubTB{}, &stubCapital{})
	if err := scanner.Scan(context.Background(), 99, time.Now()); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}
