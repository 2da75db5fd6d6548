package periods

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memRepo struct {
	periods map[int64]Period
	drafts  int
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{periods: make(map[int64]Period), nextID: 1}
}

func (m *memRepo) Insert(ctx context.Context, in OpenInput) (Period, error) {
	p := Period{ID: m.nextID, EntityID: in.EntityID, Code: in.Code, StartDate: in.StartDate, EndDate: in.EndDate, Status: StatusOpen}
	m.periods[p.ID] = p
	m.nextID++
	return p, nil
}

func (m *memRepo) GetByCode(ctx context.Context, entityID int64, code string) (Period, error) {
	for _, p := range m.periods {
		if p.EntityID == entityID && p.Code == code {
			return p, nil
		}
	}
	return Period{}, ErrPeriodNotFound
}

func (m *memRepo) FindByDate(ctx context.Context, entityID int64, date time.Time) (Period, error) {
	for _, p := range m.periods {
		if p.EntityID == entityID && p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, ErrPeriodNotFound
}

func (m *memRepo) List(ctx context.Context, entityID int64) ([]Period, error) {
	var out []Period
	for _, p := range m.periods {
		if p.EntityID == entityID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStatus(ctx context.Context, id int64, status Status, closedAt *time.Time) error {
	p, ok := m.periods[id]
	if !ok {
		return ErrPeriodNotFound
	}
	p.Status = status
	p.ClosedAt = closedAt
	m.periods[id] = p
	return nil
}

func (m *memRepo) RangeConflict(ctx context.Context, entityID int64, start, end time.Time) (bool, error) {
	for _, p := range m.periods {
		if p.EntityID == entityID && !p.StartDate.After(end) && !p.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CountDraftsInRange(ctx context.Context, entityID int64, start, end time.Time) (int, error) {
	return m.drafts, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func june2024() OpenInput {
	return OpenInput{EntityID: 1, Code: "2024-06", StartDate: day(2024, time.June, 1), EndDate: day(2024, time.June, 30)}
}

func TestOpenRejectsOverlap(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()
	if _, err := svc.Open(ctx, june2024()); err != nil {
		t.Fatalf("open: %v", err)
	}
	overlap := OpenInput{EntityID: 1, Code: "2024-06b", StartDate: day(2024, time.June, 15), EndDate: day(2024, time.July, 15)}
	if _, err := svc.Open(ctx, overlap); !errors.Is(err, ErrPeriodOverlap) {
		t.Fatalf("expected ErrPeriodOverlap, got %v", err)
	}
	// Same window on another entity does not conflict.
	other := june2024()
	other.EntityID = 2
	if _, err := svc.Open(ctx, other); err != nil {
		t.Fatalf("open other entity: %v", err)
	}
}

func TestCloseBlockedByDrafts(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	if _, err := svc.Open(ctx, june2024()); err != nil {
		t.Fatalf("open: %v", err)
	}
	repo.drafts = 1
	if _, err := svc.Close(ctx, 1, "2024-06", 7); !errors.Is(err, ErrHasDraftEntries) {
		t.Fatalf("expected ErrHasDraftEntries, got %v", err)
	}
	repo.drafts = 0
	period, err := svc.Close(ctx, 1, "2024-06", 7)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if period.Status != StatusClosed || period.ClosedAt == nil {
		t.Fatalf("expected closed period, got %+v", period)
	}
}

func TestReopenCycle(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	ctx := context.Background()
	if _, err := svc.Open(ctx, june2024()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Reopen(ctx, 1, "2024-06", 7); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reopening an open period must fail, got %v", err)
	}
	if _, err := svc.Close(ctx, 1, "2024-06", 7); err != nil {
		t.Fatalf("close: %v", err)
	}
	open, err := svc.IsOpen(ctx, 1, day(2024, time.June, 10))
	if err != nil || open {
		t.Fatalf("IsOpen after close = %v, %v", open, err)
	}
	if _, err := svc.Reopen(ctx, 1, "2024-06", 7); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	open, err = svc.IsOpen(ctx, 1, day(2024, time.June, 10))
	if err != nil || !open {
		t.Fatalf("IsOpen after reopen = %v, %v", open, err)
	}
}

func TestIsOpenWithoutPeriod(t *testing.T) {
	svc := NewService(newMemRepo(), nil)
	open, err := svc.IsOpen(context.Background(), 1, day(2024, time.June, 10))
	if err != nil {
		t.Fatalf("IsOpen: %v", err)
	}
	if open {
		t.Fatalf("date without a period must not be open")
	}
}
