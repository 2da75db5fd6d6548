package audit

import (
	"context"
	"strings"
	"testing"
	"time"
)

type memAuditRepo struct {
	rows []Row
}

func (m *memAuditRepo) matches(filters TimelineFilters, row Row) bool {
	if !filters.From.IsZero() && row.At.Before(filters.From) {
		return false
	}
	if !filters.To.IsZero() && row.At.After(filters.To) {
		return false
	}
	if filters.ActorID != 0 && row.ActorID != filters.ActorID {
		return false
	}
	if filters.Entity != "" && row.Entity != filters.Entity {
		return false
	}
	if filters.Action != "" && row.Action != filters.Action {
		return false
	}
	return true
}

func (m *memAuditRepo) All(_ context.Context, filters TimelineFilters) ([]Row, error) {
	var out []Row
	for _, row := range m.rows {
		if m.matches(filters, row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memAuditRepo) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]Row, error) {
	all, err := m.All(ctx, filters)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func seedRows(n int) []Row {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		action := "journal.post"
		if i%2 == 1 {
			action = "journal.void"
		}
		rows = append(rows, Row{
			At:       base.Add(time.Duration(i) * time.Hour),
			ActorID:  int64(1 + i%3),
			Action:   action,
			Entity:   "journal_entry",
			EntityID: "1",
		})
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	svc := NewService(&memAuditRepo{rows: seedRows(25)})

	page1, err := svc.Timeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(page1.Rows) != defaultPageSize {
		t.Fatalf("page size = %d, want %d", len(page1.Rows), defaultPageSize)
	}
	if !page1.Paging.HasNext || page1.Paging.NextPage != 2 {
		t.Fatalf("expected next page, got %+v", page1.Paging)
	}

	page2, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	if err != nil {
		t.Fatalf("timeline page 2: %v", err)
	}
	if len(page2.Rows) != 5 {
		t.Fatalf("page 2 size = %d, want 5", len(page2.Rows))
	}
	if page2.Paging.HasNext || page2.Paging.PrevPage != 1 {
		t.Fatalf("unexpected paging: %+v", page2.Paging)
	}
}

func TestTimelinePageSizeClamp(t *testing.T) {
	svc := NewService(&memAuditRepo{rows: seedRows(60)})

	out, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(out.Rows) != maxPageSize {
		t.Fatalf("rows = %d, want clamp at %d", len(out.Rows), maxPageSize)
	}
}

func TestTimelineActionFilter(t *testing.T) {
	svc := NewService(&memAuditRepo{rows: seedRows(10)})

	out, err := svc.Timeline(context.Background(), TimelineFilters{Action: "journal.void"})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(out.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(out.Rows))
	}
	for _, row := range out.Rows {
		if row.Action != "journal.void" {
			t.Fatalf("unexpected action %q", row.Action)
		}
	}
}

func TestExportCSV(t *testing.T) {
	repo := &memAuditRepo{rows: []Row{{
		At:       time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		ActorID:  7,
		Action:   "period.close",
		Entity:   "period",
		EntityID: "2024-06",
		Meta:     map[string]any{"entity_id": float64(1)},
	}}}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, "At,Actor,Action,Entity,Entity ID,Meta") {
		t.Fatalf("missing header: %s", body)
	}
	if !strings.Contains(body, "2024-06-01 09:30:00,7,period.close,period,2024-06") {
		t.Fatalf("missing record: %s", body)
	}
}
