package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for fiscal periods.
type Repository interface {
	Insert(ctx context.Context, in OpenInput) (Period, error)
	GetByCode(ctx context.Context, entityID int64, code string) (Period, error)
	FindByDate(ctx context.Context, entityID int64, date time.Time) (Period, error)
	List(ctx context.Context, entityID int64) ([]Period, error)
	UpdateStatus(ctx context.Context, id int64, status Status, closedAt *time.Time) error
	RangeConflict(ctx context.Context, entityID int64, start, end time.Time) (bool, error)
	CountDraftsInRange(ctx context.Context, entityID int64, start, end time.Time) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, entity_id, code, start_date, end_date, status, closed_at, created_at, updated_at`

func (r *repository) Insert(ctx context.Context, in OpenInput) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO periods (entity_id, code, start_date, end_date, status)
VALUES ($1,$2,$3,$4,'OPEN') RETURNING id, created_at, updated_at`,
		in.EntityID, in.Code, in.StartDate, in.EndDate)
	p := Period{EntityID: in.EntityID, Code: in.Code, StartDate: in.StartDate, EndDate: in.EndDate, Status: StatusOpen}
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *repository) GetByCode(ctx context.Context, entityID int64, code string) (Period, error) {
	return r.scanOne(ctx, `SELECT `+periodColumns+` FROM periods WHERE entity_id=$1 AND code=$2`, entityID, code)
}

func (r *repository) FindByDate(ctx context.Context, entityID int64, date time.Time) (Period, error) {
	return r.scanOne(ctx, `SELECT `+periodColumns+` FROM periods
WHERE entity_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, entityID, date)
}

func (r *repository) scanOne(ctx context.Context, sql string, args ...any) (Period, error) {
	var p Period
	err := r.db.QueryRow(ctx, sql, args...).
		Scan(&p.ID, &p.EntityID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, entityID int64) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM periods WHERE entity_id=$1 ORDER BY start_date`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.EntityID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status, closedAt *time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE periods SET status=$2, closed_at=$3, updated_at=NOW() WHERE id=$1`, id, status, closedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *repository) RangeConflict(ctx context.Context, entityID int64, start, end time.Time) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM periods
WHERE entity_id=$1 AND start_date <= $3 AND end_date >= $2`, entityID, start, end).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) CountDraftsInRange(ctx context.Context, entityID int64, start, end time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM journal_entries
WHERE entity_id=$1 AND status='DRAFT' AND date BETWEEN $2 AND $3`, entityID, start, end).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
