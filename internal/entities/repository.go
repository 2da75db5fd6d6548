package entities

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository encapsulates DB operations for entities and ownership stakes.
type Repository interface {
	Insert(ctx context.Context, in CreateInput) (Entity, error)
	Get(ctx context.Context, id int64) (Entity, error)
	List(ctx context.Context) ([]Entity, error)
	UpsertOwnership(ctx context.Context, owner, owned int64, percent decimal.Decimal) error
	ListOwnership(ctx context.Context) ([]Ownership, error)
	OwnersOf(ctx context.Context, owned int64) ([]Ownership, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, in CreateInput) (Entity, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO entities (name, fiscal_year_end)
VALUES ($1,$2) RETURNING id, created_at, updated_at`, in.Name, int(in.FiscalYearEnd))
	e := Entity{Name: in.Name, FiscalYearEnd: in.FiscalYearEnd}
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Entity{}, err
	}
	return e, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Entity, error) {
	var e Entity
	var month int
	err := r.db.QueryRow(ctx, `SELECT id, name, fiscal_year_end, created_at, updated_at
FROM entities WHERE id=$1`, id).Scan(&e.ID, &e.Name, &month, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entity{}, ErrEntityNotFound
		}
		return Entity{}, err
	}
	e.FiscalYearEnd = time.Month(month)
	return e, nil
}

func (r *repository) List(ctx context.Context) ([]Entity, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, fiscal_year_end, created_at, updated_at
FROM entities ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entity
	for rows.Next() {
		var e Entity
		var month int
		if err := rows.Scan(&e.ID, &e.Name, &month, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.FiscalYearEnd = time.Month(month)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) UpsertOwnership(ctx context.Context, owner, owned int64, percent decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `INSERT INTO entity_ownership (owner_id, owned_id, percent)
VALUES ($1,$2,$3)
ON CONFLICT (owner_id, owned_id) DO UPDATE SET percent=EXCLUDED.percent, updated_at=NOW()`,
		owner, owned, percent)
	return err
}

func (r *repository) ListOwnership(ctx context.Context) ([]Ownership, error) {
	return r.queryOwnership(ctx, `SELECT owner_id, owned_id, percent, created_at, updated_at
FROM entity_ownership ORDER BY owner_id, owned_id`)
}

func (r *repository) OwnersOf(ctx context.Context, owned int64) ([]Ownership, error) {
	return r.queryOwnership(ctx, `SELECT owner_id, owned_id, percent, created_at, updated_at
FROM entity_ownership WHERE owned_id=$1 ORDER BY owner_id`, owned)
}

func (r *repository) queryOwnership(ctx context.Context, sql string, args ...any) ([]Ownership, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ownership
	for rows.Next() {
		var o Ownership
		if err := rows.Scan(&o.OwnerID, &o.OwnedID, &o.Percent, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
