package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Insert(ctx context.Context, in CreateInput) (Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetByNumber(ctx context.Context, entityID int64, number string) (Account, error)
	ListByEntity(ctx context.Context, entityID int64) ([]Account, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, in CreateInput) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (entity_id, number, name, type, parent_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
		in.EntityID, in.Number, in.Name, in.Type, in.ParentID)
	a := Account{EntityID: in.EntityID, Number: in.Number, Name: in.Name, Type: in.Type, ParentID: in.ParentID}
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_entity_number" {
			return Account{}, ErrDuplicateNumber
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	return r.scanOne(ctx, `SELECT id, entity_id, number, name, type, parent_id, created_at, updated_at
FROM accounts WHERE id=$1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, entityID int64, number string) (Account, error) {
	return r.scanOne(ctx, `SELECT id, entity_id, number, name, type, parent_id, created_at, updated_at
FROM accounts WHERE entity_id=$1 AND number=$2`, entityID, number)
}

func (r *repository) scanOne(ctx context.Context, sql string, args ...any) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, sql, args...).
		Scan(&a.ID, &a.EntityID, &a.Number, &a.Name, &a.Type, &a.ParentID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) ListByEntity(ctx context.Context, entityID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, entity_id, number, name, type, parent_id, created_at, updated_at
FROM accounts WHERE entity_id=$1 ORDER BY number`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Number, &a.Name, &a.Type, &a.ParentID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) HasChildren(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM accounts WHERE parent_id=$1`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
