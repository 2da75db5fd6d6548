package capital

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/platform/db"
)

// Repository persists members and capital transactions.
type Repository interface {
	InsertMember(ctx context.Context, m Member) (Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	ListMembers(ctx context.Context, entityID int64) ([]Member, error)
	UpdateOwnership(ctx context.Context, id int64, pct decimal.Decimal) (Member, error)
	InsertBatch(ctx context.Context, txs []Transaction) ([]Transaction, error)
	SumByType(ctx context.Context, memberID int64, asOf time.Time) (map[TxType]decimal.Decimal, error)
	ListTransactions(ctx context.Context, entityID int64, asOf time.Time) ([]Transaction, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed capital repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const memberColumns = `id, entity_id, name, ownership_pct, initial_contribution, created_at, updated_at`

func (r *repository) InsertMember(ctx context.Context, m Member) (Member, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO capital_members (entity_id, name, ownership_pct, initial_contribution)
VALUES ($1,$2,$3,$4) RETURNING `+memberColumns,
		m.EntityID, m.Name, m.OwnershipPct, m.InitialContribution).
		Scan(&m.ID, &m.EntityID, &m.Name, &m.OwnershipPct, &m.InitialContribution, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *repository) GetMember(ctx context.Context, id int64) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM capital_members WHERE id=$1`, id).
		Scan(&m.ID, &m.EntityID, &m.Name, &m.OwnershipPct, &m.InitialContribution, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}
	return m, nil
}

func (r *repository) ListMembers(ctx context.Context, entityID int64) ([]Member, error) {
	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM capital_members WHERE entity_id=$1 ORDER BY id ASC`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.EntityID, &m.Name, &m.OwnershipPct, &m.InitialContribution, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) UpdateOwnership(ctx context.Context, id int64, pct decimal.Decimal) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `UPDATE capital_members SET ownership_pct=$2, updated_at=NOW()
WHERE id=$1 RETURNING `+memberColumns, id, pct).
		Scan(&m.ID, &m.EntityID, &m.Name, &m.OwnershipPct, &m.InitialContribution, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}
	return m, nil
}

// InsertBatch writes every transaction of a fan-out atomically.
func (r *repository) InsertBatch(ctx context.Context, txs []Transaction) ([]Transaction, error) {
	out := make([]Transaction, 0, len(txs))
	err := db.WithTx(ctx, r.db, func(dbTx pgx.Tx) error {
		for _, t := range txs {
			err := dbTx.QueryRow(ctx, `INSERT INTO capital_transactions (entity_id, member_id, type, status, amount, date, batch_ref, memo)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
				t.EntityID, t.MemberID, t.Type, t.Status, t.Amount, t.Date, t.BatchRef, t.Memo).
				Scan(&t.ID, &t.CreatedAt)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) SumByType(ctx context.Context, memberID int64, asOf time.Time) (map[TxType]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `SELECT type, COALESCE(SUM(amount),0)
FROM capital_transactions WHERE member_id=$1 AND date <= $2 AND status='POSTED' GROUP BY type`, memberID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[TxType]decimal.Decimal)
	for rows.Next() {
		var t TxType
		var sum decimal.Decimal
		if err := rows.Scan(&t, &sum); err != nil {
			return nil, err
		}
		out[t] = sum
	}
	return out, rows.Err()
}

func (r *repository) ListTransactions(ctx context.Context, entityID int64, asOf time.Time) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, entity_id, member_id, type, status, amount, date, batch_ref, memo, created_at
FROM capital_transactions WHERE entity_id=$1 AND date <= $2 ORDER BY date ASC, id ASC`, entityID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.EntityID, &t.MemberID, &t.Type, &t.Status, &t.Amount, &t.Date, &t.BatchRef, &t.Memo, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
