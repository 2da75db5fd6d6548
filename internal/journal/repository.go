package journal

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-re/meridian/internal/periods"
	"github.com/meridian-re/meridian/internal/platform/db"
	"github.com/meridian-re/meridian/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	Get(ctx context.Context, id int64) (Entry, []Line, error)
	List(ctx context.Context, entityID int64) ([]Entry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction. The
// period lookup lives here so the open check and the insert share one
// transactional view.
type TxRepository interface {
	LockEntity(ctx context.Context, entityID int64) error
	EntityExists(ctx context.Context, entityID int64) (bool, error)
	AccountEntities(ctx context.Context, accountIDs []int64) (map[int64]int64, error)
	FindPeriodForUpdate(ctx context.Context, entityID int64, date time.Time) (periods.Period, error)
	InsertEntry(ctx context.Context, in PostingInput, status Status, voidOf *int64) (Entry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	GetEntryWithLines(ctx context.Context, id int64) (Entry, []Line, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, entity_id, number, date, memo, reference, client_ref, status, void_of_id, posted_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (Entry, []Line, error) {
	tx := &txRepository{q: r.db}
	return tx.GetEntryWithLines(ctx, id)
}

func (r *repository) List(ctx context.Context, entityID int64) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE entity_id=$1 ORDER BY number DESC`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// WithTx runs fn inside a RepeatableRead transaction; the per-entity
// advisory lock taken by LockEntity makes posting serializable per entity.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txRepository struct {
	q queryer
}

func (r *txRepository) LockEntity(ctx context.Context, entityID int64) error {
	_, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, shared.EntityLockID(entityID))
	return err
}

func (r *txRepository) EntityExists(ctx context.Context, entityID int64) (bool, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(1) FROM entities WHERE id=$1`, entityID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *txRepository) AccountEntities(ctx context.Context, accountIDs []int64) (map[int64]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id, entity_id FROM accounts WHERE id = ANY($1)`, accountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int64, len(accountIDs))
	for rows.Next() {
		var id, entityID int64
		if err := rows.Scan(&id, &entityID); err != nil {
			return nil, err
		}
		out[id] = entityID
	}
	return out, rows.Err()
}

func (r *txRepository) FindPeriodForUpdate(ctx context.Context, entityID int64, date time.Time) (periods.Period, error) {
	var p periods.Period
	err := r.q.QueryRow(ctx, `SELECT id, entity_id, code, start_date, end_date, status, closed_at, created_at, updated_at
FROM periods WHERE entity_id=$1 AND $2 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, entityID, date).
		Scan(&p.ID, &p.EntityID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return periods.Period{}, periods.ErrPeriodNotFound
		}
		return periods.Period{}, err
	}
	return p, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in PostingInput, status Status, voidOf *int64) (Entry, error) {
	row := r.q.QueryRow(ctx, `INSERT INTO journal_entries (entity_id, date, memo, reference, client_ref, status, void_of_id, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7, CASE WHEN $6='POSTED' THEN NOW() ELSE NULL END)
RETURNING id, number, posted_at, created_at, updated_at`,
		in.EntityID, in.Date, in.Memo, in.Reference, in.ClientRef, status, voidOf)
	entry := Entry{
		EntityID:  in.EntityID,
		Date:      in.Date,
		Memo:      in.Memo,
		Reference: in.Reference,
		ClientRef: in.ClientRef,
		Status:    status,
		VoidOfID:  voidOf,
	}
	if err := row.Scan(&entry.ID, &entry.Number, &entry.PostedAt, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_entries_client_ref" {
			return Entry{}, ErrDuplicateReference
		}
		return Entry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for _, line := range lines {
		if _, err := r.q.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, id int64) (Entry, []Line, error) {
	row := r.q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, nil, ErrEntryNotFound
		}
		return Entry{}, nil, err
	}
	rows, err := r.q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Entry{}, nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.CreatedAt); err != nil {
			return Entry{}, nil, err
		}
		lines = append(lines, line)
	}
	return entry, lines, rows.Err()
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmd, err := r.q.Exec(ctx, `UPDATE journal_entries SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.EntityID, &e.Number, &e.Date, &e.Memo, &e.Reference, &e.ClientRef, &e.Status, &e.VoidOfID, &e.PostedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}
