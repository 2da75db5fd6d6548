package balance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository answers aggregate queries over posted journal lines. Only
// Posted and Void entries count: a voided original and its reversal stay in
// the population and cancel each other, while drafts never touch balances.
type Repository interface {
	AccountNet(ctx context.Context, accountID int64, asOf time.Time) (Net, error)
	AccountNetBefore(ctx context.Context, accountID int64, before time.Time) (Net, error)
	Lines(ctx context.Context, accountID int64, from, to time.Time) ([]ActivityLine, error)
	EntityNets(ctx context.Context, entityID int64, asOf time.Time) (map[int64]Net, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx-backed aggregate reader.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const countedStatuses = `('POSTED','VOID')`

func (r *repository) AccountNet(ctx context.Context, accountID int64, asOf time.Time) (Net, error) {
	return r.net(ctx, accountID, `e.date <= $2`, asOf)
}

func (r *repository) AccountNetBefore(ctx context.Context, accountID int64, before time.Time) (Net, error) {
	return r.net(ctx, accountID, `e.date < $2`, before)
}

func (r *repository) net(ctx context.Context, accountID int64, dateCond string, bound time.Time) (Net, error) {
	var n Net
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN `+countedStatuses+` AND `+dateCond, accountID, bound).
		Scan(&n.Debit, &n.Credit)
	if err != nil {
		return Net{}, err
	}
	return n, nil
}

// Lines orders by date, then entry id, then line id, so the running balance
// is deterministic when several entries share a date.
func (r *repository) Lines(ctx context.Context, accountID int64, from, to time.Time) ([]ActivityLine, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, e.number, l.id, e.date, e.memo, e.reference, l.debit, l.credit
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE l.account_id=$1 AND e.status IN `+countedStatuses+` AND e.date BETWEEN $2 AND $3
ORDER BY e.date ASC, e.id ASC, l.id ASC`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityLine
	for rows.Next() {
		var line ActivityLine
		if err := rows.Scan(&line.EntryID, &line.EntryNumber, &line.LineID, &line.Date, &line.Memo, &line.Reference, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func (r *repository) EntityNets(ctx context.Context, entityID int64, asOf time.Time) (map[int64]Net, error) {
	rows, err := r.db.Query(ctx, `SELECT l.account_id, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM journal_lines l
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.entity_id=$1 AND e.status IN `+countedStatuses+` AND e.date <= $2
GROUP BY l.account_id`, entityID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]Net)
	for rows.Next() {
		var accountID int64
		var n Net
		if err := rows.Scan(&accountID, &n.Debit, &n.Credit); err != nil {
			return nil, err
		}
		out[accountID] = n
	}
	return out, rows.Err()
}
