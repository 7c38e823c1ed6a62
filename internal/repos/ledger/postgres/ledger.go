package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

const entryColumns = `id, balance_id, kind, amount, balance_before, balance_after, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (ledger.Entry, error) {
	var e ledger.Entry

	err := row.Scan(&e.ID, &e.BalanceID, &e.Kind, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt)

	return e, err
}

func (r *ledgerRepo) Append(tx *sql.Tx, e ledger.Entry) (ledger.Entry, error) {
	err := tx.QueryRow(`
		INSERT INTO balance_transactions (balance_id, kind, amount, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, e.BalanceID, string(e.Kind), e.Amount, e.BalanceBefore, e.BalanceAfter).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("append ledger entry: %w", err)
	}

	return e, nil
}

func (r *ledgerRepo) Last(tx *sql.Tx, balanceID int64) (ledger.Entry, bool, error) {
	e, err := scanEntry(tx.QueryRow(`
		SELECT `+entryColumns+`
		FROM balance_transactions
		WHERE balance_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, balanceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Entry{}, false, nil
		}

		return ledger.Entry{}, false, fmt.Errorf("last ledger entry: %w", err)
	}

	return e, true, nil
}

func (r *ledgerRepo) List(ctx context.Context, balanceID int64, limit int) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM balance_transactions
		WHERE balance_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, balanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]ledger.Entry, 0, limit)

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		entries = append(entries, e)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}
