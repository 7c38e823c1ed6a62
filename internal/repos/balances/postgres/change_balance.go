package balances

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/repos/balances"
)

func (r *balancesRepo) Increase(tx *sql.Tx, balanceID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal

	err := tx.QueryRow(`
		UPDATE balances
		SET amount = amount + $2, updated_at = now()
		WHERE id = $1
		RETURNING amount
	`, balanceID, amount).Scan(&after)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, balances.ErrBalanceNotFound
		}

		return decimal.Zero, fmt.Errorf("increase balance: %w", err)
	}

	return after, nil
}

// Decrease never lets the amount go below zero: a short balance matches no
// row and yields ErrInsufficientFunds.
func (r *balancesRepo) Decrease(tx *sql.Tx, balanceID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal

	err := tx.QueryRow(`
		UPDATE balances
		SET amount = amount - $2, updated_at = now()
		WHERE id = $1
		  AND amount >= $2
		RETURNING amount
	`, balanceID, amount).Scan(&after)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, balances.ErrInsufficientFunds
		}

		return decimal.Zero, fmt.Errorf("decrease balance: %w", err)
	}

	return after, nil
}
