package balances

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/repos/balances"
)

// LockAndGet reads the balance row FOR UPDATE; concurrent writers for the
// same user queue here until the holding transaction ends.
func (r *balancesRepo) LockAndGet(tx *sql.Tx, userID int64) (balances.Balance, error) {
	b, err := scanBalance(tx.QueryRow(`
		SELECT `+balanceColumns+`
		FROM balances
		WHERE user_id = $1
		FOR UPDATE
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balances.Balance{}, balances.ErrBalanceNotFound
		}

		return balances.Balance{}, fmt.Errorf("lock/get balance: %w", err)
	}

	return b, nil
}
