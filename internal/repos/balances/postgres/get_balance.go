package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/repos/balances"
)

func (r *balancesRepo) Get(ctx context.Context, userID int64) (balances.Balance, error) {
	b, err := scanBalance(r.db.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE user_id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return balances.Balance{}, balances.ErrBalanceNotFound
		}

		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return b, nil
}
