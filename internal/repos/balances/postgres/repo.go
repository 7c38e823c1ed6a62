package balances

import (
	"database/sql"

	"github.com/fastprodman/gamemarket/internal/repos/balances"
)

var _ balances.Balances = (*balancesRepo)(nil)

type balancesRepo struct{ db *sql.DB }

func New(db *sql.DB) *balancesRepo {
	return &balancesRepo{db: db}
}

const balanceColumns = `id, user_id, amount, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBalance(row scanner) (balances.Balance, error) {
	var b balances.Balance

	err := row.Scan(&b.ID, &b.UserID, &b.Amount, &b.CreatedAt, &b.UpdatedAt)

	return b, err
}
