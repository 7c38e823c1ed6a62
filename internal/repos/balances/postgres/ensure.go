package balances

import (
	"database/sql"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/repos/users"
)

func (r *balancesRepo) Ensure(tx *sql.Tx, userID int64) error {
	_, err := tx.Exec(`
		INSERT INTO balances (user_id, amount)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		if pgutils.IsForeignKeyViolation(err) {
			return users.ErrUserNotFound
		}

		return fmt.Errorf("ensure balance: %w", err)
	}

	return nil
}
