package ownership

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
)

var _ ownership.Ownerships = (*ownershipRepo)(nil)

type ownershipRepo struct{ db *sql.DB }

func New(db *sql.DB) *ownershipRepo {
	return &ownershipRepo{db: db}
}

func (r *ownershipRepo) Exists(tx *sql.Tx, userID, gameID int64) (bool, error) {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM ownerships WHERE user_id = $1 AND game_id = $2)
	`, userID, gameID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check ownership: %w", err)
	}

	return exists, nil
}

func (r *ownershipRepo) Grant(tx *sql.Tx, userID, gameID int64) error {
	_, err := tx.Exec(`
		INSERT INTO ownerships (user_id, game_id)
		VALUES ($1, $2)
	`, userID, gameID)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return ownership.ErrAlreadyOwned
		}

		return fmt.Errorf("grant ownership: %w", err)
	}

	return nil
}

func (r *ownershipRepo) ListByUser(ctx context.Context, userID int64) ([]ownership.Ownership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.user_id, o.game_id, g.title, o.purchased_at
		FROM ownerships o
		JOIN games g ON g.id = o.game_id
		WHERE o.user_id = $1
		ORDER BY o.purchased_at DESC, o.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ownerships: %w", err)
	}
	defer rows.Close()

	var out []ownership.Ownership

	for rows.Next() {
		var o ownership.Ownership

		err := rows.Scan(&o.ID, &o.UserID, &o.GameID, &o.GameTitle, &o.PurchasedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ownership: %w", err)
		}

		out = append(out, o)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate ownerships: %w", err)
	}

	return out, nil
}
