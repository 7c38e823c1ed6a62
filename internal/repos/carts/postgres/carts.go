package carts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/repos/carts"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/users"
)

const (
	cartUserFK = "cart_items_user_id_fkey"
	cartGameFK = "cart_items_game_id_fkey"
)

var _ carts.Carts = (*cartsRepo)(nil)

type cartsRepo struct{ db *sql.DB }

func New(db *sql.DB) *cartsRepo {
	return &cartsRepo{db: db}
}

func (r *cartsRepo) Lines(ctx context.Context, userID int64) ([]carts.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.game_id, g.title, g.price, g.author_id, c.added_at
		FROM cart_items c
		JOIN games g ON g.id = c.game_id
		WHERE c.user_id = $1
		ORDER BY c.added_at, c.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	var out []carts.Line

	for rows.Next() {
		var l carts.Line

		err := rows.Scan(&l.GameID, &l.Title, &l.Price, &l.AuthorID, &l.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}

		out = append(out, l)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate cart: %w", err)
	}

	return out, nil
}

func (r *cartsRepo) Add(tx *sql.Tx, userID, gameID int64) error {
	_, err := tx.Exec(`
		INSERT INTO cart_items (user_id, game_id)
		VALUES ($1, $2)
	`, userID, gameID)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return carts.ErrAlreadyInCart
		}

		if pgutils.IsForeignKeyViolation(err) {
			switch pgutils.ConstraintName(err) {
			case cartUserFK:
				return users.ErrUserNotFound
			case cartGameFK:
				return games.ErrGameNotFound
			}
		}

		return fmt.Errorf("add cart item: %w", err)
	}

	return nil
}

func (r *cartsRepo) Remove(ctx context.Context, userID int64, gameIDs ...int64) (int64, error) {
	if len(gameIDs) == 0 {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_id = $1 AND game_id = ANY($2::bigint[])
	`, userID, int64Array(gameIDs))
	if err != nil {
		return 0, fmt.Errorf("remove cart items: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}

func (r *cartsRepo) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	return nil
}
