package history

import (
	"context"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/repos/history"
)

const purchaseSelect = `
	SELECT h.id, h.game_id, COALESCE(g.title, ''), h.changed_by,
	       h.new_value::numeric, g.price, COALESCE(h.description, ''), h.created_at
	FROM game_history h
	LEFT JOIN games g ON g.id = h.game_id
	WHERE h.action = 'PURCHASE'
`

func (r *historyRepo) PurchasesByGame(ctx context.Context, gameID int64, limit, offset int) ([]history.Purchase, int, error) {
	return r.purchases(ctx, "h.game_id", gameID, limit, offset)
}

func (r *historyRepo) PurchasesByUser(ctx context.Context, userID int64, limit, offset int) ([]history.Purchase, int, error) {
	return r.purchases(ctx, "h.changed_by", userID, limit, offset)
}

// column is one of two constants above, never user input.
func (r *historyRepo) purchases(ctx context.Context, column string, id int64, limit, offset int) ([]history.Purchase, int, error) {
	var total int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM game_history h
		WHERE h.action = 'PURCHASE' AND `+column+` = $1
	`, id).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, purchaseSelect+`
		  AND `+column+` = $1
		ORDER BY h.created_at DESC, h.id DESC
		LIMIT $2 OFFSET $3
	`, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	out := make([]history.Purchase, 0, limit)

	for rows.Next() {
		var p history.Purchase

		err := rows.Scan(&p.ID, &p.GameID, &p.GameTitle, &p.BuyerID,
			&p.PricePaid, &p.CurrentPrice, &p.Description, &p.PurchasedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan purchase: %w", err)
		}

		out = append(out, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, fmt.Errorf("iterate purchases: %w", err)
	}

	return out, total, nil
}
