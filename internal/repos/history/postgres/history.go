package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/repos/history"
)

var _ history.History = (*historyRepo)(nil)

type historyRepo struct{ db *sql.DB }

func New(db *sql.DB) *historyRepo {
	return &historyRepo{db: db}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *historyRepo) Insert(tx *sql.Tx, recs ...history.Record) error {
	for _, rec := range recs {
		_, err := tx.Exec(`
			INSERT INTO game_history (game_id, action, field_name, old_value, new_value, changed_by, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			rec.GameID,
			string(rec.Action),
			nullIfEmpty(rec.FieldName),
			nullIfEmpty(rec.OldValue),
			nullIfEmpty(rec.NewValue),
			rec.ChangedBy,
			nullIfEmpty(rec.Description),
		)
		if err != nil {
			return fmt.Errorf("insert %s history for game %d: %w", rec.Action, rec.GameID, err)
		}
	}

	return nil
}

func (r *historyRepo) ListByGame(ctx context.Context, gameID int64) ([]history.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, game_id, action,
		       COALESCE(field_name, ''), COALESCE(old_value, ''), COALESCE(new_value, ''),
		       changed_by, COALESCE(description, ''), created_at
		FROM game_history
		WHERE game_id = $1
		ORDER BY created_at DESC, id DESC
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []history.Record

	for rows.Next() {
		var rec history.Record

		err := rows.Scan(&rec.ID, &rec.GameID, &rec.Action, &rec.FieldName, &rec.OldValue,
			&rec.NewValue, &rec.ChangedBy, &rec.Description, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		out = append(out, rec)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return out, nil
}
