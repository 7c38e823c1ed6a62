// Package audit writes the append-only game history and serves purchase
// history pages built from it.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/history"
	pghistory "github.com/fastprodman/gamemarket/internal/repos/history/postgres"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidPage = errors.New("page out of range")

// FieldChange is one edited attribute of a game. Values are stored as text.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

type Recorder struct {
	db      *sql.DB
	history history.History
	log     *slog.Logger
}

func New(dbx *sql.DB, log *slog.Logger) *Recorder {
	return NewWithRepo(dbx, pghistory.New(dbx), log)
}

func NewWithRepo(dbx *sql.DB, h history.History, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}

	return &Recorder{db: dbx, history: h, log: log}
}

// RecordPurchase stores the price paid in new_value so later reads can
// compare it with the game's current price.
func (r *Recorder) RecordPurchase(tx *sql.Tx, gameID, buyerID int64, pricePaid decimal.Decimal, description string) error {
	err := r.history.Insert(tx, history.Record{
		GameID:      gameID,
		Action:      history.ActionPurchase,
		FieldName:   "price",
		NewValue:    money.String(pricePaid),
		ChangedBy:   buyerID,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	return nil
}

func (r *Recorder) RecordCreateTx(tx *sql.Tx, g games.Game, actorID int64) error {
	err := r.history.Insert(tx, history.Record{
		GameID:      g.ID,
		Action:      history.ActionCreate,
		ChangedBy:   actorID,
		Description: fmt.Sprintf("Created %q priced %s", g.Title, money.Format(g.Price)),
	})
	if err != nil {
		return fmt.Errorf("record create: %w", err)
	}

	return nil
}

// RecordUpdateTx writes one row per field whose value actually changed and
// reports how many were written.
func (r *Recorder) RecordUpdateTx(tx *sql.Tx, gameID, actorID int64, changes []FieldChange) (int, error) {
	recs := make([]history.Record, 0, len(changes))

	for _, c := range changes {
		if c.Old == c.New {
			continue
		}

		recs = append(recs, history.Record{
			GameID:      gameID,
			Action:      history.ActionUpdate,
			FieldName:   c.Field,
			OldValue:    c.Old,
			NewValue:    c.New,
			ChangedBy:   actorID,
			Description: fmt.Sprintf("Changed %s", c.Field),
		})
	}

	if len(recs) == 0 {
		return 0, nil
	}

	err := r.history.Insert(tx, recs...)
	if err != nil {
		return 0, fmt.Errorf("record update: %w", err)
	}

	return len(recs), nil
}

func (r *Recorder) RecordDeleteTx(tx *sql.Tx, g games.Game, actorID int64) error {
	err := r.history.Insert(tx, history.Record{
		GameID:      g.ID,
		Action:      history.ActionDelete,
		OldValue:    g.Title,
		ChangedBy:   actorID,
		Description: fmt.Sprintf("Deleted %q", g.Title),
	})
	if err != nil {
		return fmt.Errorf("record delete: %w", err)
	}

	return nil
}

func (r *Recorder) RecordCreate(ctx context.Context, g games.Game, actorID int64) error {
	return pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.RecordCreateTx(tx, g, actorID)
	})
}

func (r *Recorder) RecordUpdate(ctx context.Context, gameID, actorID int64, changes []FieldChange) (int, error) {
	var n int

	err := pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error

		n, err = r.RecordUpdateTx(tx, gameID, actorID, changes)

		return err
	})

	return n, err
}

func (r *Recorder) RecordDelete(ctx context.Context, g games.Game, actorID int64) error {
	return pgutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return r.RecordDeleteTx(tx, g, actorID)
	})
}

// GameHistory returns every history row of a game, newest first.
func (r *Recorder) GameHistory(ctx context.Context, gameID int64) ([]history.Record, error) {
	recs, err := r.history.ListByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("game history: %w", err)
	}

	return recs, nil
}
