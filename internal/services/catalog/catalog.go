// Package catalog edits games and records each edit in the game history.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	pggames "github.com/fastprodman/gamemarket/internal/repos/games/postgres"
	"github.com/fastprodman/gamemarket/internal/services/audit"
)

var (
	ErrInvalidTitle = errors.New("title must not be empty")
	ErrInvalidPrice = errors.New("price must not be negative")
	ErrNotAuthor    = errors.New("only the author may change a game")
)

// HistoryRecorder is the part of the audit recorder the catalog writes to.
type HistoryRecorder interface {
	RecordCreateTx(tx *sql.Tx, g games.Game, actorID int64) error
	RecordUpdateTx(tx *sql.Tx, gameID, actorID int64, changes []audit.FieldChange) (int, error)
	RecordDeleteTx(tx *sql.Tx, g games.Game, actorID int64) error
}

type Service struct {
	db    *sql.DB
	games games.Games
	audit HistoryRecorder
	log   *slog.Logger
}

func New(dbx *sql.DB, rec HistoryRecorder, log *slog.Logger) *Service {
	return NewWithRepo(dbx, pggames.New(dbx), rec, log)
}

func NewWithRepo(dbx *sql.DB, g games.Games, rec HistoryRecorder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{db: dbx, games: g, audit: rec, log: log}
}

// Update lists the fields to change; nil fields are left alone.
type Update struct {
	Title *string
	Price *decimal.Decimal
}

func (s *Service) Get(ctx context.Context, gameID int64) (games.Game, error) {
	return s.games.Get(ctx, gameID)
}

func (s *Service) Create(ctx context.Context, authorID int64, title string, price decimal.Decimal) (games.Game, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return games.Game{}, ErrInvalidTitle
	}

	price = money.Round(price)
	if price.IsNegative() {
		return games.Game{}, ErrInvalidPrice
	}

	var created games.Game

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.games.Create(tx, games.Game{Title: title, Price: price, AuthorID: authorID})
		if err != nil {
			return err
		}

		err = s.audit.RecordCreateTx(tx, g, authorID)
		if err != nil {
			return err
		}

		created = g

		return nil
	})
	if err != nil {
		return games.Game{}, fmt.Errorf("create game: %w", err)
	}

	s.log.Info("game created", "game_id", created.ID, "author_id", authorID, "price", money.String(price))

	return created, nil
}

func (s *Service) Update(ctx context.Context, actorID, gameID int64, upd Update) (games.Game, error) {
	var updated games.Game

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.games.LockAndGet(tx, gameID)
		if err != nil {
			return err
		}

		if g.AuthorID != actorID {
			return ErrNotAuthor
		}

		next := g
		changes := make([]audit.FieldChange, 0, 2)

		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				return ErrInvalidTitle
			}

			next.Title = title
			changes = append(changes, audit.FieldChange{Field: "title", Old: g.Title, New: title})
		}

		if upd.Price != nil {
			price := money.Round(*upd.Price)
			if price.IsNegative() {
				return ErrInvalidPrice
			}

			next.Price = price
			changes = append(changes, audit.FieldChange{
				Field: "price", Old: money.String(g.Price), New: money.String(price),
			})
		}

		n, err := s.audit.RecordUpdateTx(tx, gameID, actorID, changes)
		if err != nil {
			return err
		}

		if n == 0 {
			updated = g
			return nil
		}

		updated, err = s.games.Update(tx, next)

		return err
	})
	if err != nil {
		return games.Game{}, fmt.Errorf("update game: %w", err)
	}

	return updated, nil
}

// Delete removes a game nobody owns. Its history stays.
func (s *Service) Delete(ctx context.Context, actorID, gameID int64) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.games.LockAndGet(tx, gameID)
		if err != nil {
			return err
		}

		if g.AuthorID != actorID {
			return ErrNotAuthor
		}

		err = s.games.Delete(tx, gameID)
		if err != nil {
			return err
		}

		return s.audit.RecordDeleteTx(tx, g, actorID)
	})
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.log.Info("game deleted", "game_id", gameID, "actor_id", actorID)

	return nil
}
