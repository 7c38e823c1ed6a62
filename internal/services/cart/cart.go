// Package cart manages the per-user list of games staged for checkout.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/carts"
	pgcarts "github.com/fastprodman/gamemarket/internal/repos/carts/postgres"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	pggames "github.com/fastprodman/gamemarket/internal/repos/games/postgres"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
	pgownership "github.com/fastprodman/gamemarket/internal/repos/ownership/postgres"
)

var (
	ErrAlreadyOwned = errors.New("game already owned")
	ErrOwnGame      = errors.New("cannot add your own game to the cart")
)

type Service struct {
	db         *sql.DB
	games      games.Games
	ownerships ownership.Ownerships
	carts      carts.Carts
	log        *slog.Logger
}

func New(dbx *sql.DB, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		db:         dbx,
		games:      pggames.New(dbx),
		ownerships: pgownership.New(dbx),
		carts:      pgcarts.New(dbx),
		log:        log,
	}
}

// Summary is the cart with its priced total.
type Summary struct {
	Lines []carts.Line
	Count int
	Total decimal.Decimal
}

func (s Summary) FormattedTotal() string { return money.Format(s.Total) }

func (s *Service) Add(ctx context.Context, userID, gameID int64) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.games.FindByID(tx, gameID)
		if err != nil {
			return err
		}

		if g.AuthorID == userID {
			return ErrOwnGame
		}

		owned, err := s.ownerships.Exists(tx, userID, gameID)
		if err != nil {
			return err
		}

		if owned {
			return ErrAlreadyOwned
		}

		return s.carts.Add(tx, userID, gameID)
	})
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}

	return nil
}

func (s *Service) Remove(ctx context.Context, userID, gameID int64) error {
	n, err := s.carts.Remove(ctx, userID, gameID)
	if err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}

	if n == 0 {
		return carts.ErrNotInCart
	}

	return nil
}

// RemoveGames drops the given games from the cart; missing ones are ignored.
func (s *Service) RemoveGames(ctx context.Context, userID int64, gameIDs ...int64) (int64, error) {
	return s.carts.Remove(ctx, userID, gameIDs...)
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.carts.Clear(ctx, userID)
}

// Lines returns the cart in insertion order, skipping games the user already
// owns (rows left behind when a post-checkout cleanup failed).
func (s *Service) Lines(ctx context.Context, userID int64) ([]carts.Line, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return lines, nil
	}

	owned, err := s.ownerships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(owned) == 0 {
		return lines, nil
	}

	have := make(map[int64]struct{}, len(owned))
	for _, o := range owned {
		have[o.GameID] = struct{}{}
	}

	out := lines[:0]

	for _, l := range lines {
		if _, ok := have[l.GameID]; ok {
			continue
		}

		out = append(out, l)
	}

	return out, nil
}

// GameIDs lists the cart's game ids in insertion order.
func (s *Service) GameIDs(ctx context.Context, userID int64) ([]int64, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.GameID)
	}

	return ids, nil
}

func (s *Service) Summary(ctx context.Context, userID int64) (Summary, error) {
	lines, err := s.Lines(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("cart summary: %w", err)
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price)
	}

	return Summary{Lines: lines, Count: len(lines), Total: money.Round(total)}, nil
}

// Library lists the games the user owns, newest first.
func (s *Service) Library(ctx context.Context, userID int64) ([]ownership.Ownership, error) {
	return s.ownerships.ListByUser(ctx, userID)
}
