package carts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyInCart = errors.New("game already in cart")
	ErrNotInCart     = errors.New("game not in cart")
)

// Line is a cart row joined with the game's current catalog data.
type Line struct {
	GameID   int64
	Title    string
	Price    decimal.Decimal
	AuthorID int64
	AddedAt  time.Time
}

type Carts interface {
	// Lines returns the cart in the order items were added.
	Lines(ctx context.Context, userID int64) ([]Line, error)
	Add(tx *sql.Tx, userID, gameID int64) error
	Remove(ctx context.Context, userID int64, gameIDs ...int64) (int64, error)
	Clear(ctx context.Context, userID int64) error
}
