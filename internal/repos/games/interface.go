package games

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameHasOwners = errors.New("game has owners")
)

type Game struct {
	ID        int64
	Title     string
	Price     decimal.Decimal
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Games interface {
	Get(ctx context.Context, gameID int64) (Game, error)
	FindByID(tx *sql.Tx, gameID int64) (Game, error)
	// LockAndGet reads the game FOR UPDATE for read-modify-write edits.
	LockAndGet(tx *sql.Tx, gameID int64) (Game, error)
	Create(tx *sql.Tx, g Game) (Game, error)
	Update(tx *sql.Tx, g Game) (Game, error)
	Delete(tx *sql.Tx, gameID int64) error
}
