package balances

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Balance is one user's spendable amount. Identity is ID; two values with the
// same ID are the same balance regardless of Amount.
type Balance struct {
	ID        int64
	UserID    int64
	Amount    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Balances interface {
	// Ensure creates a zero balance for userID unless one exists.
	Ensure(tx *sql.Tx, userID int64) error
	Get(ctx context.Context, userID int64) (Balance, error)
	LockAndGet(tx *sql.Tx, userID int64) (Balance, error)
	// Increase and Decrease return the amount after the update.
	Increase(tx *sql.Tx, balanceID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Decrease(tx *sql.Tx, balanceID int64, amount decimal.Decimal) (decimal.Decimal, error)
}
