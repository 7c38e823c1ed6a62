package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionCreate   Action = "CREATE"
	ActionUpdate   Action = "UPDATE"
	ActionDelete   Action = "DELETE"
	ActionPurchase Action = "PURCHASE"
)

// Record is one immutable game history row. Empty FieldName / OldValue /
// NewValue are stored as NULL.
type Record struct {
	ID          int64
	GameID      int64
	Action      Action
	FieldName   string
	OldValue    string
	NewValue    string
	ChangedBy   int64
	Description string
	CreatedAt   time.Time
}

// Purchase is a PURCHASE record joined with the game's present state.
// CurrentPrice is invalid when the game no longer exists.
type Purchase struct {
	ID           int64
	GameID       int64
	GameTitle    string
	BuyerID      int64
	PricePaid    decimal.Decimal
	CurrentPrice decimal.NullDecimal
	Description  string
	PurchasedAt  time.Time
}

type History interface {
	// Insert appends rows; existing rows are never touched.
	Insert(tx *sql.Tx, recs ...Record) error
	ListByGame(ctx context.Context, gameID int64) ([]Record, error)
	PurchasesByGame(ctx context.Context, gameID int64, limit, offset int) ([]Purchase, int, error)
	PurchasesByUser(ctx context.Context, userID int64, limit, offset int) ([]Purchase, int, error)
}
