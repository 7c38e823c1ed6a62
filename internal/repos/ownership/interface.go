package ownership

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrAlreadyOwned is raised by Grant when the (user, game) pair exists. The
// unique constraint behind it is the last guard against double purchase.
var ErrAlreadyOwned = errors.New("game already owned")

type Ownership struct {
	ID          int64
	UserID      int64
	GameID      int64
	GameTitle   string
	PurchasedAt time.Time
}

type Ownerships interface {
	Exists(tx *sql.Tx, userID, gameID int64) (bool, error)
	Grant(tx *sql.Tx, userID, gameID int64) error
	// ListByUser returns the user's library, newest purchase first.
	ListByUser(ctx context.Context, userID int64) ([]Ownership, error)
}
