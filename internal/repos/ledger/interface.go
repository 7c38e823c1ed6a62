package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit      Kind = "DEPOSIT"
	KindWithdrawal   Kind = "WITHDRAWAL"
	KindAdminDeposit Kind = "ADMIN_DEPOSIT"
	KindPurchase     Kind = "PURCHASE"
)

// Credit reports whether the kind adds to the balance.
func (k Kind) Credit() bool {
	return k == KindDeposit || k == KindAdminDeposit
}

func (k Kind) Valid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindAdminDeposit, KindPurchase:
		return true
	default:
		return false
	}
}

// Entry is one immutable balance transaction. BalanceAfter of an entry equals
// BalanceBefore of the next entry for the same balance.
type Entry struct {
	ID            int64
	BalanceID     int64
	Kind          Kind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

type Ledger interface {
	// Append is the only write. ID and CreatedAt are assigned by the store.
	Append(tx *sql.Tx, e Entry) (Entry, error)
	// Last returns the newest entry for the balance; ok is false when empty.
	Last(tx *sql.Tx, balanceID int64) (e Entry, ok bool, err error)
	// List returns up to limit entries, newest first.
	List(ctx context.Context, balanceID int64, limit int) ([]Entry, error)
}
