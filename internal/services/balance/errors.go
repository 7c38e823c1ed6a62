package balance

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/money"
)

var (
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConsistencyViolation means the ledger chain or the stored balance
	// disagrees with the mutation being applied; the transaction must abort.
	ErrConsistencyViolation = errors.New("ledger consistency violation")
)

// InsufficientFundsError carries the amounts for a user-facing message.
type InsufficientFundsError struct {
	Current   decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, requested %s",
		money.Format(e.Current), money.Format(e.Requested))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
