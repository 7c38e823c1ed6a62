package balance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/metrics"
	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/balances"
	pgbalances "github.com/fastprodman/gamemarket/internal/repos/balances/postgres"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	pgledger "github.com/fastprodman/gamemarket/internal/repos/ledger/postgres"
	"github.com/fastprodman/gamemarket/internal/repos/users"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type BalanceService struct {
	db       *sql.DB
	balances balances.Balances
	ledger   ledger.Ledger
	log      *slog.Logger

	txTimeout time.Duration
}

func New(dbx *sql.DB, log *slog.Logger) *BalanceService {
	return NewWithRepos(dbx, pgbalances.New(dbx), pgledger.New(dbx), log)
}

func NewWithRepos(
	dbx *sql.DB,
	b balances.Balances,
	l ledger.Ledger,
	log *slog.Logger,
) *BalanceService {
	if log == nil {
		log = slog.Default()
	}

	return &BalanceService{db: dbx, balances: b, ledger: l, log: log}
}

// WithTxTimeout bounds every deposit and withdrawal transaction. Zero
// leaves the caller's context as is.
func (s *BalanceService) WithTxTimeout(d time.Duration) *BalanceService {
	s.txTimeout = d
	return s
}

// OperationResult is what deposit/withdraw report back to callers.
type OperationResult struct {
	UserID  int64
	Kind    ledger.Kind
	Amount  decimal.Decimal
	Balance decimal.Decimal
	Entry   ledger.Entry
}

func (r OperationResult) FormattedAmount() string  { return money.Format(r.Amount) }
func (r OperationResult) FormattedBalance() string { return money.Format(r.Balance) }

// GetOrCreate returns the user's balance, creating a zero balance on first access.
func (s *BalanceService) GetOrCreate(ctx context.Context, userID int64) (balances.Balance, error) {
	b, err := s.balances.Get(ctx, userID)
	if err == nil {
		return b, nil
	}

	if !errors.Is(err, balances.ErrBalanceNotFound) {
		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var terr error

		b, terr = s.GetOrCreateTx(tx, userID)

		return terr
	})
	if err != nil {
		return balances.Balance{}, fmt.Errorf("get or create balance: %w", err)
	}

	return b, nil
}

// GetOrCreateTx ensures the balance row exists and locks it for the rest of tx.
// Every mutation of the user's money goes through this lock. An unknown user
// fails the balance's foreign key and yields users.ErrUserNotFound.
func (s *BalanceService) GetOrCreateTx(tx *sql.Tx, userID int64) (balances.Balance, error) {
	err := s.balances.Ensure(tx, userID)
	if err != nil {
		return balances.Balance{}, fmt.Errorf("ensure balance: %w", err)
	}

	b, err := s.balances.LockAndGet(tx, userID)
	if err != nil {
		return balances.Balance{}, fmt.Errorf("lock and get balance: %w", err)
	}

	return b, nil
}

// HasSufficientFunds reports whether b covers amount.
func (s *BalanceService) HasSufficientFunds(b balances.Balance, amount decimal.Decimal) bool {
	return b.Amount.GreaterThanOrEqual(money.Round(amount))
}

func (s *BalanceService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (OperationResult, error) {
	return s.apply(ctx, userID, amount, ledger.KindDeposit)
}

// AdminDeposit credits the balance on an operator's behalf; it is recorded
// with its own ledger kind.
func (s *BalanceService) AdminDeposit(ctx context.Context, userID int64, amount decimal.Decimal) (OperationResult, error) {
	return s.apply(ctx, userID, amount, ledger.KindAdminDeposit)
}

func (s *BalanceService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (OperationResult, error) {
	return s.apply(ctx, userID, amount, ledger.KindWithdrawal)
}

// apply runs one mutation in its own transaction:
//
// 1) Validate amount.
// 2) Ensure + lock the balance row (FOR UPDATE).
// 3) Apply the effect and append the ledger entry.
func (s *BalanceService) apply(ctx context.Context, userID int64, amount decimal.Decimal, kind ledger.Kind) (OperationResult, error) {
	amount, err := validAmount(amount)
	if err != nil {
		metrics.ObserveBalanceOp(string(kind), "rejected")
		return OperationResult{}, err
	}

	var res OperationResult

	ctx, cancel := pgutils.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		b, err := s.GetOrCreateTx(tx, userID)
		if err != nil {
			return err
		}

		var entry ledger.Entry
		if kind.Credit() {
			b, entry, err = s.DepositTx(tx, b, amount, kind)
		} else {
			b, entry, err = s.WithdrawTx(tx, b, amount, kind)
		}

		if err != nil {
			return err
		}

		res = OperationResult{UserID: userID, Kind: kind, Amount: amount, Balance: b.Amount, Entry: entry}

		return nil
	})
	if err != nil {
		metrics.ObserveBalanceOp(string(kind), resultLabel(err))
		s.log.Warn("balance operation failed",
			"user_id", userID, "kind", kind, "amount", money.String(amount), "error", err)

		return OperationResult{}, fmt.Errorf("%s: %w", kindVerb(kind), err)
	}

	metrics.ObserveBalanceOp(string(kind), "ok")
	s.log.Info("balance updated",
		"user_id", userID, "kind", kind, "amount", money.String(amount), "balance", money.String(res.Balance))

	return res, nil
}

// DepositTx credits a balance locked by GetOrCreateTx.
func (s *BalanceService) DepositTx(tx *sql.Tx, b balances.Balance, amount decimal.Decimal, kind ledger.Kind) (balances.Balance, ledger.Entry, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return b, ledger.Entry{}, err
	}

	if !kind.Credit() {
		return b, ledger.Entry{}, fmt.Errorf("deposit with debit kind %s", kind)
	}

	after, err := s.balances.Increase(tx, b.ID, amount)
	if err != nil {
		return b, ledger.Entry{}, fmt.Errorf("increase balance: %w", err)
	}

	return s.record(tx, b, kind, amount, after)
}

// WithdrawTx debits a balance locked by GetOrCreateTx.
func (s *BalanceService) WithdrawTx(tx *sql.Tx, b balances.Balance, amount decimal.Decimal, kind ledger.Kind) (balances.Balance, ledger.Entry, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return b, ledger.Entry{}, err
	}

	if kind.Credit() {
		return b, ledger.Entry{}, fmt.Errorf("withdraw with credit kind %s", kind)
	}

	if !s.HasSufficientFunds(b, amount) {
		return b, ledger.Entry{}, &InsufficientFundsError{Current: b.Amount, Requested: amount}
	}

	after, err := s.balances.Decrease(tx, b.ID, amount)
	if err != nil {
		if errors.Is(err, balances.ErrInsufficientFunds) {
			// The locked snapshot said otherwise; the row changed under us.
			return b, ledger.Entry{}, fmt.Errorf("decrease balance: %w", ErrConsistencyViolation)
		}

		return b, ledger.Entry{}, fmt.Errorf("decrease balance: %w", err)
	}

	return s.record(tx, b, kind, amount, after)
}

// record checks the no-gap chain and appends the ledger entry for a mutation
// that moved b.Amount to after.
func (s *BalanceService) record(tx *sql.Tx, b balances.Balance, kind ledger.Kind, amount, after decimal.Decimal) (balances.Balance, ledger.Entry, error) {
	expected := b.Amount.Add(amount)
	if !kind.Credit() {
		expected = b.Amount.Sub(amount)
	}

	if !after.Equal(money.Round(expected)) {
		return b, ledger.Entry{}, fmt.Errorf("balance %d moved to %s, expected %s: %w",
			b.ID, money.String(after), money.String(expected), ErrConsistencyViolation)
	}

	last, ok, err := s.ledger.Last(tx, b.ID)
	if err != nil {
		return b, ledger.Entry{}, fmt.Errorf("load last ledger entry: %w", err)
	}

	if ok && !last.BalanceAfter.Equal(b.Amount) {
		return b, ledger.Entry{}, fmt.Errorf("ledger entry %d ends at %s but balance %d holds %s: %w",
			last.ID, money.String(last.BalanceAfter), b.ID, money.String(b.Amount), ErrConsistencyViolation)
	}

	entry, err := s.ledger.Append(tx, ledger.Entry{
		BalanceID:     b.ID,
		Kind:          kind,
		Amount:        amount,
		BalanceBefore: b.Amount,
		BalanceAfter:  after,
	})
	if err != nil {
		return b, ledger.Entry{}, fmt.Errorf("append ledger entry: %w", err)
	}

	b.Amount = after

	return b, entry, nil
}

// ListTransactions returns the user's ledger, newest first.
func (s *BalanceService) ListTransactions(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	limit = min(limit, MaxListLimit)

	b, err := s.balances.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, balances.ErrBalanceNotFound) {
			return []ledger.Entry{}, nil
		}

		return nil, fmt.Errorf("get balance: %w", err)
	}

	entries, err := s.ledger.List(ctx, b.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return entries, nil
}

func validAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

func kindVerb(k ledger.Kind) string {
	switch k {
	case ledger.KindDeposit:
		return "deposit"
	case ledger.KindAdminDeposit:
		return "admin deposit"
	case ledger.KindPurchase:
		return "purchase"
	default:
		return "withdraw"
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, users.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrConsistencyViolation):
		return "consistency_violation"
	default:
		return "error"
	}
}
