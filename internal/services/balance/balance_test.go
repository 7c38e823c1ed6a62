package balance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/gamemarket/internal/infra/logging"
	"github.com/fastprodman/gamemarket/internal/infra/pgtestutil"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/balances"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	"github.com/fastprodman/gamemarket/internal/repos/users"
)

func TestInsufficientFundsError(t *testing.T) {
	t.Parallel()

	err := error(&InsufficientFundsError{
		Current:   money.MustParse("5.00"),
		Requested: money.MustParse("15.00"),
	})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "insufficient funds: balance $5.00, requested $15.00", err.Error())

	var target *InsufficientFundsError
	require.ErrorAs(t, err, &target)
	assert.True(t, target.Requested.Equal(money.MustParse("15")))
}

func TestHasSufficientFunds(t *testing.T) {
	t.Parallel()

	s := &BalanceService{}
	b := balances.Balance{Amount: money.MustParse("10.00")}

	assert.True(t, s.HasSufficientFunds(b, money.MustParse("10.00")))
	assert.True(t, s.HasSufficientFunds(b, money.MustParse("9.99")))
	assert.False(t, s.HasSufficientFunds(b, money.MustParse("10.01")))
	assert.True(t, s.HasSufficientFunds(b, decimal.Zero))
}

func TestBalanceService_GetOrCreate(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	uid := pgtestutil.SeedUser(t, db, "alice")
	svc := New(db, logging.Discard())

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	b, err := svc.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, uid, b.UserID)
	assert.True(t, b.Amount.IsZero())

	again, err := svc.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID)

	assert.Equal(t, 1, pgtestutil.Count(t, db, `SELECT COUNT(*) FROM balances WHERE user_id = $1`, uid))

	_, err = svc.GetOrCreate(ctx, 999_999)
	require.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestBalanceService_TxTimeout(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	svc := NewWithRepos(db, nil, nil, logging.Discard()).WithTxTimeout(20 * time.Millisecond)

	mock.ExpectBegin().WillDelayFor(2 * time.Second)

	start := time.Now()
	_, err = svc.Deposit(t.Context(), 1, money.MustParse("1.00"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBalanceService_DepositWithdraw_Table(t *testing.T) {
	t.Parallel()

	type op struct {
		kind   ledger.Kind
		amount string
	}

	tests := []struct {
		name        string
		ops         []op
		wantErr     error
		wantBalance string
		wantEntries int
	}{
		{
			name:        "deposit_then_withdraw",
			ops:         []op{{ledger.KindDeposit, "20.00"}, {ledger.KindWithdrawal, "7.50"}},
			wantBalance: "12.50",
			wantEntries: 2,
		},
		{
			name:        "admin_deposit",
			ops:         []op{{ledger.KindAdminDeposit, "100"}},
			wantBalance: "100.00",
			wantEntries: 1,
		},
		{
			name:        "withdraw_exact_balance",
			ops:         []op{{ledger.KindDeposit, "5.00"}, {ledger.KindWithdrawal, "5.00"}},
			wantBalance: "0.00",
			wantEntries: 2,
		},
		{
			name:        "withdraw_more_than_balance",
			ops:         []op{{ledger.KindDeposit, "5.00"}, {ledger.KindWithdrawal, "5.01"}},
			wantErr:     ErrInsufficientFunds,
			wantBalance: "5.00",
			wantEntries: 1,
		},
		{
			name:        "zero_amount_rejected",
			ops:         []op{{ledger.KindDeposit, "0"}},
			wantErr:     ErrInvalidAmount,
			wantBalance: "0.00",
			wantEntries: 0,
		},
		{
			name:        "negative_amount_rejected",
			ops:         []op{{ledger.KindDeposit, "-3"}},
			wantErr:     ErrInvalidAmount,
			wantBalance: "0.00",
			wantEntries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()

			uid := pgtestutil.SeedUser(t, db, "u_"+tt.name)
			svc := New(db, logging.Discard())

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			var err error

			for _, o := range tt.ops {
				amt := decimal.RequireFromString(o.amount)

				switch o.kind {
				case ledger.KindDeposit:
					_, err = svc.Deposit(ctx, uid, amt)
				case ledger.KindAdminDeposit:
					_, err = svc.AdminDeposit(ctx, uid, amt)
				case ledger.KindWithdrawal:
					_, err = svc.Withdraw(ctx, uid, amt)
				}
			}

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			b, err := svc.GetOrCreate(ctx, uid)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, money.String(b.Amount))

			entries, err := svc.ListTransactions(ctx, uid, 0)
			require.NoError(t, err)
			assert.Len(t, entries, tt.wantEntries)
		})
	}
}

func TestBalanceService_LedgerChain(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	uid := pgtestutil.SeedUser(t, db, "chain")
	svc := New(db, logging.Discard())
	ctx := t.Context()

	res, err := svc.Deposit(ctx, uid, money.MustParse("20.00"))
	require.NoError(t, err)
	assert.Equal(t, "$20.00", res.FormattedBalance())
	assert.Equal(t, "$20.00", res.FormattedAmount())

	_, err = svc.Withdraw(ctx, uid, money.MustParse("3.25"))
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, uid, money.MustParse("0.10"))
	require.NoError(t, err)

	entries, err := svc.ListTransactions(ctx, uid, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first; walk oldest to newest
	for i := len(entries) - 1; i > 0; i-- {
		older, newer := entries[i], entries[i-1]
		assert.True(t, older.BalanceAfter.Equal(newer.BalanceBefore),
			"gap between entry %d and %d", older.ID, newer.ID)
	}

	assert.Equal(t, "16.85", money.String(entries[0].BalanceAfter))
	assert.Equal(t, ledger.KindDeposit, entries[0].Kind)
	assert.Equal(t, ledger.KindWithdrawal, entries[1].Kind)
}

func TestBalanceService_DetectsTamperedBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	uid := pgtestutil.SeedUser(t, db, "tampered")
	svc := New(db, logging.Discard())
	ctx := t.Context()

	_, err := svc.Deposit(ctx, uid, money.MustParse("10.00"))
	require.NoError(t, err)

	// bypass the service: the ledger no longer explains the balance
	pgtestutil.SeedBalance(t, db, uid, "50.00")

	_, err = svc.Withdraw(ctx, uid, money.MustParse("1.00"))
	require.ErrorIs(t, err, ErrConsistencyViolation)

	b, err := svc.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "50.00", money.String(b.Amount))
}

func TestBalanceService_ConcurrentWithdrawals(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	uid := pgtestutil.SeedUser(t, db, "racer")
	svc := New(db, logging.Discard())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()

	_, err := svc.Deposit(ctx, uid, money.MustParse("10.00"))
	require.NoError(t, err)

	const workers = 8

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Withdraw(ctx, uid, money.MustParse("3.00"))

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientFunds):
				fail++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, workers-3, fail)

	b, err := svc.GetOrCreate(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "1.00", money.String(b.Amount))
}

func TestBalanceService_ListTransactions_NoBalance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	uid := pgtestutil.SeedUser(t, db, "fresh")
	svc := New(db, logging.Discard())

	entries, err := svc.ListTransactions(t.Context(), uid, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
