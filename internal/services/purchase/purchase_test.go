package purchase

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/gamemarket/internal/infra/logging"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/balances"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
	"github.com/fastprodman/gamemarket/internal/services/balance"
)

type fakeWallet struct {
	bal       balances.Balance
	withdrawn []decimal.Decimal
}

func (f *fakeWallet) GetOrCreateTx(_ *sql.Tx, userID int64) (balances.Balance, error) {
	f.bal.UserID = userID
	return f.bal, nil
}

func (f *fakeWallet) WithdrawTx(_ *sql.Tx, b balances.Balance, amount decimal.Decimal, kind ledger.Kind) (balances.Balance, ledger.Entry, error) {
	if kind != ledger.KindPurchase {
		return b, ledger.Entry{}, errors.New("unexpected kind")
	}

	if b.Amount.LessThan(amount) {
		return b, ledger.Entry{}, &balance.InsufficientFundsError{Current: b.Amount, Requested: amount}
	}

	f.withdrawn = append(f.withdrawn, amount)
	b.Amount = b.Amount.Sub(amount)

	return b, ledger.Entry{Kind: kind, Amount: amount}, nil
}

type fakeGames struct {
	games.Games
	byID map[int64]games.Game
}

func (f *fakeGames) FindByID(_ *sql.Tx, id int64) (games.Game, error) {
	g, ok := f.byID[id]
	if !ok {
		return games.Game{}, games.ErrGameNotFound
	}

	return g, nil
}

type fakeOwnerships struct {
	ownership.Ownerships
	owned    map[int64]bool
	granted  []int64
	grantErr error
}

func (f *fakeOwnerships) Exists(_ *sql.Tx, _, gameID int64) (bool, error) {
	return f.owned[gameID], nil
}

func (f *fakeOwnerships) Grant(_ *sql.Tx, _, gameID int64) error {
	if f.grantErr != nil {
		return f.grantErr
	}

	f.granted = append(f.granted, gameID)

	return nil
}

type fakeRecorder struct {
	prices map[int64]decimal.Decimal
	order  []int64
}

func (f *fakeRecorder) RecordPurchase(_ *sql.Tx, gameID, _ int64, pricePaid decimal.Decimal, _ string) error {
	if f.prices == nil {
		f.prices = map[int64]decimal.Decimal{}
	}

	f.prices[gameID] = pricePaid
	f.order = append(f.order, gameID)

	return nil
}

type fakeCart struct {
	ids       []int64
	removed   []int64
	removeErr error
}

func (f *fakeCart) GameIDs(context.Context, int64) ([]int64, error) { return f.ids, nil }

func (f *fakeCart) RemoveGames(_ context.Context, _ int64, ids ...int64) (int64, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}

	f.removed = append(f.removed, ids...)

	return int64(len(ids)), nil
}

type fakeGuard struct {
	busy     bool
	err      error
	released int
}

func (f *fakeGuard) Acquire(context.Context, int64) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}

	if f.busy {
		return nil, false, nil
	}

	return func() { f.released++ }, true, nil
}

const buyer = int64(1)

func catalog() map[int64]games.Game {
	return map[int64]games.Game{
		10: {ID: 10, Title: "Starfall", Price: money.MustParse("10.00"), AuthorID: 3},
		11: {ID: 11, Title: "Harbor", Price: money.MustParse("5.00"), AuthorID: 3},
		12: {ID: 12, Title: "Demo", Price: decimal.Zero, AuthorID: 3},
		13: {ID: 13, Title: "Mine", Price: money.MustParse("2.50"), AuthorID: buyer},
		14: {ID: 14, Title: "Thirds", Price: decimal.RequireFromString("0.333"), AuthorID: 3},
	}
}

type harness struct {
	mock   sqlmock.Sqlmock
	wallet *fakeWallet
	owners *fakeOwnerships
	rec    *fakeRecorder
	cart   *fakeCart
	orch   *Orchestrator
}

func newHarness(t *testing.T, start string) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		mock:   mock,
		wallet: &fakeWallet{bal: balances.Balance{ID: 100, Amount: money.MustParse(start)}},
		owners: &fakeOwnerships{owned: map[int64]bool{}},
		rec:    &fakeRecorder{},
		cart:   &fakeCart{},
	}

	h.orch = NewWithRepos(db, h.wallet, &fakeGames{byID: catalog()}, h.owners, h.rec, h.cart, logging.Discard())

	return h
}

func TestOrchestrator_Checkout_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		start     string
		ids       []int64
		owned     []int64
		wantErr   error
		wantStage Stage
		wantGame  int64
		wantTotal string
		wantItems []int64
		wantDebit []string
	}{
		{
			name:      "two_games_one_debit",
			start:     "20.00",
			ids:       []int64{10, 11},
			wantTotal: "15.00",
			wantItems: []int64{10, 11},
			wantDebit: []string{"15.00"},
		},
		{
			name:      "duplicates_first_occurrence_wins",
			start:     "20.00",
			ids:       []int64{11, 10, 11, 10},
			wantTotal: "15.00",
			wantItems: []int64{11, 10},
			wantDebit: []string{"15.00"},
		},
		{
			name:      "free_game_skips_settling",
			start:     "0.00",
			ids:       []int64{12},
			wantTotal: "0.00",
			wantItems: []int64{12},
		},
		{
			name:      "total_rounded_after_sum",
			start:     "5.00",
			ids:       []int64{14, 12},
			wantTotal: "0.33",
			wantItems: []int64{14, 12},
			wantDebit: []string{"0.33"},
		},
		{
			name:      "insufficient_funds",
			start:     "3.00",
			ids:       []int64{10, 11},
			wantErr:   balance.ErrInsufficientFunds,
			wantStage: StageSettling,
		},
		{
			name:      "already_owned_aborts_everything",
			start:     "20.00",
			ids:       []int64{10, 11},
			owned:     []int64{11},
			wantErr:   ErrGameAlreadyOwned,
			wantStage: StageValidating,
			wantGame:  11,
		},
		{
			name:      "self_purchase",
			start:     "20.00",
			ids:       []int64{13},
			wantErr:   ErrSelfPurchase,
			wantStage: StageValidating,
			wantGame:  13,
		},
		{
			name:      "unknown_game",
			start:     "20.00",
			ids:       []int64{10, 99},
			wantErr:   ErrGameNotFound,
			wantStage: StageValidating,
			wantGame:  99,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, tt.start)
			for _, id := range tt.owned {
				h.owners.owned[id] = true
			}

			h.mock.ExpectBegin()

			if tt.wantErr != nil {
				h.mock.ExpectRollback()
			} else {
				h.mock.ExpectCommit()
			}

			res, err := h.orch.Checkout(t.Context(), buyer, tt.ids)

			require.NoError(t, h.mock.ExpectationsWereMet())

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				var ae *AbortError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, tt.wantStage, ae.Stage)
				assert.Equal(t, tt.wantGame, ae.GameID)
				assert.Empty(t, h.cart.removed)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, money.String(res.TotalAmount))
			assert.Equal(t, len(tt.wantItems), res.ItemsProcessed)
			assert.Equal(t, tt.wantItems, h.owners.granted)
			assert.Equal(t, tt.wantItems, h.rec.order)
			assert.Equal(t, tt.wantItems, h.cart.removed)

			var debits []string
			for _, d := range h.wallet.withdrawn {
				debits = append(debits, money.String(d))
			}

			assert.Equal(t, tt.wantDebit, debits)
		})
	}
}

func TestOrchestrator_Checkout_Empty(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")

	_, err := h.orch.Checkout(t.Context(), buyer, nil)
	require.ErrorIs(t, err, ErrEmptyCheckout)

	var ae *AbortError
	assert.False(t, errors.As(err, &ae))
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestOrchestrator_Checkout_GrantConflictRollsBack(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")
	h.owners.grantErr = ownership.ErrAlreadyOwned

	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	_, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
	require.ErrorIs(t, err, ErrGameAlreadyOwned)

	var ae *AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, StageRecording, ae.Stage)
	require.NoError(t, h.mock.ExpectationsWereMet())
}

func TestOrchestrator_Checkout_TxTimeout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")
	h.orch.WithTxTimeout(20 * time.Millisecond)

	h.mock.ExpectBegin().WillDelayFor(2 * time.Second)

	start := time.Now()
	_, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, h.wallet.withdrawn)
	assert.Empty(t, h.owners.granted)
}

func TestOrchestrator_Checkout_RecordsPricePaid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	res, err := h.orch.Checkout(t.Context(), buyer, []int64{10, 11})
	require.NoError(t, err)

	assert.Equal(t, "10.00", money.String(h.rec.prices[10]))
	assert.Equal(t, "5.00", money.String(h.rec.prices[11]))
	assert.Equal(t, "$15.00", res.FormattedTotal())
	assert.Equal(t, "$5.00", res.FormattedBalance())
	assert.Equal(t, "Purchased 2 game(s) for $15.00", res.Message())
	assert.NotEqual(t, [16]byte{}, [16]byte(res.CheckoutID))
}

func TestOrchestrator_Checkout_CartCleanupFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")
	h.cart.removeErr = errors.New("cart down")

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	res, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ItemsProcessed)
}

func TestOrchestrator_CheckoutCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "20.00")
	h.cart.ids = []int64{11, 10}

	h.mock.ExpectBegin()
	h.mock.ExpectCommit()

	res, err := h.orch.CheckoutCart(t.Context(), buyer)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 10}, h.cart.removed)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Harbor", res.Items[0].Title)

	h.cart.ids = nil

	_, err = h.orch.CheckoutCart(t.Context(), buyer)
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestOrchestrator_Guard(t *testing.T) {
	t.Parallel()

	t.Run("busy", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, "20.00")
		h.orch.WithGuard(&fakeGuard{busy: true})

		_, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
		require.ErrorIs(t, err, ErrCheckoutInProgress)
		require.NoError(t, h.mock.ExpectationsWereMet())
	})

	t.Run("released_after_checkout", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, "20.00")
		g := &fakeGuard{}
		h.orch.WithGuard(g)

		h.mock.ExpectBegin()
		h.mock.ExpectCommit()

		_, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
		require.NoError(t, err)
		assert.Equal(t, 1, g.released)
	})

	t.Run("unavailable_fails_open", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, "20.00")
		h.orch.WithGuard(&fakeGuard{err: errors.New("redis down")})

		h.mock.ExpectBegin()
		h.mock.ExpectCommit()

		_, err := h.orch.Checkout(t.Context(), buyer, []int64{10})
		require.NoError(t, err)
	})
}

func TestAbortError_Message(t *testing.T) {
	t.Parallel()

	err := abort(StageValidating, 7, ErrSelfPurchase)
	assert.Equal(t, "checkout aborted at VALIDATING (game 7): cannot purchase your own game", err.Error())

	err = abort(StageSettling, 0, ErrInvalidPrice)
	assert.Equal(t, "checkout aborted at SETTLING: game has an invalid price", err.Error())
}
