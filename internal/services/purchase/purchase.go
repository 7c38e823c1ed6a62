// Package purchase settles a checkout: it validates the requested games,
// prices them, debits the buyer once and records ownership and history per
// game, all inside one database transaction.
package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/infra/metrics"
	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/balances"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	pggames "github.com/fastprodman/gamemarket/internal/repos/games/postgres"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
	pgownership "github.com/fastprodman/gamemarket/internal/repos/ownership/postgres"
)

// Wallet is the slice of the balance service used while settling.
type Wallet interface {
	GetOrCreateTx(tx *sql.Tx, userID int64) (balances.Balance, error)
	WithdrawTx(tx *sql.Tx, b balances.Balance, amount decimal.Decimal, kind ledger.Kind) (balances.Balance, ledger.Entry, error)
}

type Recorder interface {
	RecordPurchase(tx *sql.Tx, gameID, buyerID int64, pricePaid decimal.Decimal, description string) error
}

// Cart is the buyer's staged games. RemoveGames runs after commit.
type Cart interface {
	GameIDs(ctx context.Context, userID int64) ([]int64, error)
	RemoveGames(ctx context.Context, userID int64, gameIDs ...int64) (int64, error)
}

// Guard rejects a second checkout for a user while one is running.
// ok is false when another holder owns the user's slot.
type Guard interface {
	Acquire(ctx context.Context, userID int64) (release func(), ok bool, err error)
}

type Item struct {
	GameID    int64
	Title     string
	PricePaid decimal.Decimal
}

type Result struct {
	CheckoutID     uuid.UUID
	UserID         int64
	ItemsProcessed int
	TotalAmount    decimal.Decimal
	Items          []Item
	Balance        decimal.Decimal
}

func (r Result) FormattedTotal() string   { return money.Format(r.TotalAmount) }
func (r Result) FormattedBalance() string { return money.Format(r.Balance) }

// Message is the one-line summary shown to the buyer.
func (r Result) Message() string {
	return fmt.Sprintf("Purchased %d game(s) for %s", r.ItemsProcessed, r.FormattedTotal())
}

type Orchestrator struct {
	db         *sql.DB
	wallet     Wallet
	games      games.Games
	ownerships ownership.Ownerships
	recorder   Recorder
	cart       Cart
	guard      Guard
	txTimeout  time.Duration
	log        *slog.Logger
}

func New(dbx *sql.DB, w Wallet, rec Recorder, cart Cart, log *slog.Logger) *Orchestrator {
	return NewWithRepos(dbx, w, pggames.New(dbx), pgownership.New(dbx), rec, cart, log)
}

func NewWithRepos(
	dbx *sql.DB,
	w Wallet,
	g games.Games,
	o ownership.Ownerships,
	rec Recorder,
	cart Cart,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}

	return &Orchestrator{
		db:         dbx,
		wallet:     w,
		games:      g,
		ownerships: o,
		recorder:   rec,
		cart:       cart,
		log:        log,
	}
}

// WithGuard installs an in-flight guard; nil disables it.
func (o *Orchestrator) WithGuard(g Guard) *Orchestrator {
	o.guard = g
	return o
}

// WithTxTimeout bounds each settlement transaction, including the wait for
// the buyer's balance lock. Zero leaves the caller's context as is.
func (o *Orchestrator) WithTxTimeout(d time.Duration) *Orchestrator {
	o.txTimeout = d
	return o
}

// CheckoutCart buys everything in the user's cart.
func (o *Orchestrator) CheckoutCart(ctx context.Context, userID int64) (Result, error) {
	if o.cart == nil {
		return Result{}, ErrEmptyCheckout
	}

	ids, err := o.cart.GameIDs(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("read cart: %w", err)
	}

	return o.Checkout(ctx, userID, ids)
}

// Checkout buys gameIDs for userID. Duplicate ids count once, first
// occurrence wins. Either every game is granted and the buyer debited once
// for the total, or nothing changes.
func (o *Orchestrator) Checkout(ctx context.Context, userID int64, gameIDs []int64) (Result, error) {
	start := time.Now()

	ids := dedupe(gameIDs)
	if len(ids) == 0 {
		metrics.ObserveCheckout("rejected", 0, time.Since(start))
		return Result{}, ErrEmptyCheckout
	}

	if o.guard != nil {
		release, ok, err := o.guard.Acquire(ctx, userID)

		switch {
		case err != nil:
			// Row locks still serialize the user; the guard only fails fast.
			o.log.Warn("checkout guard unavailable", "user_id", userID, "error", err)
		case !ok:
			metrics.ObserveCheckout("rejected", 0, time.Since(start))
			return Result{}, ErrCheckoutInProgress
		default:
			defer release()
		}
	}

	checkoutID := uuid.New()
	log := o.log.With("checkout_id", checkoutID.String(), "user_id", userID)

	res, err := o.settle(ctx, log, checkoutID, userID, ids)
	if err != nil {
		var ae *AbortError
		if errors.As(err, &ae) {
			log.Warn("checkout aborted", "stage", ae.Stage, "game_id", ae.GameID, "error", ae.Err)
			metrics.ObserveCheckout("aborted", 0, time.Since(start))
		} else {
			log.Error("checkout failed", "error", err)
			metrics.ObserveCheckout("error", 0, time.Since(start))
		}

		return Result{}, err
	}

	if o.cart != nil {
		_, cerr := o.cart.RemoveGames(ctx, userID, ids...)
		if cerr != nil {
			log.Warn("cart cleanup after checkout failed", "error", cerr)
		}
	}

	metrics.ObserveCheckout("completed", res.ItemsProcessed, time.Since(start))
	log.Info("checkout completed",
		"operation", "checkout",
		"message", res.Message(),
		"item_count", res.ItemsProcessed,
		"total", money.String(res.TotalAmount),
		"formatted_total", res.FormattedTotal(),
	)

	return res, nil
}

func (o *Orchestrator) settle(ctx context.Context, log *slog.Logger, checkoutID uuid.UUID, userID int64, ids []int64) (Result, error) {
	var res Result

	ctx, cancel := pgutils.WithTimeout(ctx, o.txTimeout)
	defer cancel()

	err := pgutils.WithTx(ctx, o.db, func(tx *sql.Tx) error {
		// The balance lock comes first so the user's checkouts queue here
		// and each one validates against committed ownership.
		bal, err := o.wallet.GetOrCreateTx(tx, userID)
		if err != nil {
			return abort(StageValidating, 0, err)
		}

		log.Debug("checkout stage", "stage", StageValidating, "items", len(ids))

		validated, err := o.validate(tx, userID, ids)
		if err != nil {
			return err
		}

		log.Debug("checkout stage", "stage", StagePricing)

		items, total, err := price(validated)
		if err != nil {
			return err
		}

		if total.IsPositive() {
			log.Debug("checkout stage", "stage", StageSettling, "total", money.String(total))

			bal, _, err = o.wallet.WithdrawTx(tx, bal, total, ledger.KindPurchase)
			if err != nil {
				return abort(StageSettling, 0, err)
			}
		}

		log.Debug("checkout stage", "stage", StageRecording)

		desc := fmt.Sprintf("Checkout %s", checkoutID)

		for _, it := range items {
			err = o.ownerships.Grant(tx, userID, it.GameID)
			if err != nil {
				if errors.Is(err, ownership.ErrAlreadyOwned) {
					err = ErrGameAlreadyOwned
				}

				return abort(StageRecording, it.GameID, err)
			}

			err = o.recorder.RecordPurchase(tx, it.GameID, userID, it.PricePaid, desc)
			if err != nil {
				return abort(StageRecording, it.GameID, err)
			}
		}

		res = Result{
			CheckoutID:     checkoutID,
			UserID:         userID,
			ItemsProcessed: len(items),
			TotalAmount:    total,
			Items:          items,
			Balance:        bal.Amount,
		}

		return nil
	})
	if err != nil {
		return Result{}, err
	}

	return res, nil
}

// validate reads every requested game inside tx, in request order, and fails
// on the first ineligible one.
func (o *Orchestrator) validate(tx *sql.Tx, userID int64, ids []int64) ([]games.Game, error) {
	out := make([]games.Game, 0, len(ids))

	for _, id := range ids {
		g, err := o.games.FindByID(tx, id)
		if err != nil {
			if errors.Is(err, games.ErrGameNotFound) {
				return nil, abort(StageValidating, id, ErrGameNotFound)
			}

			return nil, abort(StageValidating, id, err)
		}

		if g.AuthorID == userID {
			return nil, abort(StageValidating, id, ErrSelfPurchase)
		}

		owned, err := o.ownerships.Exists(tx, userID, id)
		if err != nil {
			return nil, abort(StageValidating, id, err)
		}

		if owned {
			return nil, abort(StageValidating, id, ErrGameAlreadyOwned)
		}

		out = append(out, g)
	}

	return out, nil
}

// price captures each game's current price; the total is rounded after
// summation.
func price(gs []games.Game) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(gs))
	total := decimal.Zero

	for _, g := range gs {
		if g.Price.IsNegative() {
			return nil, decimal.Zero, abort(StagePricing, g.ID, ErrInvalidPrice)
		}

		items = append(items, Item{GameID: g.ID, Title: g.Title, PricePaid: money.Round(g.Price)})
		total = total.Add(g.Price)
	}

	return items, money.Round(total), nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
