package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/repos/balances"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/history"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
	"github.com/fastprodman/gamemarket/internal/services/audit"
	"github.com/fastprodman/gamemarket/internal/services/balance"
	"github.com/fastprodman/gamemarket/internal/services/cart"
	"github.com/fastprodman/gamemarket/internal/services/catalog"
	"github.com/fastprodman/gamemarket/internal/services/purchase"
)

type BalanceService interface {
	GetOrCreate(ctx context.Context, userID int64) (balances.Balance, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (balance.OperationResult, error)
	AdminDeposit(ctx context.Context, userID int64, amount decimal.Decimal) (balance.OperationResult, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (balance.OperationResult, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, userID int64, gameIDs []int64) (purchase.Result, error)
	CheckoutCart(ctx context.Context, userID int64) (purchase.Result, error)
}

type CartService interface {
	Add(ctx context.Context, userID, gameID int64) error
	Remove(ctx context.Context, userID, gameID int64) error
	Summary(ctx context.Context, userID int64) (cart.Summary, error)
	Library(ctx context.Context, userID int64) ([]ownership.Ownership, error)
}

type HistoryService interface {
	PurchaseHistoryByGame(ctx context.Context, gameID int64, page, size int) (audit.Page, error)
	PurchaseHistoryByUser(ctx context.Context, userID int64, page, size int) (audit.Page, error)
	GameHistory(ctx context.Context, gameID int64) ([]history.Record, error)
}

type CatalogService interface {
	Get(ctx context.Context, gameID int64) (games.Game, error)
	Create(ctx context.Context, authorID int64, title string, price decimal.Decimal) (games.Game, error)
	Update(ctx context.Context, actorID, gameID int64, upd catalog.Update) (games.Game, error)
	Delete(ctx context.Context, actorID, gameID int64) error
}

// Services bundles what the HTTP layer calls into.
type Services struct {
	Balance  BalanceService
	Checkout CheckoutService
	Cart     CartService
	History  HistoryService
	Catalog  CatalogService
}

// HandlerProvider exposes the services as HTTP handlers.
type HandlerProvider struct {
	svc Services
	log *slog.Logger
}

func NewHandler(svc Services, log *slog.Logger) *HandlerProvider {
	if log == nil {
		log = slog.Default()
	}

	return &HandlerProvider{svc: svc, log: log}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseIDParam reads a positive int64 path parameter such as {userId}.
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}

	return id, nil
}

// queryInt returns the named query parameter or def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}

	return n, nil
}

// decodeJSON reads a bounded JSON body into dst and validates it.
// On failure it has already written the 400 response.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")

		return false
	}

	err = validate.Struct(dst)
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]

	return fmt.Sprintf("field %s failed %q validation", fe.Field(), fe.Tag())
}

func (h *HandlerProvider) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid userId in path")
		return 0, false
	}

	return id, true
}

func (h *HandlerProvider) gameID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseIDParam(r, "gameId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid gameId in path")
		return 0, false
	}

	return id, true
}
