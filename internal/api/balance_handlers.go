package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/services/balance"
)

// GetBalanceHandler handles GET /users/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	b, err := h.svc.Balance.GetOrCreate(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:           userID,
		Balance:          money.String(b.Amount),
		FormattedBalance: money.Format(b.Amount),
	})
}

type balanceOp func(ctx context.Context, userID int64, amount decimal.Decimal) (balance.OperationResult, error)

func (h *HandlerProvider) balanceOperation(op balanceOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userID(w, r)
		if !ok {
			return
		}

		var req amountRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		amount, err := money.Parse(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount supports up to 2 decimals")
			return
		}

		res, err := op(r.Context(), userID, amount)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, newOperationResponse(res))
	}
}

// DepositHandler handles POST /users/{userId}/balance/deposit
func (h *HandlerProvider) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(h.svc.Balance.Deposit)(w, r)
}

// WithdrawHandler handles POST /users/{userId}/balance/withdraw
func (h *HandlerProvider) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(h.svc.Balance.Withdraw)(w, r)
}

// AdminDepositHandler handles POST /admin/users/{userId}/balance/deposit
func (h *HandlerProvider) AdminDepositHandler(w http.ResponseWriter, r *http.Request) {
	h.balanceOperation(h.svc.Balance.AdminDeposit)(w, r)
}

// ListTransactionsHandler handles GET /users/{userId}/transactions?limit=
func (h *HandlerProvider) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", balance.DefaultListLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	entries, err := h.svc.Balance.ListTransactions(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newTransactionResponse(e))
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "transactions": out})
}
