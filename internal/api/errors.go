package api

import (
	"errors"
	"net/http"

	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/carts"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/users"
	"github.com/fastprodman/gamemarket/internal/services/audit"
	"github.com/fastprodman/gamemarket/internal/services/balance"
	"github.com/fastprodman/gamemarket/internal/services/cart"
	"github.com/fastprodman/gamemarket/internal/services/catalog"
	"github.com/fastprodman/gamemarket/internal/services/purchase"
)

type errorResponse struct {
	Error  string `json:"error"`
	Stage  string `json:"stage,omitempty"`
	GameID int64  `json:"gameId,omitempty"`
}

type errorMapping struct {
	target error
	status int
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{balance.ErrInvalidAmount, http.StatusBadRequest},
	{money.ErrInvalidFormat, http.StatusBadRequest},
	{purchase.ErrEmptyCheckout, http.StatusBadRequest},
	{audit.ErrInvalidPage, http.StatusBadRequest},
	{catalog.ErrInvalidTitle, http.StatusBadRequest},
	{catalog.ErrInvalidPrice, http.StatusBadRequest},
	{catalog.ErrNotAuthor, http.StatusForbidden},
	{users.ErrUserNotFound, http.StatusNotFound},
	{games.ErrGameNotFound, http.StatusNotFound},
	{purchase.ErrGameNotFound, http.StatusNotFound},
	{carts.ErrNotInCart, http.StatusNotFound},
	{balance.ErrInsufficientFunds, http.StatusConflict},
	{purchase.ErrGameAlreadyOwned, http.StatusConflict},
	{purchase.ErrSelfPurchase, http.StatusConflict},
	{purchase.ErrCheckoutInProgress, http.StatusConflict},
	{cart.ErrAlreadyOwned, http.StatusConflict},
	{cart.ErrOwnGame, http.StatusConflict},
	{carts.ErrAlreadyInCart, http.StatusConflict},
	{games.ErrGameHasOwners, http.StatusConflict},
}

// writeServiceError maps a service error to a status and a message that is
// safe to show. Unknown errors are logged and reported as 500.
func (h *HandlerProvider) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{}

	var ae *purchase.AbortError
	if errors.As(err, &ae) {
		resp.Stage = string(ae.Stage)
		resp.GameID = ae.GameID
	}

	if errors.Is(err, balance.ErrConsistencyViolation) {
		h.log.Error("ledger consistency violation", "path", r.URL.Path, "error", err)

		resp.Error = "balance changed concurrently, please retry"
		writeJSON(w, http.StatusConflict, resp)

		return
	}

	var ife *balance.InsufficientFundsError
	if errors.As(err, &ife) {
		resp.Error = ife.Error()
		writeJSON(w, http.StatusConflict, resp)

		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp.Error = m.target.Error()
			writeJSON(w, m.status, resp)

			return
		}
	}

	h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
