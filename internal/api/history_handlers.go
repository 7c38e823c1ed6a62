package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/gamemarket/internal/services/audit"
)

type pageLoader func(ctx context.Context, id int64, page, size int) (audit.Page, error)

func (h *HandlerProvider) purchasePage(w http.ResponseWriter, r *http.Request, id int64, load pageLoader) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}

	size, err := queryInt(r, "size", audit.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid size")
		return
	}

	if audit.CheckPage(page, size) != nil {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}

	p, err := load(r.Context(), id, page, size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPurchasePageResponse(p))
}

// GamePurchasesHandler handles GET /games/{gameId}/purchases?page=&size=
func (h *HandlerProvider) GamePurchasesHandler(w http.ResponseWriter, r *http.Request) {
	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	h.purchasePage(w, r, gameID, h.svc.History.PurchaseHistoryByGame)
}

// UserPurchasesHandler handles GET /users/{userId}/purchases?page=&size=
func (h *HandlerProvider) UserPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	h.purchasePage(w, r, userID, h.svc.History.PurchaseHistoryByUser)
}

// GameHistoryHandler handles GET /games/{gameId}/history
func (h *HandlerProvider) GameHistoryHandler(w http.ResponseWriter, r *http.Request) {
	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	recs, err := h.svc.History.GameHistory(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]historyResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newHistoryResponse(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"gameId": gameID, "history": out})
}
