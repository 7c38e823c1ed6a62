package api

import (
	"net/http"

	"github.com/fastprodman/gamemarket/internal/money"
)

// GetCartHandler handles GET /users/{userId}/cart
func (h *HandlerProvider) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	sum, err := h.svc.Cart.Summary(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]cartLineResponse, 0, len(sum.Lines))
	for _, l := range sum.Lines {
		items = append(items, newCartLineResponse(l))
	}

	writeJSON(w, http.StatusOK, cartResponse{
		UserID:         userID,
		Items:          items,
		Count:          sum.Count,
		Total:          money.String(sum.Total),
		FormattedTotal: sum.FormattedTotal(),
	})
}

// AddToCartHandler handles POST /users/{userId}/cart
func (h *HandlerProvider) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req cartAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.svc.Cart.Add(r.Context(), userID, req.GameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"operation": "addedToCart",
		"userId":    userID,
		"gameId":    req.GameID,
	})
}

// RemoveFromCartHandler handles DELETE /users/{userId}/cart/{gameId}
func (h *HandlerProvider) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	err := h.svc.Cart.Remove(r.Context(), userID, gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LibraryHandler handles GET /users/{userId}/library
func (h *HandlerProvider) LibraryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	owned, err := h.svc.Cart.Library(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]libraryItemResponse, 0, len(owned))
	for _, o := range owned {
		items = append(items, newLibraryItemResponse(o))
	}

	writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "games": items})
}
