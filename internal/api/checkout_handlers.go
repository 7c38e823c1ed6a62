package api

import (
	"net/http"
)

// CheckoutHandler handles POST /users/{userId}/checkout with an explicit
// list of game ids.
func (h *HandlerProvider) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Checkout.Checkout(r.Context(), userID, req.GameIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCheckoutResponse(res))
}

// CartCheckoutHandler handles POST /users/{userId}/cart/checkout
func (h *HandlerProvider) CartCheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Checkout.CheckoutCart(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newCheckoutResponse(res))
}
