package api

import (
	"net/http"

	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/services/catalog"
)

// GetGameHandler handles GET /games/{gameId}
func (h *HandlerProvider) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	g, err := h.svc.Catalog.Get(r.Context(), gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newGameResponse(g))
}

// CreateGameHandler handles POST /users/{userId}/games; the user becomes the
// author.
func (h *HandlerProvider) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req createGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	price, err := money.Parse(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "price supports up to 2 decimals")
		return
	}

	g, err := h.svc.Catalog.Create(r.Context(), userID, req.Title, price)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newGameResponse(g))
}

// UpdateGameHandler handles PATCH /users/{userId}/games/{gameId}
func (h *HandlerProvider) UpdateGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	var req updateGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd := catalog.Update{Title: req.Title}

	if req.Price != nil {
		price, err := money.Parse(*req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, "price supports up to 2 decimals")
			return
		}

		upd.Price = &price
	}

	g, err := h.svc.Catalog.Update(r.Context(), userID, gameID, upd)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newGameResponse(g))
}

// DeleteGameHandler handles DELETE /users/{userId}/games/{gameId}
func (h *HandlerProvider) DeleteGameHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	gameID, ok := h.gameID(w, r)
	if !ok {
		return
	}

	err := h.svc.Catalog.Delete(r.Context(), userID, gameID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
