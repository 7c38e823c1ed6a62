package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fastprodman/gamemarket/internal/infra/metrics"
)

// NewRouter registers every endpoint on a chi router. Mutating routes pass
// through limiter when it is not nil. CORS allows any origin unless origins
// are given.
func NewRouter(h *HandlerProvider, limiter *RateLimiter, origins ...string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(metrics.InstrumentHandler)

	throttle := func(next http.Handler) http.Handler { return next }
	if limiter != nil {
		throttle = limiter.Handler
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/cart", h.GetCartHandler)
		r.Get("/library", h.LibraryHandler)
		r.Get("/purchases", h.UserPurchasesHandler)

		r.Group(func(r chi.Router) {
			r.Use(throttle)

			r.Post("/balance/deposit", h.DepositHandler)
			r.Post("/balance/withdraw", h.WithdrawHandler)
			r.Post("/checkout", h.CheckoutHandler)
			r.Post("/cart", h.AddToCartHandler)
			r.Post("/cart/checkout", h.CartCheckoutHandler)
			r.Delete("/cart/{gameId}", h.RemoveFromCartHandler)
			r.Post("/games", h.CreateGameHandler)
			r.Patch("/games/{gameId}", h.UpdateGameHandler)
			r.Delete("/games/{gameId}", h.DeleteGameHandler)
		})
	})

	r.Route("/games/{gameId}", func(r chi.Router) {
		r.Get("/", h.GetGameHandler)
		r.Get("/purchases", h.GamePurchasesHandler)
		r.Get("/history", h.GameHistoryHandler)
	})

	r.With(throttle).Post("/admin/users/{userId}/balance/deposit", h.AdminDepositHandler)

	return r
}
