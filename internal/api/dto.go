package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/carts"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/history"
	"github.com/fastprodman/gamemarket/internal/repos/ledger"
	"github.com/fastprodman/gamemarket/internal/repos/ownership"
	"github.com/fastprodman/gamemarket/internal/services/audit"
	"github.com/fastprodman/gamemarket/internal/services/balance"
	"github.com/fastprodman/gamemarket/internal/services/purchase"
)

// --- Requests ---

type amountRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type checkoutRequest struct {
	GameIDs []int64 `json:"gameIds" validate:"required,min=1,dive,gt=0"`
}

type cartAddRequest struct {
	GameID int64 `json:"gameId" validate:"required,gt=0"`
}

type createGameRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Price string `json:"price" validate:"required,numeric"`
}

type updateGameRequest struct {
	Title *string `json:"title" validate:"omitempty,max=200"`
	Price *string `json:"price" validate:"omitempty,numeric"`
}

// --- Responses ---

type balanceResponse struct {
	UserID           int64  `json:"userId"`
	Balance          string `json:"balance"`
	FormattedBalance string `json:"formattedBalance"`
}

type operationResponse struct {
	UserID           int64  `json:"userId"`
	Operation        string `json:"operation"`
	Amount           string `json:"amount"`
	FormattedAmount  string `json:"formattedAmount"`
	Balance          string `json:"balance"`
	FormattedBalance string `json:"formattedBalance"`
}

func newOperationResponse(res balance.OperationResult) operationResponse {
	return operationResponse{
		UserID:           res.UserID,
		Operation:        string(res.Kind),
		Amount:           money.String(res.Amount),
		FormattedAmount:  res.FormattedAmount(),
		Balance:          money.String(res.Balance),
		FormattedBalance: res.FormattedBalance(),
	}
}

type transactionResponse struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balanceBefore"`
	BalanceAfter  string    `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newTransactionResponse(e ledger.Entry) transactionResponse {
	return transactionResponse{
		ID:            e.ID,
		Kind:          string(e.Kind),
		Amount:        money.String(e.Amount),
		BalanceBefore: money.String(e.BalanceBefore),
		BalanceAfter:  money.String(e.BalanceAfter),
		CreatedAt:     e.CreatedAt,
	}
}

type checkoutItemResponse struct {
	GameID    int64  `json:"gameId"`
	Title     string `json:"title"`
	PricePaid string `json:"pricePaid"`
}

type checkoutResponse struct {
	CheckoutID       string                 `json:"checkoutId"`
	Operation        string                 `json:"operation"`
	Message          string                 `json:"message"`
	ItemsProcessed   int                    `json:"itemsProcessed"`
	TotalAmount      string                 `json:"totalAmount"`
	FormattedTotal   string                 `json:"formattedTotal"`
	Balance          string                 `json:"balance"`
	FormattedBalance string                 `json:"formattedBalance"`
	Items            []checkoutItemResponse `json:"items"`
}

func newCheckoutResponse(res purchase.Result) checkoutResponse {
	items := make([]checkoutItemResponse, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, checkoutItemResponse{
			GameID:    it.GameID,
			Title:     it.Title,
			PricePaid: money.String(it.PricePaid),
		})
	}

	return checkoutResponse{
		CheckoutID:       res.CheckoutID.String(),
		Operation:        "checkedOut",
		Message:          res.Message(),
		ItemsProcessed:   res.ItemsProcessed,
		TotalAmount:      money.String(res.TotalAmount),
		FormattedTotal:   res.FormattedTotal(),
		Balance:          money.String(res.Balance),
		FormattedBalance: res.FormattedBalance(),
		Items:            items,
	}
}

type cartLineResponse struct {
	GameID  int64     `json:"gameId"`
	Title   string    `json:"title"`
	Price   string    `json:"price"`
	AddedAt time.Time `json:"addedAt"`
}

type cartResponse struct {
	UserID         int64              `json:"userId"`
	Items          []cartLineResponse `json:"items"`
	Count          int                `json:"count"`
	Total          string             `json:"total"`
	FormattedTotal string             `json:"formattedTotal"`
}

func newCartLineResponse(l carts.Line) cartLineResponse {
	return cartLineResponse{GameID: l.GameID, Title: l.Title, Price: money.String(l.Price), AddedAt: l.AddedAt}
}

type libraryItemResponse struct {
	GameID      int64     `json:"gameId"`
	Title       string    `json:"title"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

func newLibraryItemResponse(o ownership.Ownership) libraryItemResponse {
	return libraryItemResponse{GameID: o.GameID, Title: o.GameTitle, PurchasedAt: o.PurchasedAt}
}

type purchaseResponse struct {
	ID              int64     `json:"id"`
	GameID          int64     `json:"gameId"`
	GameTitle       string    `json:"gameTitle,omitempty"`
	BuyerID         int64     `json:"buyerId"`
	PricePaid       string    `json:"pricePaid"`
	CurrentPrice    *string   `json:"currentPrice"`
	PriceDifference *string   `json:"priceDifference"`
	Description     string    `json:"description,omitempty"`
	PurchasedAt     time.Time `json:"purchasedAt"`
}

type purchasePageResponse struct {
	Items      []purchaseResponse `json:"items"`
	Page       int                `json:"page"`
	Size       int                `json:"size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"totalPages"`
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}

	s := money.String(d.Decimal)

	return &s
}

func newPurchasePageResponse(p audit.Page) purchasePageResponse {
	items := make([]purchaseResponse, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, purchaseResponse{
			ID:              it.ID,
			GameID:          it.GameID,
			GameTitle:       it.GameTitle,
			BuyerID:         it.BuyerID,
			PricePaid:       money.String(it.PricePaid),
			CurrentPrice:    nullMoney(it.CurrentPrice),
			PriceDifference: nullMoney(it.PriceDifference),
			Description:     it.Description,
			PurchasedAt:     it.PurchasedAt,
		})
	}

	return purchasePageResponse{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		Total:      p.Total,
		TotalPages: p.TotalPages(),
	}
}

type gameResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Price          string    `json:"price"`
	FormattedPrice string    `json:"formattedPrice"`
	AuthorID       int64     `json:"authorId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newGameResponse(g games.Game) gameResponse {
	return gameResponse{
		ID:             g.ID,
		Title:          g.Title,
		Price:          money.String(g.Price),
		FormattedPrice: money.Format(g.Price),
		AuthorID:       g.AuthorID,
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
}

type historyResponse struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	FieldName   string    `json:"fieldName,omitempty"`
	OldValue    string    `json:"oldValue,omitempty"`
	NewValue    string    `json:"newValue,omitempty"`
	ChangedBy   int64     `json:"changedBy"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newHistoryResponse(rec history.Record) historyResponse {
	return historyResponse{
		ID:          rec.ID,
		Action:      string(rec.Action),
		FieldName:   rec.FieldName,
		OldValue:    rec.OldValue,
		NewValue:    rec.NewValue,
		ChangedBy:   rec.ChangedBy,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}
}
