package audit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/gamemarket/internal/repos/history"
)

type PurchaseItem struct {
	ID          int64
	GameID      int64
	GameTitle   string
	BuyerID     int64
	PricePaid   decimal.Decimal
	Description string
	PurchasedAt time.Time
	// CurrentPrice and PriceDifference (current - paid) are unset once the
	// game has been deleted.
	CurrentPrice    decimal.NullDecimal
	PriceDifference decimal.NullDecimal
}

// Page is one 0-based page of purchase history.
type Page struct {
	Items []PurchaseItem
	Page  int
	Size  int
	Total int
}

func (p Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}

	return (p.Total + p.Size - 1) / p.Size
}

func (r *Recorder) PurchaseHistoryByGame(ctx context.Context, gameID int64, page, size int) (Page, error) {
	return purchasePage(page, size, func(limit, offset int) ([]history.Purchase, int, error) {
		return r.history.PurchasesByGame(ctx, gameID, limit, offset)
	})
}

func (r *Recorder) PurchaseHistoryByUser(ctx context.Context, userID int64, page, size int) (Page, error) {
	return purchasePage(page, size, func(limit, offset int) ([]history.Purchase, int, error) {
		return r.history.PurchasesByUser(ctx, userID, limit, offset)
	})
}

func purchasePage(page, size int, load func(limit, offset int) ([]history.Purchase, int, error)) (Page, error) {
	size = ClampSize(size)

	err := CheckPage(page, size)
	if err != nil {
		return Page{}, err
	}

	rows, total, err := load(size, page*size)
	if err != nil {
		return Page{}, fmt.Errorf("purchase history: %w", err)
	}

	items := make([]PurchaseItem, 0, len(rows))

	for _, p := range rows {
		it := PurchaseItem{
			ID:           p.ID,
			GameID:       p.GameID,
			GameTitle:    p.GameTitle,
			BuyerID:      p.BuyerID,
			PricePaid:    p.PricePaid,
			Description:  p.Description,
			PurchasedAt:  p.PurchasedAt,
			CurrentPrice: p.CurrentPrice,
		}

		if p.CurrentPrice.Valid {
			it.PriceDifference = decimal.NewNullDecimal(p.CurrentPrice.Decimal.Sub(p.PricePaid))
		}

		items = append(items, it)
	}

	return Page{Items: items, Page: page, Size: size, Total: total}, nil
}

// CheckPage rejects negative pages and pages whose row offset does not fit
// in an int.
func CheckPage(page, size int) error {
	size = ClampSize(size)
	if page < 0 || page > math.MaxInt/size {
		return ErrInvalidPage
	}

	return nil
}

// ClampSize applies the default and bounds of a page size.
func ClampSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}

	return min(size, MaxPageSize)
}
