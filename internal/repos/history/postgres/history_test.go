package history

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/gamemarket/internal/infra/pgtestutil"
	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/repos/history"
)

func TestHistory_InsertStoresNulls(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO game_history`).
		WithArgs(int64(3), "DELETE", sql.NullString{}, sql.NullString{}, sql.NullString{}, int64(9), sql.NullString{String: "gone", Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		return New(db).Insert(tx, history.Record{GameID: 3, Action: history.ActionDelete, ChangedBy: 9, Description: "gone"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_Purchases(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	studio := pgtestutil.SeedUser(t, db, "studio")
	alice := pgtestutil.SeedUser(t, db, "alice")
	bob := pgtestutil.SeedUser(t, db, "bob")
	game := pgtestutil.SeedGame(t, db, "Comet", "4.00", studio)

	repo := New(db)
	ctx := t.Context()

	recs := []history.Record{
		{GameID: game, Action: history.ActionCreate, ChangedBy: studio},
		{GameID: game, Action: history.ActionPurchase, FieldName: "price", NewValue: "5.00", ChangedBy: alice, Description: "Checkout a"},
		{GameID: game, Action: history.ActionPurchase, FieldName: "price", NewValue: "4.00", ChangedBy: bob, Description: "Checkout b"},
	}

	err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error { return repo.Insert(tx, recs...) })
	require.NoError(t, err)

	all, err := repo.ListByGame(ctx, game)
	require.NoError(t, err)
	require.Len(t, all, 3)

	page, total, err := repo.PurchasesByGame(ctx, game, 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, page, 1)
	require.Equal(t, bob, page[0].BuyerID, "newest first")

	mine, total, err := repo.PurchasesByUser(ctx, alice, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Comet", mine[0].GameTitle)
	require.Equal(t, "5.00", mine[0].PricePaid.StringFixed(2))
	require.True(t, mine[0].CurrentPrice.Valid)
	require.Equal(t, "4.00", mine[0].CurrentPrice.Decimal.StringFixed(2))

	empty, total, err := repo.PurchasesByUser(ctx, studio, 10, 0)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, empty)
}
