package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/gamemarket/internal/infra/logging"
	"github.com/fastprodman/gamemarket/internal/infra/pgtestutil"
	"github.com/fastprodman/gamemarket/internal/money"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/history"
	"github.com/fastprodman/gamemarket/internal/repos/users"
	"github.com/fastprodman/gamemarket/internal/services/audit"
)

func ptr[T any](v T) *T { return &v }

func TestService_Lifecycle(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	author := pgtestutil.SeedUser(t, db, "studio")
	other := pgtestutil.SeedUser(t, db, "other")

	rec := audit.New(db, logging.Discard())
	svc := New(db, rec, logging.Discard())
	ctx := t.Context()

	g, err := svc.Create(ctx, author, "  Starfall  ", money.MustParse("10"))
	require.NoError(t, err)
	assert.Equal(t, "Starfall", g.Title)
	assert.Equal(t, "10.00", money.String(g.Price))

	_, err = svc.Update(ctx, other, g.ID, Update{Title: ptr("Stolen")})
	require.ErrorIs(t, err, ErrNotAuthor)

	// price unchanged: only the title row is written
	g, err = svc.Update(ctx, author, g.ID, Update{
		Title: ptr("Starfall Tactics"),
		Price: ptr(money.MustParse("10.00")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Starfall Tactics", g.Title)

	// no-op update writes nothing
	_, err = svc.Update(ctx, author, g.ID, Update{Title: ptr("Starfall Tactics")})
	require.NoError(t, err)

	recs, err := rec.GameHistory(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, history.ActionUpdate, recs[0].Action)
	assert.Equal(t, "title", recs[0].FieldName)
	assert.Equal(t, "Starfall", recs[0].OldValue)
	assert.Equal(t, history.ActionCreate, recs[1].Action)

	require.NoError(t, svc.Delete(ctx, author, g.ID))

	_, err = svc.Get(ctx, g.ID)
	require.ErrorIs(t, err, games.ErrGameNotFound)

	recs, err = rec.GameHistory(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, history.ActionDelete, recs[0].Action)
}

func TestService_Create_Validation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	author := pgtestutil.SeedUser(t, db, "studio")
	svc := New(db, audit.New(db, logging.Discard()), logging.Discard())
	ctx := t.Context()

	tests := []struct {
		name    string
		author  int64
		title   string
		price   string
		wantErr error
	}{
		{"blank_title", author, "   ", "1.00", ErrInvalidTitle},
		{"negative_price", author, "X", "-0.01", ErrInvalidPrice},
		{"unknown_author", 999_999, "X", "1.00", users.ErrUserNotFound},
		{"free_game", author, "Demo", "0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.author, tt.title, money.MustParse(tt.price))
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Delete_OwnedGame(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	author := pgtestutil.SeedUser(t, db, "studio")
	buyer := pgtestutil.SeedUser(t, db, "buyer")
	gid := pgtestutil.SeedGame(t, db, "Owned", "1.00", author)

	_, err := db.Exec(`INSERT INTO ownerships (user_id, game_id) VALUES ($1, $2)`, buyer, gid)
	require.NoError(t, err)

	svc := New(db, audit.New(db, logging.Discard()), logging.Discard())

	err = svc.Delete(t.Context(), author, gid)
	require.ErrorIs(t, err, games.ErrGameHasOwners)
}
