package pgtestutil

import (
	"database/sql"
	"testing"
)

// SeedUser inserts a user and returns its id.
func SeedUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()

	var id int64

	err := db.QueryRow(`INSERT INTO users (username) VALUES ($1) RETURNING id`, username).Scan(&id)
	if err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}

	return id
}

// SeedGame inserts a game priced at price (decimal string) and returns its id.
func SeedGame(t *testing.T, db *sql.DB, title, price string, authorID int64) int64 {
	t.Helper()

	var id int64

	err := db.QueryRow(`
		INSERT INTO games (title, price, author_id)
		VALUES ($1, $2::numeric, $3)
		RETURNING id
	`, title, price, authorID).Scan(&id)
	if err != nil {
		t.Fatalf("seed game %q: %v", title, err)
	}

	return id
}

// SeedBalance creates (or overwrites) the user's balance row without a
// ledger record; use it only to set up a starting state.
func SeedBalance(t *testing.T, db *sql.DB, userID int64, amount string) int64 {
	t.Helper()

	var id int64

	err := db.QueryRow(`
		INSERT INTO balances (user_id, amount)
		VALUES ($1, $2::numeric)
		ON CONFLICT (user_id) DO UPDATE SET amount = EXCLUDED.amount
		RETURNING id
	`, userID, amount).Scan(&id)
	if err != nil {
		t.Fatalf("seed balance for %d: %v", userID, err)
	}

	return id
}

// Count returns SELECT COUNT(*) for the given query.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int

	err := db.QueryRow(query, args...).Scan(&n)
	if err != nil {
		t.Fatalf("count %q: %v", query, err)
	}

	return n
}
