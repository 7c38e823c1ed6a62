package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/gamemarket/internal/infra/pgutils"
	"github.com/fastprodman/gamemarket/internal/repos/games"
	"github.com/fastprodman/gamemarket/internal/repos/users"
)

var _ games.Games = (*gamesRepo)(nil)

type gamesRepo struct{ db *sql.DB }

func New(db *sql.DB) *gamesRepo {
	return &gamesRepo{db: db}
}

const gameColumns = `id, title, price, author_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (games.Game, error) {
	var g games.Game

	err := row.Scan(&g.ID, &g.Title, &g.Price, &g.AuthorID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return games.Game{}, games.ErrGameNotFound
		}

		return games.Game{}, err
	}

	return g, nil
}

func (r *gamesRepo) Get(ctx context.Context, gameID int64) (games.Game, error) {
	g, err := scanGame(r.db.QueryRowContext(ctx, `
		SELECT `+gameColumns+` FROM games WHERE id = $1
	`, gameID))
	if err != nil && !errors.Is(err, games.ErrGameNotFound) {
		return games.Game{}, fmt.Errorf("get game: %w", err)
	}

	return g, err
}

func (r *gamesRepo) FindByID(tx *sql.Tx, gameID int64) (games.Game, error) {
	g, err := scanGame(tx.QueryRow(`
		SELECT `+gameColumns+` FROM games WHERE id = $1
	`, gameID))
	if err != nil && !errors.Is(err, games.ErrGameNotFound) {
		return games.Game{}, fmt.Errorf("find game: %w", err)
	}

	return g, err
}

func (r *gamesRepo) LockAndGet(tx *sql.Tx, gameID int64) (games.Game, error) {
	g, err := scanGame(tx.QueryRow(`
		SELECT `+gameColumns+` FROM games WHERE id = $1 FOR UPDATE
	`, gameID))
	if err != nil && !errors.Is(err, games.ErrGameNotFound) {
		return games.Game{}, fmt.Errorf("lock/get game: %w", err)
	}

	return g, err
}

func (r *gamesRepo) Create(tx *sql.Tx, g games.Game) (games.Game, error) {
	err := tx.QueryRow(`
		INSERT INTO games (title, price, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, g.Title, g.Price, g.AuthorID).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if pgutils.IsForeignKeyViolation(err) {
			return games.Game{}, users.ErrUserNotFound
		}

		return games.Game{}, fmt.Errorf("create game: %w", err)
	}

	return g, nil
}

func (r *gamesRepo) Update(tx *sql.Tx, g games.Game) (games.Game, error) {
	err := tx.QueryRow(`
		UPDATE games
		SET title = $2, price = $3, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, g.ID, g.Title, g.Price).Scan(&g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return games.Game{}, games.ErrGameNotFound
		}

		return games.Game{}, fmt.Errorf("update game: %w", err)
	}

	return g, nil
}

func (r *gamesRepo) Delete(tx *sql.Tx, gameID int64) error {
	res, err := tx.Exec(`DELETE FROM games WHERE id = $1`, gameID)
	if err != nil {
		if pgutils.IsForeignKeyViolation(err) {
			return games.ErrGameHasOwners
		}

		return fmt.Errorf("delete game: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return games.ErrGameNotFound
	}

	return nil
}
