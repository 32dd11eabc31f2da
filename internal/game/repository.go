package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bankrun/internal/models"
)

// ErrNotFound is returned when no game matches the lookup.
var ErrNotFound = errors.New("game not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const gameColumns = `id, code, status, started_at, paused_at, total_vault_display, actual_vault, created_at`

func (r *Repository) CreateGame(ctx context.Context, id uuid.UUID, code string) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO games (id, code, status) VALUES ($1, $2, 'waiting') RETURNING `+gameColumns,
		id, code,
	)

	game, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// GetGameByCode looks a game up by its join code, case-normalized uppercase.
func (r *Repository) GetGameByCode(ctx context.Context, code string) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+gameColumns+` FROM games WHERE code = $1`,
		strings.ToUpper(strings.TrimSpace(code)),
	)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}
	return game, nil
}

// ListActiveGames returns every game that has not ended, oldest first. Used
// at startup to resume host loops for games that were live before a restart.
func (r *Repository) ListActiveGames(ctx context.Context) ([]models.Game, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gameColumns+` FROM games WHERE status <> 'ended' ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *game)
	}
	return games, rows.Err()
}

// MarkStarted moves a waiting game to playing and stamps the start epoch.
func (r *Repository) MarkStarted(ctx context.Context, id uuid.UUID, startedAt time.Time) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games SET status = 'playing', started_at = $2 WHERE id = $1 AND status = 'waiting' RETURNING `+gameColumns,
		id, startedAt,
	)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark game started: %w", err)
	}
	return game, nil
}

// MarkPaused records the pause instant. Elapsed time freezes from here.
func (r *Repository) MarkPaused(ctx context.Context, id uuid.UUID, pausedAt time.Time) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games SET status = 'paused', paused_at = $2 WHERE id = $1 AND status = 'playing' RETURNING `+gameColumns,
		id, pausedAt,
	)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark game paused: %w", err)
	}
	return game, nil
}

// MarkResumed clears the pause and shifts the start epoch forward by the
// paused duration in the same update.
func (r *Repository) MarkResumed(ctx context.Context, id uuid.UUID, shiftedStart time.Time) (*models.Game, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games SET status = 'playing', paused_at = NULL, started_at = $2 WHERE id = $1 AND status = 'paused' RETURNING `+gameColumns,
		id, shiftedStart,
	)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark game resumed: %w", err)
	}
	return game, nil
}

// MarkEnded finalizes the game. The status guard makes repeated end triggers
// no-ops: ok is false when the game was already ended.
func (r *Repository) MarkEnded(ctx context.Context, id uuid.UUID, vaultDisplay float64) (*models.Game, bool, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE games SET status = 'ended', total_vault_display = $2, actual_vault = 0 WHERE id = $1 AND status <> 'ended' RETURNING `+gameColumns,
		id, vaultDisplay,
	)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to mark game ended: %w", err)
	}
	return game, true, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	if err := row.Scan(
		&g.ID,
		&g.Code,
		&g.Status,
		&g.StartedAt,
		&g.PausedAt,
		&g.TotalVaultDisplay,
		&g.ActualVault,
		&g.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}
