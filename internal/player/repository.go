package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bankrun/internal/models"
)

// ErrNotFound is returned when no player matches the lookup.
var ErrNotFound = errors.New("player not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const playerColumns = `id, game_id, name, role, balance, has_withdrawn, withdrawn_amount, created_at`

func (r *Repository) CreatePlayer(ctx context.Context, req CreatePlayerRequest) (*models.Player, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO players (id, game_id, name, role, balance) VALUES ($1, $2, $3, $4, $5) RETURNING `+playerColumns,
		req.ID, req.GameID, req.Name, req.Role, req.Balance,
	)

	player, err := scanPlayer(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	return player, nil
}

func (r *Repository) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)

	player, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

func (r *Repository) ListPlayersByGame(ctx context.Context, gameID uuid.UUID) ([]models.Player, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE game_id = $1 ORDER BY created_at ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (r *Repository) CountPlayersByGame(ctx context.Context, gameID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM players WHERE game_id = $1`, gameID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// Withdraw freezes the captured amount and zeroes the live balance in one
// atomic row update. The has_withdrawn guard makes a repeated withdraw a
// no-op: ok is false when the player had already withdrawn.
func (r *Repository) Withdraw(ctx context.Context, id uuid.UUID, amount float64) (*models.Player, bool, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE players SET has_withdrawn = TRUE, withdrawn_amount = $2, balance = 0 WHERE id = $1 AND has_withdrawn = FALSE RETURNING `+playerColumns,
		id, amount,
	)

	player, err := scanPlayer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to withdraw: %w", err)
	}
	return player, true, nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(
		&p.ID,
		&p.GameID,
		&p.Name,
		&p.Role,
		&p.Balance,
		&p.HasWithdrawn,
		&p.WithdrawnAmount,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
