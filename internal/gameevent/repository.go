package gameevent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bankrun/internal/models"
)

// Repository is the append-only store for game events. There is no update or
// delete path on purpose.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const eventColumns = `id, game_id, event_type, message, created_at`

func (r *Repository) AppendEvent(ctx context.Context, gameID uuid.UUID, eventType models.EventType, message string) (*models.GameEvent, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO game_events (id, game_id, event_type, message) VALUES ($1, $2, $3, $4) RETURNING `+eventColumns,
		uuid.New(), gameID, eventType, message,
	)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("failed to append game event: %w", err)
	}
	return event, nil
}

func (r *Repository) ListEventsByGame(ctx context.Context, gameID uuid.UUID) ([]models.GameEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM game_events WHERE game_id = $1 ORDER BY created_at ASC`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list game events: %w", err)
	}
	defer rows.Close()

	var events []models.GameEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game event: %w", err)
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list game events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (*models.GameEvent, error) {
	var e models.GameEvent
	if err := row.Scan(&e.ID, &e.GameID, &e.EventType, &e.Message, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
