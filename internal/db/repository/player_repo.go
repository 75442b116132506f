package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adventquiz/calendar-platform/internal/player"
)

// PlayerRepository persists player rows in Postgres. The scores and
// doors_opened jsonb columns are always written as full-array replacements,
// matching the store contract.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

var _ player.Store = (*PlayerRepository)(nil)

func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

const playerColumns = `id, created_at, email, password_hash, name, user_type, scores, doors_opened, last_login_at`

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	err := row.Scan(
		&p.ID,
		&p.CreatedAt,
		&p.Email,
		&p.PasswordHash,
		&p.Name,
		&p.UserType,
		&p.Scores,
		&p.DoorsOpened,
		&p.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, player.ErrNotFound
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	return &p, nil
}

// Create inserts a new player row. Scores and doors start empty.
func (r *PlayerRepository) Create(ctx context.Context, p *player.Player) error {
	if p.Scores == nil {
		p.Scores = []player.Score{}
	}
	if p.DoorsOpened == nil {
		p.DoorsOpened = []player.DoorRecord{}
	}

	query := `
		INSERT INTO players (id, email, password_hash, name, user_type, scores, doors_opened)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		p.ID, p.Email, p.PasswordHash, p.Name, p.UserType, p.Scores, p.DoorsOpened,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetByID fetches a player snapshot by id.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE id = $1`, playerColumns)
	return scanPlayer(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail fetches a player snapshot by email.
func (r *PlayerRepository) GetByEmail(ctx context.Context, email string) (*player.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players WHERE email = $1`, playerColumns)
	return scanPlayer(r.pool.QueryRow(ctx, query, email))
}

// List returns all players. The calendar has a small closed audience, so the
// leaderboard fallback scans the whole table.
func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query := fmt.Sprintf(`SELECT %s FROM players ORDER BY created_at`, playerColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// UpdateName sets the display name.
func (r *PlayerRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE players SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// ReplaceScores overwrites the scores array.
func (r *PlayerRepository) ReplaceScores(ctx context.Context, id uuid.UUID, scores []player.Score) error {
	if scores == nil {
		scores = []player.Score{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE players SET scores = $2 WHERE id = $1`, id, scores)
	if err != nil {
		return fmt.Errorf("replace scores: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// ReplaceDoorsOpened overwrites the doors_opened array.
func (r *PlayerRepository) ReplaceDoorsOpened(ctx context.Context, id uuid.UUID, doors []player.DoorRecord) error {
	if doors == nil {
		doors = []player.DoorRecord{}
	}
	tag, err := r.pool.Exec(ctx, `UPDATE players SET doors_opened = $2 WHERE id = $1`, id, doors)
	if err != nil {
		return fmt.Errorf("replace doors_opened: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return player.ErrNotFound
	}
	return nil
}

// UpdateLogin records the last login timestamp.
func (r *PlayerRepository) UpdateLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE players SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update login: %w", err)
	}
	return nil
}
