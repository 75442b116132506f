package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adventquiz/calendar-platform/internal/leaderboard"
)

// SnapshotRepository persists leaderboard snapshots in Postgres.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

var _ leaderboard.SnapshotStore = (*SnapshotRepository)(nil)

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Insert stores a new snapshot. An unchanged payload for the same year is
// skipped via the source hash.
func (r *SnapshotRepository) Insert(ctx context.Context, snap leaderboard.Snapshot) error {
	query := `
		INSERT INTO leaderboard_snapshots (calendar_year, generated_at, entries, source_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (calendar_year, source_hash) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, snap.Year, snap.GeneratedAt, snap.Entries, snap.SourceHash)
	if err != nil {
		return fmt.Errorf("insert leaderboard snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a year, or nil when none exists.
func (r *SnapshotRepository) Latest(ctx context.Context, year string) (*leaderboard.Snapshot, error) {
	query := `
		SELECT calendar_year, generated_at, entries, source_hash
		FROM leaderboard_snapshots
		WHERE calendar_year = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`
	var snap leaderboard.Snapshot
	err := r.pool.QueryRow(ctx, query, year).Scan(&snap.Year, &snap.GeneratedAt, &snap.Entries, &snap.SourceHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch leaderboard snapshot: %w", err)
	}
	return &snap, nil
}
