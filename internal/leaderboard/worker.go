package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is a persisted copy of a year's standings, kept in Postgres so
// leaderboards survive a Redis flush.
type Snapshot struct {
	Year        string
	GeneratedAt time.Time
	Entries     []byte
	SourceHash  string
}

// SnapshotStore persists and retrieves leaderboard snapshots.
type SnapshotStore interface {
	Insert(ctx context.Context, snap Snapshot) error
	Latest(ctx context.Context, year string) (*Snapshot, error)
}

// YearsLister names the calendar years that currently exist.
type YearsLister func(ctx context.Context) ([]string, error)

// SnapshotWorker periodically persists Redis standings into Postgres.
type SnapshotWorker struct {
	svc      *Service
	store    SnapshotStore
	years    YearsLister
	logger   zerolog.Logger
	interval time.Duration
	topN     int
}

func NewSnapshotWorker(svc *Service, store SnapshotStore, years YearsLister, interval time.Duration, topN int, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 50
	}
	return &SnapshotWorker{
		svc:      svc,
		store:    store,
		years:    years,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     topN,
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.store == nil || w.years == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	years, err := w.years(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to list years for snapshot")
		return
	}
	for _, year := range years {
		if err := w.snapshotYear(ctx, year); err != nil {
			w.logger.Warn().Err(err).Str("year", year).Msg("snapshot failed")
		}
	}
}

func (w *SnapshotWorker) snapshotYear(ctx context.Context, year string) error {
	entries, err := w.svc.Standings(ctx, year, w.topN)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	wsEntries := toWSEntries(entries)
	data, err := json.Marshal(wsEntries)
	if err != nil {
		return err
	}

	sourceHash := sha256.Sum256(data)
	now := time.Now().UTC()

	y, _ := normalizeYear(year)
	if err := w.store.Insert(ctx, Snapshot{
		Year:        y,
		GeneratedAt: now,
		Entries:     data,
		SourceHash:  hex.EncodeToString(sourceHash[:]),
	}); err != nil {
		return err
	}

	w.logger.Info().
		Str("year", y).
		Int("entries", len(wsEntries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")

	return nil
}
