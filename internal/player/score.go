package player

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/datetime"
)

// Accounting applies additive score updates and persists them through the
// player store.
type Accounting struct {
	store  Store
	logger zerolog.Logger
}

func NewAccounting(store Store, logger zerolog.Logger) *Accounting {
	return &Accounting{
		store:  store,
		logger: logger.With().Str("component", "score_accounting").Logger(),
	}
}

// applyReward returns a new scores slice with reward added to the entry for
// year, appending a canonical entry when none matches. The input slice is
// not modified, so a failed persistence leaves the caller's snapshot intact.
func applyReward(scores []Score, year string, reward int) ([]Score, error) {
	yearNum, ok := datetime.YearNumber(year)
	if !ok {
		return nil, fmt.Errorf("invalid year value %q", year)
	}

	updated := make([]Score, len(scores))
	copy(updated, scores)

	for i := range updated {
		if n, ok := datetime.YearNumber(updated[i].Year); ok && n == yearNum {
			updated[i].Score += reward
			return updated, nil
		}
	}

	return append(updated, Score{Year: strconv.Itoa(yearNum), Score: reward}), nil
}

// ApplyReward adds reward to the player's score for year and persists the
// full scores array. The in-memory player is only updated after the write
// succeeds. At most one score entry per year is maintained regardless of how
// the year is represented in existing entries.
func (a *Accounting) ApplyReward(ctx context.Context, p *Player, year string, reward int) (*Score, error) {
	if p == nil {
		a.logger.Error().Msg("no player for score update")
		return nil, fmt.Errorf("player required")
	}

	updated, err := applyReward(p.Scores, year, reward)
	if err != nil {
		return nil, err
	}

	if err := a.store.ReplaceScores(ctx, p.ID, updated); err != nil {
		return nil, fmt.Errorf("persist scores: %w", err)
	}
	p.Scores = updated

	entry := p.ScoreForYear(year)
	a.logger.Info().
		Str("player_id", p.ID.String()).
		Str("year", year).
		Int("reward", reward).
		Int("total", entry.Score).
		Msg("score updated")
	return entry, nil
}
