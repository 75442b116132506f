package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/adventquiz/calendar-platform/internal/datetime"
	"github.com/adventquiz/calendar-platform/internal/player"
	ws "github.com/adventquiz/calendar-platform/pkg/http/ws"
)

// Entry represents a leaderboard record for one player in one calendar year.
type Entry struct {
	PlayerID    uuid.UUID `json:"player_id"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	DoorsOpened int       `json:"doors_opened"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	PubSubChannel  string
	RedisKeyPrefix string
}

// Service keeps per-year standings in Redis sorted sets and emits updates
// over Pub/Sub. The Postgres players table remains the source of truth;
// Redis is a ranking cache rebuilt from it on demand.
type Service struct {
	redis         *redis.Client
	players       player.Store
	logger        zerolog.Logger
	topN          int
	pubsubChannel string
	prefix        string
}

// NewService constructs a leaderboard service instance.
func NewService(rdb *redis.Client, players player.Store, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}

	return &Service{
		redis:         rdb,
		players:       players,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		topN:          topN,
		pubsubChannel: channel,
		prefix:        prefix,
	}
}

// RecordScore refreshes a player's standing for a year after a score change.
// The stored score is the absolute total, not an increment; a replayed call
// is therefore harmless.
func (s *Service) RecordScore(ctx context.Context, year string, p *player.Player) error {
	if p == nil {
		return fmt.Errorf("record score: no player")
	}
	y, ok := normalizeYear(year)
	if !ok {
		return fmt.Errorf("record score: invalid year %q", year)
	}

	var score int
	if entry := p.ScoreForYear(y); entry != nil {
		score = entry.Score
	}
	opened := p.OpenedDoors()

	zKey := s.leaderboardKey(y)
	metaKey := s.metaKey(y, p.ID)

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, zKey, redis.Z{Score: float64(score), Member: p.ID.String()})
	pipe.HSet(ctx, metaKey, map[string]interface{}{
		"name":  p.Name,
		"doors": opened,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update leaderboard year %s: %w", y, err)
	}

	// Publish aggregate update for WebSocket consumers.
	go s.publishUpdate(context.Background(), y)
	return nil
}

// Standings retrieves the ranked entries for a year. Ties on score are
// broken by the player's total opened doors across all years, then by name
// compared case-insensitively.
func (s *Service) Standings(ctx context.Context, year string, limit int) ([]Entry, error) {
	y, ok := normalizeYear(year)
	if !ok {
		return nil, fmt.Errorf("invalid year %q", year)
	}
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	entries, err := s.redisStandings(ctx, y)
	if err != nil {
		s.logger.Warn().Err(err).Str("year", y).Msg("redis standings fetch failed, scanning players")
		entries, err = s.scanStandings(ctx, y)
		if err != nil {
			return nil, err
		}
	}

	sortEntries(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Rebuild repopulates the Redis standings for a year from the players
// table, so an admin can recover the ranking cache after a Redis flush.
func (s *Service) Rebuild(ctx context.Context, year string) error {
	y, ok := normalizeYear(year)
	if !ok {
		return fmt.Errorf("invalid year %q", year)
	}

	players, err := s.players.List(ctx)
	if err != nil {
		return fmt.Errorf("rebuild standings: %w", err)
	}

	pipe := s.redis.TxPipeline()
	for i := range players {
		p := &players[i]
		entry := p.ScoreForYear(y)
		if entry == nil {
			continue
		}
		pipe.ZAdd(ctx, s.leaderboardKey(y), redis.Z{Score: float64(entry.Score), Member: p.ID.String()})
		pipe.HSet(ctx, s.metaKey(y, p.ID), map[string]interface{}{
			"name":  p.Name,
			"doors": p.OpenedDoors(),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild standings year %s: %w", y, err)
	}
	return nil
}

func (s *Service) redisStandings(ctx context.Context, year string) ([]Entry, error) {
	zKey := s.leaderboardKey(year)
	// Over-fetch so in-Go tie-breaking cannot drop a player who belongs in
	// the requested window.
	results, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(s.topN-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch standings: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("standings for %s not cached", year)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		id, err := uuid.Parse(z.Member.(string))
		if err != nil {
			s.logger.Warn().Str("member", z.Member.(string)).Msg("skipping malformed standings member")
			continue
		}
		entry := Entry{PlayerID: id, Score: int(z.Score)}
		meta, err := s.redis.HGetAll(ctx, s.metaKey(year, id)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read standings metadata")
		} else {
			entry.Name = meta["name"]
			entry.DoorsOpened = parseInt(meta["doors"])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// scanStandings derives standings straight from the players table.
func (s *Service) scanStandings(ctx context.Context, year string) ([]Entry, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan standings: %w", err)
	}

	entries := make([]Entry, 0, len(players))
	for i := range players {
		p := &players[i]
		entry := p.ScoreForYear(year)
		if entry == nil {
			continue
		}
		entries = append(entries, Entry{
			PlayerID:    p.ID,
			Name:        p.Name,
			Score:       entry.Score,
			DoorsOpened: p.OpenedDoors(),
		})
	}
	return entries, nil
}

func (s *Service) publishUpdate(ctx context.Context, year string) {
	entries, err := s.Standings(ctx, year, 10)
	if err != nil {
		s.logger.Warn().Err(err).Str("year", year).Msg("failed to collect leaderboard update")
		return
	}
	if len(entries) == 0 {
		return
	}

	payload := ws.LeaderboardUpdatePayload{
		Year: year,
		Top:  toWSEntries(entries),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) leaderboardKey(year string) string {
	return fmt.Sprintf("%s:%s", s.prefix, year)
}

func (s *Service) metaKey(year string, playerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:meta:%s", s.prefix, year, playerID.String())
}

// sortEntries orders by score descending, then total opened doors
// descending, then name ascending ignoring case.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DoorsOpened != b.DoorsOpened {
			return a.DoorsOpened > b.DoorsOpened
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func normalizeYear(year string) (string, bool) {
	n, ok := datetime.YearNumber(year)
	if !ok {
		return "", false
	}
	return strconv.Itoa(n), true
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
