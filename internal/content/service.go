package content

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service serves year content through the cache, falling back to the content
// store on miss. Cache failures degrade to a direct fetch and are logged,
// never surfaced.
type Service struct {
	client *Client
	cache  *Cache
	logger zerolog.Logger
}

func NewService(client *Client, cache *Cache, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  cache,
		logger: logger.With().Str("component", "content").Logger(),
	}
}

// Years returns all calendar years, cached.
func (s *Service) Years(ctx context.Context) ([]Year, error) {
	if s.cache != nil {
		years, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("content cache read failed")
		} else if years != nil {
			return years, nil
		}
	}

	years, err := s.client.FetchYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch years: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, years); err != nil {
			s.logger.Warn().Err(err).Msg("content cache write failed")
		}
	}
	return years, nil
}
