// Package query answers "what has recently been said about this company"
// for the display layer.
package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
	"github.com/stockdash/mentions-bot/internal/storage"
)

// Cache is an optional read-through cache for query results. Implementations
// must treat failures as misses; caching is an optimization, never a
// correctness requirement.
type Cache interface {
	Get(ctx context.Context, key string) ([]models.Mention, bool)
	Set(ctx context.Context, key string, mentions []models.Mention)
}

// Service is the stateless mention query service. Safe for concurrent use.
type Service struct {
	store storage.Store
	cache Cache // nil disables caching
}

// NewService creates a query service over the given store. cache may be nil.
func NewService(store storage.Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// QueryMentions returns the most recent distinct mentions matching the
// company name or the ticker's cashtag. An empty slice is a valid result
// meaning "no qualifying content"; an error always means the lookup itself
// failed, so callers can show a connectivity warning instead of an empty
// state.
func (s *Service) QueryMentions(ctx context.Context, companyName, tickerSymbol string) ([]models.Mention, error) {
	companyName = strings.TrimSpace(companyName)
	tickerSymbol = strings.TrimSpace(tickerSymbol)

	if companyName == "" || tickerSymbol == "" {
		return nil, fmt.Errorf("company name and ticker symbol are required")
	}

	key := cacheKey(companyName, tickerSymbol)
	if s.cache != nil {
		if mentions, ok := s.cache.Get(ctx, key); ok {
			return mentions, nil
		}
	}

	mentions, err := s.store.QueryMentions(ctx, companyName, tickerSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentions for %s: %w", tickerSymbol, err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, mentions)
	}

	logrus.Debugf("Query for %s (%s) returned %d mentions", companyName, tickerSymbol, len(mentions))
	return mentions, nil
}

func cacheKey(companyName, tickerSymbol string) string {
	return "mentions:" + strings.ToLower(tickerSymbol) + ":" + strings.ToLower(companyName)
}
