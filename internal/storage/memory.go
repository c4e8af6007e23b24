package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stockdash/mentions-bot/internal/models"
)

// MemoryStore is an in-memory Store with the same dedup/recency semantics as
// the Postgres implementation. Used by tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	mentions []models.Mention
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, m models.Mention) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentions = append(s.mentions, m)
	return nil
}

func (s *MemoryStore) QueryMentions(_ context.Context, companyName, tickerSymbol string) ([]models.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company := strings.ToLower(companyName)
	cashtag := "$" + tickerSymbol + " "

	// Keep only the most recent mention per distinct body.
	newestByBody := make(map[string]models.Mention)
	for _, m := range s.mentions {
		if !strings.Contains(strings.ToLower(m.Body), company) && !strings.Contains(m.Body, cashtag) {
			continue
		}
		if prev, ok := newestByBody[m.Body]; !ok || m.ObservedAt.After(prev.ObservedAt) {
			newestByBody[m.Body] = m
		}
	}

	results := make([]models.Mention, 0, len(newestByBody))
	for _, m := range newestByBody {
		results = append(results, m)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ObservedAt.After(results[j].ObservedAt)
	})

	if len(results) > QueryLimit {
		results = results[:QueryLimit]
	}

	return results, nil
}

func (s *MemoryStore) MentionsSince(_ context.Context, t time.Time) ([]models.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []models.Mention{}
	for _, m := range s.mentions {
		if !m.ObservedAt.Before(t) {
			results = append(results, m)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ObservedAt.Before(results[j].ObservedAt)
	})

	return results, nil
}

func (s *MemoryStore) IngestStats(_ context.Context, t time.Time) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, m := range s.mentions {
		if !m.ObservedAt.Before(t) {
			stats[string(m.Source)]++
		}
	}

	return stats, nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error { return nil }

func (s *MemoryStore) Close() {}

// Len reports the number of stored mentions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mentions)
}

// All returns a copy of every stored mention in insertion order.
func (s *MemoryStore) All() []models.Mention {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Mention, len(s.mentions))
	copy(out, s.mentions)
	return out
}
