package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockdash/mentions-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mention(body string, observedAt time.Time) models.Mention {
	return models.Mention{
		ID:         uuid.New(),
		ObservedAt: observedAt,
		Source:     models.SourceReddit,
		Channel:    "stocks",
		Body:       body,
	}
}

func TestMemoryStore_DedupIdempotence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	older := mention("Walt Disney Company is undervalued", base)
	newer := mention("Walt Disney Company is undervalued", base.Add(time.Hour))

	require.NoError(t, store.Append(ctx, older))
	require.NoError(t, store.Append(ctx, newer))

	results, err := store.QueryMentions(ctx, "Walt Disney Company", "DIS")
	require.NoError(t, err)

	// Identical bodies collapse to the most recent row.
	require.Len(t, results, 1)
	assert.Equal(t, newer.ID, results[0].ID)
	assert.Equal(t, base.Add(time.Hour), results[0].ObservedAt)
}

func TestMemoryStore_RecencyOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		body := fmt.Sprintf("$DIS take number %d", i)
		require.NoError(t, store.Append(ctx, mention(body, base.Add(time.Duration(i)*time.Minute))))
	}

	results, err := store.QueryMentions(ctx, "Walt Disney Company", "DIS")
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i := 1; i < len(results); i++ {
		assert.False(t, results[i].ObservedAt.After(results[i-1].ObservedAt),
			"timestamps must be non-increasing")
	}
}

func TestMemoryStore_ResultCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < QueryLimit+10; i++ {
		body := fmt.Sprintf("$DIS opinion %d", i)
		require.NoError(t, store.Append(ctx, mention(body, base.Add(time.Duration(i)*time.Second))))
	}

	results, err := store.QueryMentions(ctx, "Walt Disney Company", "DIS")
	require.NoError(t, err)
	assert.Len(t, results, QueryLimit)
}

func TestMemoryStore_MatchingORSemantics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	tests := []struct {
		name    string
		body    string
		matches bool
	}{
		{
			name:    "Company name only",
			body:    "I believe Walt Disney Company reports earnings this week",
			matches: true,
		},
		{
			name:    "Cashtag only",
			body:    "I think $DIS will rally tomorrow",
			matches: true,
		},
		{
			name:    "Company name case-insensitive",
			body:    "walt disney company to the moon",
			matches: true,
		},
		{
			name:    "Neither",
			body:    "today was a quiet session overall",
			matches: false,
		},
		{
			name:    "Cashtag without word boundary",
			body:    "$DISNEYLAND is not a ticker",
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStore()
			require.NoError(t, s.Append(ctx, mention(tt.body, now)))

			results, err := s.QueryMentions(ctx, "Walt Disney Company", "DIS")
			require.NoError(t, err)

			if tt.matches {
				assert.Len(t, results, 1)
			} else {
				assert.Empty(t, results)
			}
		})
	}

	_ = store
}

func TestMemoryStore_EmptyResultIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	results, err := store.QueryMentions(ctx, "Walt Disney Company", "DIS")

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestMemoryStore_MentionsSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, mention("old news", base.Add(-time.Hour))))
	require.NoError(t, store.Append(ctx, mention("recent news", base.Add(time.Minute))))
	require.NoError(t, store.Append(ctx, mention("latest news", base.Add(2*time.Minute))))

	results, err := store.MentionsSince(ctx, base)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "recent news", results[0].Body)
	assert.Equal(t, "latest news", results[1].Body)
}

func TestMemoryStore_IngestStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	reddit := mention("reddit comment", now)
	require.NoError(t, store.Append(ctx, reddit))

	tweet := mention("a tweet", now)
	tweet.Source = models.SourceTwitter
	require.NoError(t, store.Append(ctx, tweet))

	tweet2 := mention("another tweet", now)
	tweet2.Source = models.SourceTwitter
	require.NoError(t, store.Append(ctx, tweet2))

	stats, err := store.IngestStats(ctx, now.Add(-time.Minute))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"reddit": 1, "twitter": 2}, stats)
}
