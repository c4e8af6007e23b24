package sources

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stockdash/mentions-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedditStream_Identity(t *testing.T) {
	stream := NewRedditStream("id", "secret", "test-agent/1.0", []string{"stocks"})

	assert.Equal(t, "reddit", stream.Name())
	assert.Equal(t, models.SourceReddit, stream.Source())
}

func TestRedditStream_IsEnabled(t *testing.T) {
	tests := []struct {
		name       string
		clientID   string
		secret     string
		subreddits []string
		expected   bool
	}{
		{
			name:       "Fully configured",
			clientID:   "id",
			secret:     "secret",
			subreddits: []string{"stocks", "wallstreetbets"},
			expected:   true,
		},
		{
			name:       "Missing client ID",
			clientID:   "",
			secret:     "secret",
			subreddits: []string{"stocks"},
			expected:   false,
		},
		{
			name:       "Missing secret",
			clientID:   "id",
			secret:     "",
			subreddits: []string{"stocks"},
			expected:   false,
		},
		{
			name:       "No subreddits",
			clientID:   "id",
			secret:     "secret",
			subreddits: nil,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := NewRedditStream(tt.clientID, tt.secret, "test-agent/1.0", tt.subreddits)
			assert.Equal(t, tt.expected, stream.IsEnabled())
		})
	}
}

func TestTwitterStream_Identity(t *testing.T) {
	stream := NewTwitterStream("token", []string{"$DIS"})

	assert.Equal(t, "twitter", stream.Name())
	assert.Equal(t, models.SourceTwitter, stream.Source())
}

func TestTwitterStream_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		cashtags []string
		expected bool
	}{
		{name: "Fully configured", token: "token", cashtags: []string{"$DIS"}, expected: true},
		{name: "Missing token", token: "", cashtags: []string{"$DIS"}, expected: false},
		{name: "No cashtags", token: "token", cashtags: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := NewTwitterStream(tt.token, tt.cashtags)
			assert.Equal(t, tt.expected, stream.IsEnabled())
		})
	}
}

func TestBuildCashtagRules(t *testing.T) {
	t.Run("Few tags pack into one rule", func(t *testing.T) {
		rules := buildCashtagRules([]string{"$DIS", "$AAPL", "$TSLA"})

		require.Len(t, rules, 1)
		assert.Equal(t, `"$DIS" OR "$AAPL" OR "$TSLA"`, rules[0])
	})

	t.Run("No tags yields no rules", func(t *testing.T) {
		assert.Empty(t, buildCashtagRules(nil))
	})

	t.Run("Rules stay within the length cap", func(t *testing.T) {
		var tags []string
		for i := 0; i < 200; i++ {
			tags = append(tags, "$TICK"+strings.Repeat("X", 5))
		}

		rules := buildCashtagRules(tags)

		require.Greater(t, len(rules), 1)
		for _, rule := range rules {
			assert.LessOrEqual(t, len(rule), twitterRuleMaxLen)
		}
	})

	t.Run("Every tag appears in some rule", func(t *testing.T) {
		tags := []string{"$DIS", "$AAPL", "$TSLA", "$MSFT", "$AMZN"}
		rules := buildCashtagRules(tags)

		joined := strings.Join(rules, " ")
		for _, tag := range tags {
			assert.Contains(t, joined, `"`+tag+`"`)
		}
	})
}

func newTestTwitterIterator(stream string) *twitterIterator {
	body := io.NopCloser(strings.NewReader(stream))
	return &twitterIterator{
		body:   body,
		reader: bufio.NewReader(body),
	}
}

func TestTwitterIterator_Next(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses tweets and skips keep-alives", func(t *testing.T) {
		it := newTestTwitterIterator(
			"\r\n" + // keep-alive
				`{"data":{"id":"1","text":"buying $DIS today"}}` + "\n" +
				"\r\n" +
				`{"data":{"id":"2","text":"selling $AAPL"}}` + "\n")
		defer it.Close()

		ev, err := it.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "buying $DIS today", ev.Text)
		assert.Empty(t, ev.Channel)
		assert.Empty(t, ev.Title)

		ev, err = it.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "selling $AAPL", ev.Text)
	})

	t.Run("Skips control frames without text", func(t *testing.T) {
		it := newTestTwitterIterator(
			`{"errors":[{"title":"operational-disconnect"}]}` + "\n" +
				`{"data":{"id":"3","text":"a real tweet"}}` + "\n")
		defer it.Close()

		ev, err := it.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a real tweet", ev.Text)
	})

	t.Run("EOF surfaces as an error", func(t *testing.T) {
		it := newTestTwitterIterator(`{"data":{"id":"4","text":"last tweet"}}` + "\n")
		defer it.Close()

		_, err := it.Next(ctx)
		require.NoError(t, err)

		_, err = it.Next(ctx)
		assert.Error(t, err)
	})

	t.Run("Malformed JSON surfaces as an error", func(t *testing.T) {
		it := newTestTwitterIterator("not json at all\n")
		defer it.Close()

		_, err := it.Next(ctx)
		assert.Error(t, err)
	})

	t.Run("Cancelled context stops the read", func(t *testing.T) {
		it := newTestTwitterIterator(`{"data":{"id":"5","text":"unread"}}` + "\n")
		defer it.Close()

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := it.Next(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
