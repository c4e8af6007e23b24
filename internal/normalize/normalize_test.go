package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stockdash/mentions-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMention_BasicFields(t *testing.T) {
	observed := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	m, err := Mention(models.SourceReddit, Raw{
		Text:    "I think $DIS will rally tomorrow",
		Title:   "Daily Discussion Thread",
		Channel: "wallstreetbets",
	}, observed)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, observed, m.ObservedAt)
	assert.Equal(t, models.SourceReddit, m.Source)
	assert.Equal(t, "wallstreetbets", m.Channel)
	assert.Equal(t, "Daily Discussion Thread", m.Title)
	assert.Equal(t, "I think $DIS will rally tomorrow", m.Body)
	assert.Nil(t, m.Sentiment)
}

func TestMention_TwitterHasNoChannelOrTitle(t *testing.T) {
	m, err := Mention(models.SourceTwitter, Raw{Text: "buying $AAPL today"}, time.Now())

	require.NoError(t, err)
	assert.Empty(t, m.Channel)
	assert.Empty(t, m.Title)
}

func TestMention_LengthInvariant(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Short body", text: "short comment"},
		{name: "Exactly at cap", text: strings.Repeat("a", models.BodyMaxLen)},
		{name: "Just over cap", text: strings.Repeat("a", models.BodyMaxLen+1)},
		{name: "Far over cap", text: strings.Repeat("word ", 5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Mention(models.SourceReddit, Raw{Text: tt.text}, time.Now())
			require.NoError(t, err)
			assert.LessOrEqual(t, len(m.Body), models.BodyMaxLen)
		})
	}
}

func TestMention_SentinelPolicy(t *testing.T) {
	oversized := strings.Repeat("x", models.BodyMaxLen+1)

	m, err := Mention(models.SourceReddit, Raw{Text: oversized}, time.Now())

	require.NoError(t, err)
	// The body is replaced wholesale, never truncated.
	assert.Equal(t, models.BodySentinel, m.Body)
	assert.False(t, strings.HasPrefix(m.Body, "xxx"))
}

func TestMention_AtCapIsPreserved(t *testing.T) {
	body := strings.Repeat("y", models.BodyMaxLen)

	m, err := Mention(models.SourceReddit, Raw{Text: body}, time.Now())

	require.NoError(t, err)
	assert.Equal(t, body, m.Body)
}

func TestMention_NoTextIsDropped(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "Empty", text: ""},
		{name: "Whitespace only", text: "   \n\t  "},
		{name: "Non-ASCII only", text: "日本語のみ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Mention(models.SourceReddit, Raw{Text: tt.text}, time.Now())
			assert.ErrorIs(t, err, ErrNoText)
		})
	}
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain ASCII unchanged",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:     "Accents folded",
			input:    "café naïve résumé",
			expected: "cafe naive resume",
		},
		{
			name:     "Emoji dropped",
			input:    "to the moon 🚀🚀",
			expected: "to the moon",
		},
		{
			name:     "Surrounding whitespace trimmed",
			input:    "  spaced out  ",
			expected: "spaced out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Transliterate(tt.input))
		})
	}
}
