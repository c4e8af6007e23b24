package models

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies the platform a mention originated from.
type Source string

const (
	SourceReddit  Source = "reddit"
	SourceTwitter Source = "twitter"
)

const (
	// BodyMaxLen is the hard cap on mention body length.
	BodyMaxLen = 2000

	// BodySentinel replaces any body exceeding BodyMaxLen. The whole body is
	// swapped out rather than truncated so a half-sentence never reaches the
	// sentiment scorer.
	BodySentinel = "data is too large"
)

// Mention is one normalized unit of social-media text referencing a tracked equity.
// Mentions are immutable once persisted; the pipeline only ever inserts.
type Mention struct {
	ID         uuid.UUID `json:"id"`
	ObservedAt time.Time `json:"observed_at"` // ingestion time, not platform-reported time
	Source     Source    `json:"source"`
	Channel    string    `json:"channel,omitempty"` // subreddit for Reddit, empty for Twitter
	Title      string    `json:"title,omitempty"`   // parent post title for Reddit, empty for Twitter
	Body       string    `json:"body"`
	Sentiment  *float64  `json:"sentiment,omitempty"` // compound score in [-1, 1], nil when scoring is disabled
}

// Digest summarizes a period of ingestion for the daily/weekly report.
type Digest struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	Period        string         `json:"period"` // "daily" or "weekly"
	TotalMentions int            `json:"total_mentions"`
	BySource      map[string]int `json:"by_source"`
}
