package storage

import (
	"context"
	"errors"
	"time"

	"github.com/stockdash/mentions-bot/internal/models"
)

// ErrUnavailable wraps retrieval failures so callers can distinguish "the
// store could not be reached" from "no rows matched". Zero matches is a
// valid, non-error result.
var ErrUnavailable = errors.New("mention store unavailable")

// QueryLimit caps the number of mentions a query returns.
const QueryLimit = 20

// Store is the persistence sink and read contract for mentions.
//
// Append must be safe for concurrent use by every active consumer; each
// insert is an independent atomic operation. There are no updates and no
// deletes: retention is an external concern.
type Store interface {
	// Append inserts one mention.
	Append(ctx context.Context, m models.Mention) error

	// QueryMentions returns the most recent mentions whose body contains the
	// company name (case-insensitive) or the ticker as a cashtag followed by
	// a word boundary ("$DIS "). Among rows sharing identical body text only
	// the most recent is returned. Results are ordered by observation time
	// descending and capped at QueryLimit.
	QueryMentions(ctx context.Context, companyName, tickerSymbol string) ([]models.Mention, error)

	// MentionsSince returns all mentions observed at or after t, oldest first.
	MentionsSince(ctx context.Context, t time.Time) ([]models.Mention, error)

	// IngestStats counts mentions per source observed at or after t.
	IngestStats(ctx context.Context, t time.Time) (map[string]int, error)

	HealthCheck(ctx context.Context) error
	Close()
}
