package sources

import (
	"context"

	"github.com/stockdash/mentions-bot/internal/models"
)

// Event is a raw platform payload. Title and Channel are only populated by
// sources that have them (Reddit); Twitter events carry text only.
type Event struct {
	Text    string
	Title   string
	Channel string
}

// Iterator yields events from an open stream. Next blocks until an event is
// available, the stream fails, or ctx is done.
type Iterator interface {
	Next(ctx context.Context) (Event, error)
	Close()
}

// Stream interface defines the contract for all live event sources.
type Stream interface {
	Name() string
	Source() models.Source
	IsEnabled() bool
	Open(ctx context.Context) (Iterator, error)
}
