// Package normalize turns raw platform payloads into canonical Mention records.
package normalize

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/stockdash/mentions-bot/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoText marks a payload with no usable text. Such events are dropped,
// never stored as empty mentions.
var ErrNoText = errors.New("event has no text")

// asciiFold decomposes accented characters and strips the combining marks,
// e.g. "café" -> "cafe". Remaining non-ASCII runes are dropped afterwards.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Raw is a platform event before normalization. Title and Channel are only
// set by sources that have them.
type Raw struct {
	Text    string
	Title   string
	Channel string
}

// Mention builds a canonical Mention from a raw event observed at the given
// time. The body is transliterated to plain ASCII and capped at
// models.BodyMaxLen: oversized text is replaced wholesale by the sentinel
// rather than truncated mid-word.
func Mention(source models.Source, raw Raw, observedAt time.Time) (models.Mention, error) {
	body := Transliterate(raw.Text)
	if body == "" {
		return models.Mention{}, ErrNoText
	}

	if len(body) > models.BodyMaxLen {
		body = models.BodySentinel
	}

	return models.Mention{
		ID:         uuid.New(),
		ObservedAt: observedAt,
		Source:     source,
		Channel:    Transliterate(raw.Channel),
		Title:      Transliterate(raw.Title),
		Body:       body,
	}, nil
}

// Transliterate reduces text to trimmed plain ASCII.
func Transliterate(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(b.String())
}
