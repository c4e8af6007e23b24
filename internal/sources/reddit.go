package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
)

const (
	redditPollInterval = 2 * time.Second
	redditPageLimit    = 100

	// A deleted anchor comment makes the listing come back empty forever;
	// after this many consecutive empty pages the anchor is re-primed.
	redditMaxEmptyPolls = 60
)

// RedditStream consumes new comments from a fixed multireddit. Reddit has no
// push firehose for script apps, so the stream is a newest-first poll of the
// comments listing anchored on the last seen fullname, skipping everything
// that existed before the stream opened.
type RedditStream struct {
	clientID     string
	clientSecret string
	userAgent    string
	subreddits   []string
	client       *resty.Client
	accessToken  string
}

var _ Stream = (*RedditStream)(nil)

type redditAuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditComment `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditComment struct {
	Name      string `json:"name"` // fullname, e.g. "t1_abc123"
	Body      string `json:"body"`
	LinkTitle string `json:"link_title"`
	Subreddit string `json:"subreddit"`
}

// NewRedditStream creates a new Reddit comment stream over the given subreddits.
func NewRedditStream(clientID, clientSecret, userAgent string, subreddits []string) *RedditStream {
	return &RedditStream{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		subreddits:   subreddits,
		client:       resty.New().SetTimeout(30 * time.Second),
	}
}

func (r *RedditStream) Name() string { return "reddit" }

func (r *RedditStream) Source() models.Source { return models.SourceReddit }

func (r *RedditStream) IsEnabled() bool {
	return r.clientID != "" && r.clientSecret != "" && len(r.subreddits) > 0
}

// Open authenticates and returns an iterator over new comments.
func (r *RedditStream) Open(ctx context.Context) (Iterator, error) {
	if err := r.authenticate(ctx); err != nil {
		return nil, fmt.Errorf("reddit authentication failed: %w", err)
	}

	return &redditIterator{stream: r}, nil
}

func (r *RedditStream) authenticate(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.userAgent).
		SetBasicAuth(r.clientID, r.clientSecret).
		SetFormData(map[string]string{
			"grant_type": "client_credentials",
		}).
		Post("https://www.reddit.com/api/v1/access_token")

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("reddit token endpoint returned status %d", resp.StatusCode())
	}

	var authResp redditAuthResponse
	if err := json.Unmarshal(resp.Body(), &authResp); err != nil {
		return err
	}

	if authResp.AccessToken == "" {
		return fmt.Errorf("reddit token endpoint returned no access token")
	}

	r.accessToken = authResp.AccessToken
	return nil
}

type redditIterator struct {
	stream     *RedditStream
	buffer     []Event
	anchor     string // fullname of the newest comment already seen
	primed     bool
	emptyPolls int
}

// Next returns the next new comment, polling the listing as needed.
func (it *redditIterator) Next(ctx context.Context) (Event, error) {
	for len(it.buffer) == 0 {
		if err := it.poll(ctx); err != nil {
			return Event{}, err
		}

		if len(it.buffer) == 0 {
			select {
			case <-ctx.Done():
				return Event{}, ctx.Err()
			case <-time.After(redditPollInterval):
			}
		}
	}

	ev := it.buffer[0]
	it.buffer = it.buffer[1:]
	return ev, nil
}

func (it *redditIterator) poll(ctx context.Context) error {
	listingURL := fmt.Sprintf("https://oauth.reddit.com/r/%s/comments?limit=%d&raw_json=1",
		strings.Join(it.stream.subreddits, "+"), redditPageLimit)
	if it.anchor != "" {
		listingURL += "&before=" + it.anchor
	}

	resp, err := it.stream.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+it.stream.accessToken).
		SetHeader("User-Agent", it.stream.userAgent).
		Get(listingURL)

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("reddit API returned status %d", resp.StatusCode())
	}

	var listing redditListing
	if err := json.Unmarshal(resp.Body(), &listing); err != nil {
		return fmt.Errorf("failed to parse reddit listing: %w", err)
	}

	children := listing.Data.Children
	if len(children) == 0 {
		it.emptyPolls++
		if it.emptyPolls >= redditMaxEmptyPolls {
			logrus.Warnf("Reddit listing empty for %d polls, re-priming anchor", it.emptyPolls)
			it.anchor = ""
			it.primed = false
			it.emptyPolls = 0
		}
		return nil
	}
	it.emptyPolls = 0

	// Listings are newest first; the first child becomes the next anchor.
	newest := children[0].Data.Name

	if !it.primed {
		// First page holds comments that predate the stream: skip them.
		it.anchor = newest
		it.primed = true
		return nil
	}

	it.anchor = newest

	// Emit oldest first to keep ingestion chronological.
	for i := len(children) - 1; i >= 0; i-- {
		c := children[i].Data
		it.buffer = append(it.buffer, Event{
			Text:    c.Body,
			Title:   c.LinkTitle,
			Channel: c.Subreddit,
		})
	}

	return nil
}

func (it *redditIterator) Close() {}
