package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
)

// Twitter caps a single filtered-stream rule at 512 characters.
const twitterRuleMaxLen = 512

// TwitterStream consumes the Twitter/X v2 filtered stream, subscribed to the
// cashtags of every tracked ticker.
type TwitterStream struct {
	bearerToken string
	cashtags    []string
	api         *resty.Client
	stream      *resty.Client
}

var _ Stream = (*TwitterStream)(nil)

type twitterRulesResponse struct {
	Data []struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"data"`
}

type twitterStreamMessage struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// NewTwitterStream creates a new Twitter filtered stream for the given cashtags.
func NewTwitterStream(bearerToken string, cashtags []string) *TwitterStream {
	return &TwitterStream{
		bearerToken: bearerToken,
		cashtags:    cashtags,
		api: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "stock-mentions-bot/1.0"),
		// The stream connection is long-lived: no client timeout.
		stream: resty.New().
			SetTimeout(0).
			SetHeader("User-Agent", "stock-mentions-bot/1.0"),
	}
}

func (t *TwitterStream) Name() string { return "twitter" }

func (t *TwitterStream) Source() models.Source { return models.SourceTwitter }

func (t *TwitterStream) IsEnabled() bool {
	return t.bearerToken != "" && len(t.cashtags) > 0
}

// Open reconciles the stream rules and connects to the filtered stream.
func (t *TwitterStream) Open(ctx context.Context) (Iterator, error) {
	if err := t.ensureRules(ctx); err != nil {
		return nil, fmt.Errorf("failed to set twitter stream rules: %w", err)
	}

	resp, err := t.stream.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetDoNotParseResponse(true).
		Get("https://api.twitter.com/2/tweets/search/stream")

	if err != nil {
		return nil, err
	}

	if resp.StatusCode() != 200 {
		body, _ := io.ReadAll(resp.RawBody())
		resp.RawBody().Close()
		return nil, fmt.Errorf("twitter stream returned status %d: %s", resp.StatusCode(), string(body))
	}

	return &twitterIterator{
		body:   resp.RawBody(),
		reader: bufio.NewReader(resp.RawBody()),
	}, nil
}

// ensureRules replaces the filtered-stream rule set with one built from the
// configured cashtags, packing as many tags per rule as the length cap allows.
func (t *TwitterStream) ensureRules(ctx context.Context) error {
	resp, err := t.api.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		Get("https://api.twitter.com/2/tweets/search/stream/rules")

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("twitter rules endpoint returned status %d", resp.StatusCode())
	}

	var existing twitterRulesResponse
	if err := json.Unmarshal(resp.Body(), &existing); err != nil {
		return fmt.Errorf("failed to parse twitter rules: %w", err)
	}

	desired := buildCashtagRules(t.cashtags)

	current := make(map[string]string) // value -> id
	for _, rule := range existing.Data {
		current[rule.Value] = rule.ID
	}

	var staleIDs []string
	for value, id := range current {
		if !contains(desired, value) {
			staleIDs = append(staleIDs, id)
		}
	}

	var missing []map[string]string
	for _, value := range desired {
		if _, ok := current[value]; !ok {
			missing = append(missing, map[string]string{"value": value})
		}
	}

	if len(staleIDs) == 0 && len(missing) == 0 {
		return nil
	}

	payload := map[string]interface{}{}
	if len(missing) > 0 {
		payload["add"] = missing
	}
	if len(staleIDs) > 0 {
		payload["delete"] = map[string]interface{}{"ids": staleIDs}
	}

	resp, err = t.api.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+t.bearerToken).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("https://api.twitter.com/2/tweets/search/stream/rules")

	if err != nil {
		return err
	}

	if resp.StatusCode() != 200 && resp.StatusCode() != 201 {
		return fmt.Errorf("twitter rules update returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	logrus.Infof("Twitter stream rules reconciled: %d added, %d removed", len(missing), len(staleIDs))
	return nil
}

// buildCashtagRules packs cashtags into OR-joined rule values within the
// per-rule length cap.
func buildCashtagRules(cashtags []string) []string {
	var rules []string
	var parts []string
	length := 0

	flush := func() {
		if len(parts) > 0 {
			rules = append(rules, strings.Join(parts, " OR "))
			parts = nil
			length = 0
		}
	}

	for _, tag := range cashtags {
		quoted := `"` + tag + `"`
		// " OR " between every part
		if length+len(quoted)+4 > twitterRuleMaxLen {
			flush()
		}
		parts = append(parts, quoted)
		length += len(quoted) + 4
	}
	flush()

	return rules
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

type twitterIterator struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Next reads the next tweet off the stream. Blank lines are keep-alives and
// are skipped; anything else that fails to parse ends the stream so the
// consumer reconnects.
func (it *twitterIterator) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}

		line, err := it.reader.ReadBytes('\n')
		if err != nil {
			return Event{}, fmt.Errorf("twitter stream read failed: %w", err)
		}

		trimmed := strings.TrimSpace(string(line))
		if trimmed == "" {
			continue // keep-alive
		}

		var msg twitterStreamMessage
		if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
			return Event{}, fmt.Errorf("failed to parse twitter stream message: %w", err)
		}

		if msg.Data.Text == "" {
			// Control frame or error payload, not a tweet.
			logrus.Debugf("Skipping non-tweet stream message: %s", trimmed)
			continue
		}

		return Event{Text: msg.Data.Text}, nil
	}
}

func (it *twitterIterator) Close() {
	it.body.Close()
}
