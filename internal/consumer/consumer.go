// Package consumer implements the long-running stream consumer framework:
// one consumer per external source, gated by a daily activity window,
// restarting its connect-subscribe loop on any failure.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/normalize"
	"github.com/stockdash/mentions-bot/internal/sentiment"
	"github.com/stockdash/mentions-bot/internal/sources"
	"github.com/stockdash/mentions-bot/internal/storage"
)

// Consumer states, reported through the metrics snapshot.
const (
	StateIdle       = "idle"
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateBackoff    = "backoff"
)

const (
	defaultBackoff  = 10 * time.Second
	defaultIdlePoll = time.Minute
)

// Config wires one Consumer.
type Config struct {
	Stream sources.Stream
	Store  storage.Store
	Scorer sentiment.Scorer // nil disables scoring for this source

	Window   ActivityWindow
	Backoff  time.Duration   // sleep after any failure; default 10s
	IdlePoll time.Duration   // how often the window is re-checked while idle; default 1m
	Clock    clockwork.Clock // default real clock
}

// Metrics is a snapshot of one consumer's counters.
type Metrics struct {
	Source      string    `json:"source"`
	State       string    `json:"state"`
	Ingested    int64     `json:"ingested"`
	Dropped     int64     `json:"dropped"` // malformed events discarded by the normalizer
	Errors      int64     `json:"errors"`
	LastEventAt time.Time `json:"last_event_at,omitempty"`
}

// Consumer keeps one external firehose alive and routes every qualifying
// event through normalize -> score -> append. Failures never propagate out of
// Run; the loop is designed to run unattended until ctx ends.
type Consumer struct {
	stream   sources.Stream
	store    storage.Store
	scorer   sentiment.Scorer
	window   ActivityWindow
	backoff  time.Duration
	idlePoll time.Duration
	clock    clockwork.Clock

	mu      sync.RWMutex
	metrics Metrics
}

// New creates a consumer from cfg, filling in defaults.
func New(cfg Config) *Consumer {
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = defaultIdlePoll
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Consumer{
		stream:   cfg.Stream,
		store:    cfg.Store,
		scorer:   cfg.Scorer,
		window:   cfg.Window,
		backoff:  cfg.Backoff,
		idlePoll: cfg.IdlePoll,
		clock:    cfg.Clock,
		metrics:  Metrics{Source: cfg.Stream.Name(), State: StateIdle},
	}
}

// Run drives the consumer until ctx is done. There is no other exit: every
// failure is logged, waited out, and retried.
func (c *Consumer) Run(ctx context.Context) {
	logrus.Infof("Consumer %s starting", c.stream.Name())

	for {
		if ctx.Err() != nil {
			logrus.Infof("Consumer %s stopped", c.stream.Name())
			return
		}

		if !c.window.Contains(c.clock.Now()) {
			c.setState(StateIdle)
			select {
			case <-ctx.Done():
			case <-c.clock.After(c.idlePoll):
			}
			continue
		}

		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				continue
			}

			c.recordError()
			logrus.Errorf("Consumer %s failed: %v (restarting in %v)", c.stream.Name(), err, c.backoff)

			c.setState(StateBackoff)
			select {
			case <-ctx.Done():
			case <-c.clock.After(c.backoff):
			}
		}
	}
}

// consume opens the stream and processes events until the window closes, the
// stream fails, or ctx ends. A nil return means the window closed normally.
func (c *Consumer) consume(ctx context.Context) error {
	c.setState(StateConnecting)

	it, err := c.stream.Open(ctx)
	if err != nil {
		return err
	}
	defer it.Close()

	c.setState(StateStreaming)
	logrus.Infof("Consumer %s streaming", c.stream.Name())

	for {
		// Re-checked per event so a closing window ends streaming without
		// waiting for the connection to fail.
		if !c.window.Contains(c.clock.Now()) {
			logrus.Infof("Consumer %s activity window closed", c.stream.Name())
			return nil
		}

		ev, err := it.Next(ctx)
		if err != nil {
			return err
		}

		if err := c.process(ctx, ev); err != nil {
			return err
		}
	}
}

// process normalizes, scores, and persists one event. Malformed events are
// dropped silently; only persistence failures propagate, and the outer loop
// treats those like any transient failure.
func (c *Consumer) process(ctx context.Context, ev sources.Event) error {
	m, err := normalize.Mention(c.stream.Source(), normalize.Raw{
		Text:    ev.Text,
		Title:   ev.Title,
		Channel: ev.Channel,
	}, c.clock.Now())

	if err != nil {
		// Malformed payload: drop, count, move on.
		c.recordDrop()
		logrus.Debugf("Consumer %s dropped event: %v", c.stream.Name(), err)
		return nil
	}

	if c.scorer != nil {
		score := c.scorer.Score(m.Body)
		m.Sentiment = &score
	}

	if err := c.store.Append(ctx, m); err != nil {
		// The in-flight event is not retried individually: at-most-once for
		// this record. The outer loop backs off and reconnects.
		return err
	}

	c.recordIngest(m.ObservedAt)
	return nil
}

// Snapshot returns the current counters.
func (c *Consumer) Snapshot() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.metrics
}

// SnapshotJSON renders the counters as JSON for the metrics endpoint.
func (c *Consumer) SnapshotJSON() json.RawMessage {
	data, _ := json.Marshal(c.Snapshot())
	return data
}

func (c *Consumer) setState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.State = state
}

func (c *Consumer) recordIngest(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Ingested++
	c.metrics.LastEventAt = at
}

func (c *Consumer) recordDrop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Dropped++
}

func (c *Consumer) recordError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.Errors++
}
