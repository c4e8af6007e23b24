// Package scheduler runs the periodic ingest digest: a cron-driven summary
// of what the consumers wrote, delivered to operators and exported to the
// cold archive.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/archive"
	"github.com/stockdash/mentions-bot/internal/config"
	"github.com/stockdash/mentions-bot/internal/models"
	"github.com/stockdash/mentions-bot/internal/notifications"
	"github.com/stockdash/mentions-bot/internal/storage"
)

// Service handles scheduling of digest and archive jobs
type Service struct {
	config   *config.Config
	store    storage.Store
	notifier notifications.NotificationInterface
	archiver archive.Archiver // nil disables archiving
	cron     *cron.Cron
}

// NewService creates a new scheduler service. archiver may be nil.
func NewService(cfg *config.Config, store storage.Store, notifier notifications.NotificationInterface, archiver archive.Archiver) (*Service, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.TimeZone, err)
	}

	return &Service{
		config:   cfg,
		store:    store,
		notifier: notifier,
		archiver: archiver,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
	}, nil
}

// Start begins the scheduled digest runs
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.DigestSchedule {
	case "daily":
		// Run daily at 9 AM local time
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM local time
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled digest run")
		if err := s.RunDigest(); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})

	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

// RunDigest computes and delivers the digest for the last period, then
// exports the period's mentions to the archive when one is configured.
func (s *Service) RunDigest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var window time.Duration
	switch s.config.DigestSchedule {
	case "weekly":
		window = 7 * 24 * time.Hour
	default:
		window = 24 * time.Hour
	}

	now := time.Now()
	since := now.Add(-window)

	stats, err := s.store.IngestStats(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to compute ingest stats: %w", err)
	}

	total := 0
	for _, count := range stats {
		total += count
	}

	digest := &models.Digest{
		GeneratedAt:   now,
		Period:        s.config.DigestSchedule,
		TotalMentions: total,
		BySource:      stats,
	}

	logrus.Infof("Digest for last %v: %d mentions", window, total)

	if s.notifier != nil && s.notifier.Enabled() {
		if err := s.notifier.SendDigest(digest); err != nil {
			logrus.Errorf("Failed to deliver digest: %v", err)
		}
	}

	if s.archiver != nil {
		if err := s.runArchive(ctx, since, now); err != nil {
			logrus.Errorf("Failed to archive mentions: %v", err)
		}
	}

	return nil
}

func (s *Service) runArchive(ctx context.Context, since, now time.Time) error {
	mentions, err := s.store.MentionsSince(ctx, since)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("mentions-%s.json", now.Format("2006-01-02"))
	return s.archiver.Export(ctx, name, mentions)
}
