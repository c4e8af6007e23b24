// Package notifications delivers the periodic ingest digest to operators via
// Teams webhook and/or email. Both channels are optional; delivery failures
// are reported but never stop the pipeline.
package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/config"
	"github.com/stockdash/mentions-bot/internal/models"
	"gopkg.in/gomail.v2"
)

// Service handles sending digests via configured channels
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// Enabled reports whether at least one delivery channel is configured.
func (s *Service) Enabled() bool {
	return s.config.TeamsWebhookURL != "" || s.config.NotificationEmail != ""
}

// SendDigest sends the ingest digest via every configured channel
func (s *Service) SendDigest(digest *models.Digest) error {
	var errs []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(digest); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errs = append(errs, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(digest); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errs = append(errs, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(digest *models.Digest) error {
	message := s.buildTeamsMessage(digest)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)

	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) buildTeamsMessage(digest *models.Digest) *TeamsMessage {
	facts := []TeamsFact{
		{Name: "Total Mentions", Value: fmt.Sprintf("%d", digest.TotalMentions)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}

	for _, source := range sortedSources(digest.BySource) {
		facts = append(facts, TeamsFact{
			Name:  fmt.Sprintf("%s Mentions", strings.Title(source)),
			Value: fmt.Sprintf("%d", digest.BySource[source]),
		})
	}

	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("Stock Mentions Digest - %s", strings.Title(digest.Period)),
		Text:    fmt.Sprintf("Ingested %d mentions in the last %s period", digest.TotalMentions, digest.Period),
		Sections: []TeamsSection{{
			ActivityTitle: "Summary",
			Facts:         facts,
			Markdown:      true,
		}},
	}
}

func (s *Service) sendEmail(digest *models.Digest) error {
	subject := fmt.Sprintf("Stock Mentions Digest - %s (%d mentions)",
		strings.Title(digest.Period), digest.TotalMentions)

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", s.buildEmailText(digest))

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *Service) buildEmailText(digest *models.Digest) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Stock Mentions Digest - %s\n", strings.Title(digest.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", digest.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("Total Mentions: %d\n", digest.TotalMentions))

	for _, source := range sortedSources(digest.BySource) {
		text.WriteString(fmt.Sprintf("%s Mentions: %d\n", strings.Title(source), digest.BySource[source]))
	}

	text.WriteString("\n---\nThis digest was generated automatically by the stock mentions bot.\n")

	return text.String()
}

func sortedSources(bySource map[string]int) []string {
	sources := make([]string, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
