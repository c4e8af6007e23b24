package notifications

import "github.com/stockdash/mentions-bot/internal/models"

// NotificationInterface defines the contract for digest delivery
type NotificationInterface interface {
	SendDigest(digest *models.Digest) error
	Enabled() bool
}
