package domain

import "time"

// Webhook represents a subscription to trade execution notifications.
// Subscribers are pure consumers of the trade event surface; delivery
// never mutates book state.
type Webhook struct {
	WebhookID string
	URL       string
	CreatedAt time.Time
}
