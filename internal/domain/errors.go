package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrWebhookNotFound = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure. Validation
// always happens before any book state is touched, so a ValidationError
// implies no mutation occurred.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
