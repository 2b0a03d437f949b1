package email

import (
	"context"

	"leadflow_backend/platform/logger"
)

// NoopSender logs messages instead of sending them. Used when email is
// disabled, typically in development.
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a logging-only sender.
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

// Send logs the message and succeeds.
func (s *NoopSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email suppressed (sending disabled)",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
