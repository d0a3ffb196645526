// Package notify defines the outbound notification contract. Message
// delivery and formatting are external collaborators; the engine only
// needs a send primitive whose failures are logged and never fatal to
// the state transition that triggered them.
package notify

import (
	"context"
	"log/slog"
)

// Notifier sends a human-readable message to a user. Implementations
// must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// LogNotifier is a Notifier that only records messages in the structured
// log. It stands in for a real delivery channel in development and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. If logger is nil, the default
// logger is used.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		logger: logger.With(slog.String("component", "notifier")),
	}
}

// Ensure LogNotifier implements Notifier interface
var _ Notifier = (*LogNotifier)(nil)

// Notify implements Notifier.Notify.
func (n *LogNotifier) Notify(ctx context.Context, userID int64, message string) error {
	n.logger.Info("notification",
		slog.Int64("user_id", userID),
		slog.String("message", message))
	return nil
}
