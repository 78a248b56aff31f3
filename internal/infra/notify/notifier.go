// Package notify carries retention notifications to the outside world. This
// core only decides that a notification is due, not how it is delivered.
package notify

import (
	"context"
	"log/slog"

	"github.com/veritrail/veritrail/internal/retention"
)

// SlogNotifier records notifications on the structured log. It is the default
// collaborator when no external delivery channel is wired.
type SlogNotifier struct {
	logger *slog.Logger
}

// NewSlogNotifier creates a log-backed notifier.
func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

// Notify logs the notification.
func (n *SlogNotifier) Notify(ctx context.Context, note retention.Notification) error {
	n.logger.InfoContext(ctx, "retention notification",
		slog.String("policy_id", note.PolicyID),
		slog.String("policy_name", note.PolicyName),
		slog.String("regulation", note.Regulation),
		slog.String("entry_id", note.EntryID),
		slog.String("message", note.Message))
	return nil
}
