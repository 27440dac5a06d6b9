package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes messages to the structured log instead of delivering
// them. Used for local development and as a safe default when no real
// transport is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a logging transport.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "log_notifier")}
}

// Name identifies the transport.
func (n *LogNotifier) Name() string {
	return "log"
}

// Send logs the message instead of delivering it.
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "notification",
		"to", to,
		"subject", subject,
		"body_length", len(body))
	return nil
}
