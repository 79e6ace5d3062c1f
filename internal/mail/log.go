package mail

import (
	"context"
	"log/slog"
)

// LogDispatcher writes rendered mail to the logger instead of delivering it.
// Used when no SMTP host is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, msg Message) error {
	rendered, err := Render(msg)
	if err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "mail not delivered, smtp disabled",
		"template", string(msg.Template),
		"to", msg.To,
		"subject", rendered.Subject,
		"body", rendered.Text,
	)
	return nil
}
