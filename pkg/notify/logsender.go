package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes emails to the log instead of sending them
type LogSender struct {
	Logger *zap.Logger
}

func (s LogSender) Send(ctx context.Context, email Email) error {
	s.Logger.Info("email (not sent)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.TextBody))
	return nil
}
