package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them.
// It is used when no SendGrid key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender returns a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, addr.Address)
	}
	s.logger.Info("email not delivered; sendgrid disabled",
		zap.Strings("to", to),
		zap.String("subject", msg.Subject))
	return nil
}
