package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogGateway writes messages to the log instead of sending them. Used when
// no email API is configured.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, msg Message) error {
	g.logger.Info("email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.Template),
		zap.String("body", msg.Body),
	)
	return nil
}

var _ Gateway = (*LogGateway)(nil)
