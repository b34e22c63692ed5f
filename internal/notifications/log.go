package notifications

import (
	"context"
	"slotbook/pkg/config"
	"slotbook/pkg/logger"

	"github.com/google/uuid"
)

// LogDispatcher only logs. It is the default for local runs.
type LogDispatcher struct {
	log *logger.Logger
}

func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Send(ctx context.Context, channel config.Channel, target string, msg Message) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", &ProviderSendError{Channel: channel, Target: target, Err: err}
	}
	ref := uuid.NewString()
	d.log.Info("Notification sent",
		"channel", channel,
		"target", target,
		"subject", msg.Subject,
		"body_length", len(msg.Body),
		"provider_ref", ref,
	)
	return true, ref, nil
}

func (d *LogDispatcher) Close() error { return nil }
