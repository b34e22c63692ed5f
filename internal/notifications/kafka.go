package notifications

import (
	"context"
	"errors"
	"fmt"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"

	"github.com/google/uuid"
)

// KafkaDispatcher publishes one request per message to the outbound topic of
// its channel; a provider bridge consumes from there.
type KafkaDispatcher struct {
	publishers map[config.Channel]kafka.EventPublisher
}

func NewKafkaDispatcher(publishers map[config.Channel]kafka.EventPublisher) *KafkaDispatcher {
	return &KafkaDispatcher{publishers: publishers}
}

func (d *KafkaDispatcher) Send(ctx context.Context, channel config.Channel, target string, msg Message) (bool, string, error) {
	publisher, ok := d.publishers[channel]
	if !ok {
		return false, "", &ProviderSendError{Channel: channel, Target: target, Err: fmt.Errorf("no publisher for channel %s", channel)}
	}

	req := Request{
		ID:      uuid.NewString(),
		Channel: channel,
		Target:  target,
		Subject: msg.Subject,
		Body:    msg.Body,
	}
	if err := publisher.PublishEvent(ctx, target, EventNotificationRequested, req); err != nil {
		return false, "", &ProviderSendError{Channel: channel, Target: target, Err: err}
	}
	return true, req.ID, nil
}

func (d *KafkaDispatcher) Close() error {
	var errs []error
	for _, p := range d.publishers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
