package notifications

import (
	"context"
	"fmt"
	"slotbook/pkg/config"
)

// Message is a rendered reminder. Subject is only used by email.
type Message struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Dispatcher hands a message to the provider of a channel. A non-nil error
// always means the message was not sent.
type Dispatcher interface {
	Send(ctx context.Context, channel config.Channel, target string, msg Message) (sent bool, providerRef string, err error)
	Close() error
}

// ProviderSendError wraps a provider failure for one delivery attempt.
type ProviderSendError struct {
	Channel config.Channel
	Target  string
	Status  int
	Err     error
}

func (e *ProviderSendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("send %s to %s failed with status %d: %v", e.Channel, e.Target, e.Status, e.Err)
	}
	return fmt.Sprintf("send %s to %s failed: %v", e.Channel, e.Target, e.Err)
}

func (e *ProviderSendError) Unwrap() error {
	return e.Err
}

// Request is the payload handed to kafka and webhook providers.
type Request struct {
	ID      string         `json:"id"`
	Channel config.Channel `json:"channel"`
	Target  string         `json:"target"`
	Subject string         `json:"subject,omitempty"`
	Body    string         `json:"body"`
}

const EventNotificationRequested = "notification.requested"
