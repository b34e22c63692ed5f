package kafka

import "context"

// EventPublisher is the part of Producer that domain services depend on.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key, eventType string, payload any) error
	Close() error
}

var _ EventPublisher = (*Producer)(nil)

// NopPublisher drops every event. Services use it when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, string, string, any) error { return nil }

func (NopPublisher) Close() error { return nil }
