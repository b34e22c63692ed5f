package model

import (
	"slotbook/pkg/config"
	"time"
)

const (
	EventBookingCommitted     = "booking.committed"
	EventBookingStatusChanged = "booking.status_changed"
	EventReminderSent         = "reminder.sent"

	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventCreditsPurchased      = "credits.purchased"
)

type BookingCommittedEvent struct {
	BookingID  string    `json:"booking_id"`
	TenantID   string    `json:"tenant_id"`
	Date       string    `json:"date"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	StartsAt   time.Time `json:"starts_at"`
	TotalPrice string    `json:"total_price"`
}

type BookingStatusChangedEvent struct {
	BookingID string               `json:"booking_id"`
	TenantID  string               `json:"tenant_id"`
	From      config.BookingStatus `json:"from"`
	To        config.BookingStatus `json:"to"`
}

type ReminderSentEvent struct {
	TenantID    string              `json:"tenant_id"`
	BookingID   string              `json:"booking_id"`
	Slot        config.ReminderSlot `json:"slot"`
	Channel     config.Channel      `json:"channel"`
	ProviderRef string              `json:"provider_ref,omitempty"`
	SentAt      time.Time           `json:"sent_at"`
}

// PaymentEvent is the payload the payment provider bridge publishes, and the
// body of the signed webhook.
type PaymentEvent struct {
	Type       string         `json:"type" validate:"required,oneof=subscription.activated subscription.cancelled credits.purchased"`
	TenantID   string         `json:"tenant_id" validate:"required"`
	PaymentRef string         `json:"payment_ref" validate:"required"`
	Channel    config.Channel `json:"channel,omitempty" validate:"required_if=Type credits.purchased,omitempty,oneof=sms whatsapp email"`
	Amount     int64          `json:"amount,omitempty" validate:"required_if=Type credits.purchased,omitempty,min=1"`
}
