package model

import (
	"slotbook/pkg/config"
	"time"
)

type CreditBalance struct {
	TenantID        string    `json:"tenant_id" bson:"_id"`
	WhatsAppCredits int64     `json:"whatsapp_credits" bson:"whatsapp_credits"`
	SMSCredits      int64     `json:"sms_credits" bson:"sms_credits"`
	EmailQuota      int64     `json:"email_quota" bson:"email_quota"`
	EmailUsed       int64     `json:"email_used" bson:"email_used"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

// Available returns what one more debit on channel could consume.
func (b *CreditBalance) Available(channel config.Channel) int64 {
	switch channel {
	case config.SMS:
		return b.SMSCredits
	case config.WhatsApp:
		return b.WhatsAppCredits
	case config.Email:
		return b.EmailQuota - b.EmailUsed
	}
	return 0
}

type CreditMovementKind string

const (
	MovementTopUp CreditMovementKind = "top_up"
)

type CreditMovement struct {
	ID         string             `json:"id,omitempty" bson:"_id,omitempty"`
	TenantID   string             `json:"tenant_id" bson:"tenant_id"`
	Channel    config.Channel     `json:"channel" bson:"channel"`
	Amount     int64              `json:"amount" bson:"amount"`
	Kind       CreditMovementKind `json:"kind" bson:"kind"`
	PaymentRef string             `json:"payment_ref" bson:"payment_ref"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

type TopUpRequest struct {
	Channel    config.Channel `json:"channel" validate:"required,oneof=sms whatsapp email"`
	Amount     int64          `json:"amount" validate:"required,min=1,max=1000000"`
	PaymentRef string         `json:"payment_ref" validate:"required,min=1,max=200"`
}

type DebitRequest struct {
	Channel config.Channel `json:"channel" validate:"required,oneof=sms whatsapp email"`
	Count   int64          `json:"count" validate:"required,min=1,max=10000"`
}

type TopUpResult struct {
	Balance *CreditBalance `json:"balance"`
	Applied bool           `json:"applied"`
}
