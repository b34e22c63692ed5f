package model

import (
	"slotbook/pkg/config"
	"time"
)

// ChannelTemplate configures one channel of one reminder slot. A nil pointer
// in ChannelTemplates means the channel is off.
type ChannelTemplate struct {
	Enabled bool   `json:"enabled" bson:"enabled"`
	Subject string `json:"subject,omitempty" bson:"subject,omitempty" validate:"max=200,template_placeholders"`
	Body    string `json:"body" bson:"body" validate:"required_if=Enabled true,max=1600,template_placeholders"`
}

type ChannelTemplates struct {
	SMS      *ChannelTemplate `json:"sms,omitempty" bson:"sms,omitempty"`
	WhatsApp *ChannelTemplate `json:"whatsapp,omitempty" bson:"whatsapp,omitempty"`
	Email    *ChannelTemplate `json:"email,omitempty" bson:"email,omitempty"`
}

// For returns the template configured for channel, or nil.
func (c ChannelTemplates) For(channel config.Channel) *ChannelTemplate {
	switch channel {
	case config.SMS:
		return c.SMS
	case config.WhatsApp:
		return c.WhatsApp
	case config.Email:
		return c.Email
	}
	return nil
}

type DayBeforeReminder struct {
	Enabled    bool             `json:"enabled" bson:"enabled"`
	DaysBefore int              `json:"days_before" bson:"days_before" validate:"min=1,max=14"`
	SendTime   string           `json:"send_time" bson:"send_time" validate:"required,hhmm"`
	Channels   ChannelTemplates `json:"channels" bson:"channels"`
}

type SameDayReminder struct {
	Enabled       bool             `json:"enabled" bson:"enabled"`
	MinutesBefore int              `json:"minutes_before" bson:"minutes_before" validate:"min=5,max=1440"`
	Channels      ChannelTemplates `json:"channels" bson:"channels"`
}

type ReminderPolicy struct {
	TenantID  string            `json:"tenant_id" bson:"_id"`
	Enabled   bool              `json:"enabled" bson:"enabled"`
	Timezone  string            `json:"timezone,omitempty" bson:"timezone,omitempty" validate:"omitempty,iana_tz"`
	DayBefore DayBeforeReminder `json:"day_before" bson:"day_before"`
	SameDay   SameDayReminder   `json:"same_day" bson:"same_day"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
}

// Channels returns the templates of slot.
func (p *ReminderPolicy) Channels(slot config.ReminderSlot) ChannelTemplates {
	switch slot {
	case config.DayBefore:
		return p.DayBefore.Channels
	case config.SameDay:
		return p.SameDay.Channels
	}
	return ChannelTemplates{}
}

// SlotEnabled reports whether slot can fire at all.
func (p *ReminderPolicy) SlotEnabled(slot config.ReminderSlot) bool {
	if !p.Enabled {
		return false
	}
	switch slot {
	case config.DayBefore:
		return p.DayBefore.Enabled
	case config.SameDay:
		return p.SameDay.Enabled
	}
	return false
}

// DispatchKey identifies one reminder occasion for one booking on one channel.
type DispatchKey struct {
	BookingID string              `json:"booking_id" bson:"booking_id"`
	Slot      config.ReminderSlot `json:"slot" bson:"slot"`
	Channel   config.Channel      `json:"channel" bson:"channel"`
}

func (k DispatchKey) String() string {
	return k.BookingID + "/" + string(k.Slot) + "/" + string(k.Channel)
}

// ReminderDispatchRecord is the authoritative sent marker, unique per key.
type ReminderDispatchRecord struct {
	DispatchKey `bson:",inline"`

	ID          string    `json:"id" bson:"_id"`
	TenantID    string    `json:"tenant_id" bson:"tenant_id"`
	Target      string    `json:"target" bson:"target"`
	ProviderRef string    `json:"provider_ref,omitempty" bson:"provider_ref,omitempty"`
	SentAt      time.Time `json:"sent_at" bson:"sent_at"`
}

type ClaimState string

const (
	ClaimInFlight        ClaimState = "in_flight"
	ClaimSkippedNoCredit ClaimState = "skipped_no_credit"
	// ClaimSentUnrecorded marks a delivered message whose record write failed.
	ClaimSentUnrecorded  ClaimState = "sent_unrecorded"
)

// ReminderClaim is a lease on a key while an attempt runs. Claims in any
// state other than in_flight have no expiry and block the key for good.
type ReminderClaim struct {
	DispatchKey `bson:",inline"`

	ID          string     `json:"id" bson:"_id"`
	TenantID    string     `json:"tenant_id" bson:"tenant_id"`
	Owner       string     `json:"owner" bson:"owner"`
	State       ClaimState `json:"state" bson:"state"`
	ProviderRef string     `json:"provider_ref,omitempty" bson:"provider_ref,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// TemplatePlaceholders are the tokens a reminder body or subject may use.
var TemplatePlaceholders = []string{"{customer}", "{date}", "{time}", "{tenant}"}
