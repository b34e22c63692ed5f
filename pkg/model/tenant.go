package model

import "time"

type Tenant struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name         string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Paid         bool      `json:"paid" bson:"paid"`
	Active       bool      `json:"active" bson:"active"`
	Timezone     string    `json:"timezone" bson:"timezone" validate:"required,iana_tz"`
	Country      string    `json:"country" bson:"country" validate:"required,len=2,alpha"`
	Locale       string    `json:"locale,omitempty" bson:"locale,omitempty" validate:"omitempty,oneof=nl en fr"`
	ContactEmail string    `json:"contact_email,omitempty" bson:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone string    `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// IsPaid is the gate bookings pass through: paid and not deactivated.
func (t *Tenant) IsPaid() bool {
	return t != nil && t.Paid && t.Active
}

type TenantUpdate struct {
	Name         string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Timezone     string `json:"timezone,omitempty" validate:"omitempty,iana_tz"`
	Country      string `json:"country,omitempty" validate:"omitempty,len=2,alpha"`
	Locale       string `json:"locale,omitempty" validate:"omitempty,oneof=nl en fr"`
	ContactEmail string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone,omitempty" validate:"omitempty,e164"`
}
