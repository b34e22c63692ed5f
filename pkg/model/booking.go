package model

import (
	"slotbook/pkg/config"
	"time"

	"github.com/shopspring/decimal"
)

// BookingItem is a copy of a service taken at commit time. Later catalog
// edits never reach it.
type BookingItem struct {
	ServiceID   string          `json:"service_id" bson:"service_id"`
	Name        string          `json:"name" bson:"name"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	DurationMin int             `json:"duration_min" bson:"duration_min"`
}

type Booking struct {
	ID               string               `json:"id,omitempty" bson:"_id,omitempty"`
	TenantID         string               `json:"tenant_id" bson:"tenant_id"`
	CustomerName     string               `json:"customer_name" bson:"customer_name"`
	CustomerPhone    string               `json:"customer_phone" bson:"customer_phone"`
	CustomerEmail    string               `json:"customer_email,omitempty" bson:"customer_email,omitempty"`
	Date             string               `json:"date" bson:"date"`
	Start            string               `json:"start" bson:"start"`
	End              string               `json:"end" bson:"end"`
	StartsAt         time.Time            `json:"starts_at" bson:"starts_at"`
	EndsAt           time.Time            `json:"ends_at" bson:"ends_at"`
	Items            []BookingItem        `json:"items" bson:"items"`
	TotalPrice       decimal.Decimal      `json:"total_price" bson:"total_price"`
	TotalDurationMin int                  `json:"total_duration_min" bson:"total_duration_min"`
	Status           config.BookingStatus `json:"status" bson:"status"`
	Note             string               `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" bson:"updated_at"`
}

type BookingRequest struct {
	CustomerName  string   `json:"customer_name" validate:"required,min=1,max=100"`
	CustomerPhone string   `json:"customer_phone" validate:"required,e164"`
	CustomerEmail string   `json:"customer_email,omitempty" validate:"omitempty,email"`
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	Start         string   `json:"start" validate:"required,hhmm"`
	ServiceIDs    []string `json:"service_ids" validate:"required,min=1,max=20,dive,required"`
	Note          string   `json:"note,omitempty" validate:"max=500"`
}

// BookingReceipt is returned by a successful commit. ManageToken lets the
// customer cancel without an account.
type BookingReceipt struct {
	Booking     *Booking `json:"booking"`
	ManageToken string   `json:"manage_token"`
}

type StatusChange struct {
	Status config.BookingStatus `json:"status" validate:"required,oneof=completed cancelled no-show"`
}

type BookingFilter struct {
	From   string
	To     string
	Status config.BookingStatus
}

type DailyOverview struct {
	TenantID string                       `json:"tenant_id"`
	Date     string                       `json:"date"`
	Total    int                          `json:"total"`
	ByStatus map[config.BookingStatus]int `json:"by_status"`
	Revenue  decimal.Decimal              `json:"revenue"`
}

// DayLock serializes commits for one tenant and date. Commits bump Version
// inside their transaction so two concurrent commits write-conflict.
type DayLock struct {
	ID        string    `bson:"_id" json:"id"`
	Version   int64     `bson:"version" json:"version"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func DayLockID(tenantID, date string) string {
	return tenantID + "|" + date
}
