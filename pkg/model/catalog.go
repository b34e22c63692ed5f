package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TenantID    string    `json:"tenant_id" bson:"tenant_id" validate:"required"`
	Name        string    `json:"name" bson:"name" validate:"required,min=1,max=60"`
	Description string    `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

type ServiceOffering struct {
	ID          string          `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TenantID    string          `json:"tenant_id" bson:"tenant_id" validate:"required"`
	Name        string          `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Description string          `json:"description,omitempty" bson:"description,omitempty" validate:"max=1000"`
	Price       decimal.Decimal `json:"price" bson:"price" validate:"min=0"`
	DurationMin int             `json:"duration_min" bson:"duration_min" validate:"required,min=1,max=1440"`
	Category    string          `json:"category,omitempty" bson:"category,omitempty" validate:"max=60"`
	Active      bool            `json:"active" bson:"active"`
	CreatedAt   time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" bson:"updated_at"`
}

type ServiceOfferingUpdate struct {
	Name        string           `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,min=0"`
	DurationMin *int             `json:"duration_min,omitempty" validate:"omitempty,min=1,max=1440"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=60"`
	Active      *bool            `json:"active,omitempty"`
}

// CatalogGroup is the public view of one category and its active services.
type CatalogGroup struct {
	Category    string             `json:"category"`
	Description string             `json:"description,omitempty"`
	Services    []*ServiceOffering `json:"services"`
}
