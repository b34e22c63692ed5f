package model

import (
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"time"
)

const endOfDay = "24:00"

type AvailabilityWindow struct {
	ID        string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	TenantID  string         `json:"tenant_id" bson:"tenant_id" validate:"required"`
	Weekday   config.Weekday `json:"weekday" bson:"weekday" validate:"required,weekday"`
	Start     string         `json:"start" bson:"start" validate:"required,hhmm"`
	End       string         `json:"end" bson:"end" validate:"required,hhmm_end"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Bounds parses the window into minutes after midnight. End may be "24:00".
func (w *AvailabilityWindow) Bounds() (clock.TimeOfDay, clock.TimeOfDay, error) {
	start, err := clock.ParseTimeOfDay(w.Start)
	if err != nil {
		return 0, 0, err
	}
	if w.End == endOfDay {
		return start, clock.MinutesPerDay, nil
	}
	end, err := clock.ParseTimeOfDay(w.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
