package validation

import (
	"errors"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCustomTags(t *testing.T) {
	v := New(logger.Discard())

	tests := []struct {
		name      string
		value     any
		wantField string
	}{
		{
			name:  "valid window",
			value: &model.AvailabilityWindow{TenantID: "t1", Weekday: config.Monday, Start: "09:00", End: "12:00"},
		},
		{
			name:  "window may end at midnight",
			value: &model.AvailabilityWindow{TenantID: "t1", Weekday: config.Friday, Start: "18:00", End: "24:00"},
		},
		{
			name:      "bad weekday",
			value:     &model.AvailabilityWindow{TenantID: "t1", Weekday: "Funday", Start: "09:00", End: "12:00"},
			wantField: "weekday",
		},
		{
			name:      "bad start",
			value:     &model.AvailabilityWindow{TenantID: "t1", Weekday: config.Monday, Start: "9am", End: "12:00"},
			wantField: "start",
		},
		{
			name:      "bad timezone",
			value:     &model.Tenant{Name: "Kapper Jan", Timezone: "Europe/Nowhere", Country: "BE"},
			wantField: "timezone",
		},
		{
			name:      "negative price",
			value:     &model.ServiceOffering{TenantID: "t1", Name: "Cut", Price: decimal.NewFromInt(-1), DurationMin: 30},
			wantField: "price",
		},
		{
			name:  "free service",
			value: &model.ServiceOffering{TenantID: "t1", Name: "Consult", Price: decimal.Zero, DurationMin: 15},
		},
		{
			name: "unknown placeholder",
			value: &model.ChannelTemplate{
				Enabled: true,
				Body:    "Hi {customer}, see you at {place}",
			},
			wantField: "body",
		},
		{
			name: "known placeholders",
			value: &model.ChannelTemplate{
				Enabled: true,
				Body:    "Hi {customer}, see you {date} at {time} at {tenant}",
			},
		},
		{
			name:      "enabled channel needs body",
			value:     &model.ChannelTemplate{Enabled: true},
			wantField: "body",
		},
		{
			name: "booking request with bad phone",
			value: &model.BookingRequest{
				CustomerName: "Jan", CustomerPhone: "0470123456", Date: "2024-06-10", Start: "10:00", ServiceIDs: []string{"s1"},
			},
			wantField: "customer_phone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.value)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error = %v, want ValidationErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("fields = %v, want one on %q", verrs, tt.wantField)
			}
		})
	}
}

func TestNestedFieldPath(t *testing.T) {
	v := New(logger.Discard())
	policy := &model.ReminderPolicy{
		TenantID: "t1",
		DayBefore: model.DayBeforeReminder{
			DaysBefore: 1,
			SendTime:   "25:00",
		},
		SameDay: model.SameDayReminder{MinutesBefore: 60},
	}

	var verrs ValidationErrors
	if err := Struct(v, policy); !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if verrs[0].Field != "day_before.send_time" {
		t.Errorf("field = %q, want day_before.send_time", verrs[0].Field)
	}

	appErr := verrs.AppError()
	if appErr.Code != apperrors.CodeValidation || appErr.Details["day_before.send_time"] == nil {
		t.Errorf("AppError() = %+v", appErr)
	}
}
