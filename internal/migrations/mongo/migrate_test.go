package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Collections() {
		if seen[c.Name] {
			t.Errorf("collection %s listed twice", c.Name)
		}
		seen[c.Name] = true
	}
	for _, name := range []string{"Tenants", "Bookings", "Credit_movements", "Reminder_claims"} {
		if !seen[name] {
			t.Errorf("collection %s missing", name)
		}
	}
}

func TestIndexes_UniquenessAndExpiry(t *testing.T) {
	tests := []struct {
		name       string
		unique     bool
		expireZero bool
		index      func() (keys bson.D, unique *bool, expire *int32)
	}{
		{
			name:   "category name per tenant",
			unique: true,
			index: func() (bson.D, *bool, *int32) {
				m := CategoriesIndexes[0]
				return m.Keys.(bson.D), m.Options.Unique, nil
			},
		},
		{
			name:   "payment reference",
			unique: true,
			index: func() (bson.D, *bool, *int32) {
				m := CreditMovementsIndexes[0]
				return m.Keys.(bson.D), m.Options.Unique, nil
			},
		},
		{
			name:       "claim expiry",
			expireZero: true,
			index: func() (bson.D, *bool, *int32) {
				m := ReminderClaimsIndexes[0]
				return m.Keys.(bson.D), nil, m.Options.ExpireAfterSeconds
			},
		},
		{
			name:       "day lock expiry",
			expireZero: true,
			index: func() (bson.D, *bool, *int32) {
				m := DayLocksIndexes[0]
				return m.Keys.(bson.D), nil, m.Options.ExpireAfterSeconds
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, unique, expire := tt.index()
			if len(keys) == 0 {
				t.Fatal("index has no keys")
			}
			if tt.unique && (unique == nil || !*unique) {
				t.Error("index should be unique")
			}
			if tt.expireZero && (expire == nil || *expire != 0) {
				t.Error("index should expire at the stored time")
			}
		})
	}
}
