package repository

import (
	"context"
	"errors"
	"fmt"
	remindererrors "slotbook/internal/reminders/errors"
	"slotbook/internal/testutil"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

var dayBeforeWhatsApp = model.DispatchKey{BookingID: "b1", Slot: config.DayBefore, Channel: config.WhatsApp}

func findClaim(t *testing.T, m *testutil.MongoHelper, key model.DispatchKey) *model.ReminderClaim {
	t.Helper()
	var claim model.ReminderClaim
	err := m.Database.Collection(ClaimsCollection).FindOne(context.Background(), bson.M{"_id": key.String()}).Decode(&claim)
	if err != nil {
		t.Fatalf("failed to load claim %s: %v", key, err)
	}
	return &claim
}

func TestMongoClaim_OneOwnerPerKey(t *testing.T) {
	m := testutil.NewMongoHelper(t)
	store := NewMongoDispatchStore(m.Config())

	var won atomic.Int64
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Claim(context.Background(), dayBeforeWhatsApp, "t1", fmt.Sprintf("scan-%d", i), time.Minute)
			if err != nil {
				t.Errorf("Claim: %v", err)
			}
			if ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Errorf("claims won = %d, want 1", won.Load())
	}
	if n := m.CountDocuments(t, ClaimsCollection, bson.M{}); n != 1 {
		t.Errorf("claim documents = %d, want 1", n)
	}
}

func TestMongoClaim_Takeover(t *testing.T) {
	tests := []struct {
		name     string
		ttl      time.Duration
		settle   func(s DispatchStore) error
		wantTake bool
	}{
		{
			name:     "live claim",
			ttl:      time.Minute,
			wantTake: false,
		},
		{
			name:     "expired claim",
			ttl:      -time.Minute,
			wantTake: true,
		},
		{
			name: "skipped for lack of credit",
			ttl:  -time.Minute,
			settle: func(s DispatchStore) error {
				return s.MarkSkipped(context.Background(), dayBeforeWhatsApp, "scan-a")
			},
			wantTake: false,
		},
		{
			name: "sent but not recorded",
			ttl:  -time.Minute,
			settle: func(s DispatchStore) error {
				return s.MarkSent(context.Background(), dayBeforeWhatsApp, "scan-a", "wamid.1")
			},
			wantTake: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testutil.NewMongoHelper(t)
			store := NewMongoDispatchStore(m.Config())

			ok, err := store.Claim(context.Background(), dayBeforeWhatsApp, "t1", "scan-a", tt.ttl)
			if err != nil || !ok {
				t.Fatalf("first Claim = %v, %v", ok, err)
			}
			if tt.settle != nil {
				if err := tt.settle(store); err != nil {
					t.Fatalf("settle: %v", err)
				}
			}

			ok, err = store.Claim(context.Background(), dayBeforeWhatsApp, "t1", "scan-b", time.Minute)
			if err != nil {
				t.Fatalf("second Claim: %v", err)
			}
			if ok != tt.wantTake {
				t.Errorf("second Claim = %v, want %v", ok, tt.wantTake)
			}

			claim := findClaim(t, m, dayBeforeWhatsApp)
			wantOwner := "scan-a"
			if tt.wantTake {
				wantOwner = "scan-b"
			}
			if claim.Owner != wantOwner {
				t.Errorf("owner = %s, want %s", claim.Owner, wantOwner)
			}
			if tt.settle != nil && claim.ExpiresAt != nil {
				t.Errorf("settled claim still expires at %s", claim.ExpiresAt)
			}
		})
	}
}

func TestMongoRelease_OnlyByOwner(t *testing.T) {
	m := testutil.NewMongoHelper(t)
	store := NewMongoDispatchStore(m.Config())

	if _, err := store.Claim(context.Background(), dayBeforeWhatsApp, "t1", "scan-a", time.Minute); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.Release(context.Background(), dayBeforeWhatsApp, "scan-b"); err != nil {
		t.Fatalf("Release by other: %v", err)
	}
	if n := m.CountDocuments(t, ClaimsCollection, bson.M{}); n != 1 {
		t.Fatalf("claim removed by another owner")
	}
	if err := store.Release(context.Background(), dayBeforeWhatsApp, "scan-a"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if n := m.CountDocuments(t, ClaimsCollection, bson.M{}); n != 0 {
		t.Errorf("claim documents = %d after release, want 0", n)
	}
}

func TestMongoMarkSent_KeepsProviderRef(t *testing.T) {
	m := testutil.NewMongoHelper(t)
	store := NewMongoDispatchStore(m.Config())

	if err := store.MarkSent(context.Background(), dayBeforeWhatsApp, "scan-a", "wamid.1"); !errors.Is(err, remindererrors.ErrClaimLost) {
		t.Fatalf("MarkSent without claim = %v, want ErrClaimLost", err)
	}
	if _, err := store.Claim(context.Background(), dayBeforeWhatsApp, "t1", "scan-a", time.Minute); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := store.MarkSent(context.Background(), dayBeforeWhatsApp, "scan-a", "wamid.1"); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}

	claim := findClaim(t, m, dayBeforeWhatsApp)
	if claim.State != model.ClaimSentUnrecorded || claim.ProviderRef != "wamid.1" {
		t.Errorf("claim = %+v", claim)
	}
}

func TestMongoRecord_OncePerKey(t *testing.T) {
	m := testutil.NewMongoHelper(t)
	store := NewMongoDispatchStore(m.Config())

	record := func() *model.ReminderDispatchRecord {
		return &model.ReminderDispatchRecord{DispatchKey: dayBeforeWhatsApp, TenantID: "t1", Target: "+32470123456"}
	}
	if err := store.Record(context.Background(), record()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(context.Background(), record()); !errors.Is(err, remindererrors.ErrAlreadySent) {
		t.Errorf("second Record = %v, want ErrAlreadySent", err)
	}

	sent, err := store.Sent(context.Background(), dayBeforeWhatsApp)
	if err != nil || !sent {
		t.Errorf("Sent = %v, %v; want true", sent, err)
	}
	records, err := store.List(context.Background(), "t1", "b1", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}
