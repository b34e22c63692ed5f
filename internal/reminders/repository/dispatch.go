package repository

import (
	"context"
	"fmt"
	remindererrors "slotbook/internal/reminders/errors"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DispatchesCollection = "Reminder_dispatches"
	ClaimsCollection     = "Reminder_claims"
)

// DispatchStore keeps the sent markers and the claims guarding attempts.
// Both collections use the dispatch key as _id, so at most one of each
// exists per (booking, slot, channel).
type DispatchStore interface {
	Sent(ctx context.Context, key model.DispatchKey) (bool, error)
	// Claim takes the key for owner. It returns false when another owner
	// holds a live claim or the key was skipped for lack of credit.
	Claim(ctx context.Context, key model.DispatchKey, tenantID, owner string, ttl time.Duration) (bool, error)
	MarkSkipped(ctx context.Context, key model.DispatchKey, owner string) error
	// MarkSent pins the claim after a delivery whose record could not be
	// written, so no later scan sends the key again.
	MarkSent(ctx context.Context, key model.DispatchKey, owner, providerRef string) error
	Release(ctx context.Context, key model.DispatchKey, owner string) error
	Record(ctx context.Context, record *model.ReminderDispatchRecord) error
	List(ctx context.Context, tenantID, bookingID string, limit int) ([]*model.ReminderDispatchRecord, error)
}

type mongoDispatchStore struct {
	cfg        *config.Config
	dispatches *mongo.Collection
	claims     *mongo.Collection
}

func NewMongoDispatchStore(cfg *config.Config) DispatchStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDispatchStore{
		cfg:        cfg,
		dispatches: db.Collection(DispatchesCollection),
		claims:     db.Collection(ClaimsCollection),
	}
}

func (s *mongoDispatchStore) Sent(ctx context.Context, key model.DispatchKey) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	n, err := s.dispatches.CountDocuments(ctx, bson.M{"_id": key.String()}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check reminder dispatch: %w", err)
	}
	return n > 0, nil
}

func (s *mongoDispatchStore) Claim(ctx context.Context, key model.DispatchKey, tenantID, owner string, ttl time.Duration) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	expires := now.Add(ttl)
	claim := &model.ReminderClaim{
		DispatchKey: key,
		ID:          key.String(),
		TenantID:    tenantID,
		Owner:       owner,
		State:       model.ClaimInFlight,
		ExpiresAt:   &expires,
		CreatedAt:   now,
	}
	_, err := s.claims.InsertOne(ctx, claim)
	if err == nil {
		return true, nil
	}
	if !mongotx.IsDuplicateKey(err) {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}

	// an attempt that died without releasing leaves an expired claim behind
	result, err := s.claims.UpdateOne(ctx,
		bson.M{
			"_id":        key.String(),
			"state":      model.ClaimInFlight,
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{"owner": owner, "expires_at": expires, "created_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to take over reminder claim: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

// MarkSkipped turns the claim into a permanent skipped_no_credit marker.
func (s *mongoDispatchStore) MarkSkipped(ctx context.Context, key model.DispatchKey, owner string) error {
	return s.settle(ctx, key, owner, bson.M{"state": model.ClaimSkippedNoCredit})
}

func (s *mongoDispatchStore) MarkSent(ctx context.Context, key model.DispatchKey, owner, providerRef string) error {
	return s.settle(ctx, key, owner, bson.M{"state": model.ClaimSentUnrecorded, "provider_ref": providerRef})
}

func (s *mongoDispatchStore) settle(ctx context.Context, key model.DispatchKey, owner string, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	result, err := s.claims.UpdateOne(ctx,
		bson.M{"_id": key.String(), "owner": owner},
		bson.M{
			"$set":   set,
			"$unset": bson.M{"expires_at": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to settle reminder claim: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", remindererrors.ErrClaimLost, key)
	}
	return nil
}

func (s *mongoDispatchStore) Release(ctx context.Context, key model.DispatchKey, owner string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	_, err := s.claims.DeleteOne(ctx, bson.M{
		"_id":   key.String(),
		"owner": owner,
		"state": model.ClaimInFlight,
	})
	if err != nil {
		return fmt.Errorf("failed to release reminder claim: %w", err)
	}
	return nil
}

// Record writes the sent marker. A second record for the same key fails with
// ErrAlreadySent.
func (s *mongoDispatchStore) Record(ctx context.Context, record *model.ReminderDispatchRecord) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	record.ID = record.DispatchKey.String()
	if record.SentAt.IsZero() {
		record.SentAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if _, err := s.dispatches.InsertOne(ctx, record); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", remindererrors.ErrAlreadySent, record.ID)
		}
		return fmt.Errorf("failed to record reminder dispatch: %w", err)
	}
	return nil
}

func (s *mongoDispatchStore) List(ctx context.Context, tenantID, bookingID string, limit int) ([]*model.ReminderDispatchRecord, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"tenant_id": tenantID}
	if bookingID != "" {
		filter["booking_id"] = bookingID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.dispatches.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder dispatches: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var records []*model.ReminderDispatchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode reminder dispatches: %w", err)
	}
	return records, nil
}
