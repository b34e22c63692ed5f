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
	PoliciesCollection = "Reminder_policies"
)

// PolicyRepository stores one reminder policy per tenant, keyed by tenant id.
type PolicyRepository interface {
	Find(ctx context.Context, tenantID string) (*model.ReminderPolicy, error)
	FindMany(ctx context.Context, tenantIDs []string) (map[string]*model.ReminderPolicy, error)
	Upsert(ctx context.Context, policy *model.ReminderPolicy) error
}

type mongoPolicyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPolicyRepository(cfg *config.Config) PolicyRepository {
	return &mongoPolicyRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PoliciesCollection),
	}
}

func (r *mongoPolicyRepository) Find(ctx context.Context, tenantID string) (*model.ReminderPolicy, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var policy model.ReminderPolicy
	err := r.collection.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&policy)
	if mongotx.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %s", remindererrors.ErrPolicyNotFound, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder policy: %w", err)
	}
	return &policy, nil
}

// FindMany returns the stored policies of tenantIDs; tenants without one are absent.
func (r *mongoPolicyRepository) FindMany(ctx context.Context, tenantIDs []string) (map[string]*model.ReminderPolicy, error) {
	out := make(map[string]*model.ReminderPolicy, len(tenantIDs))
	if len(tenantIDs) == 0 {
		return out, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": tenantIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder policies: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var policies []*model.ReminderPolicy
	if err := cursor.All(ctx, &policies); err != nil {
		return nil, fmt.Errorf("failed to decode reminder policies: %w", err)
	}
	for _, p := range policies {
		out[p.TenantID] = p
	}
	return out, nil
}

func (r *mongoPolicyRepository) Upsert(ctx context.Context, policy *model.ReminderPolicy) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	policy.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": policy.TenantID}, policy, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save reminder policy: %w", err)
	}
	return nil
}
