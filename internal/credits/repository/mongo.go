package repository

import (
	"context"
	"errors"
	"fmt"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BalancesCollection  = "Credit_balances"
	MovementsCollection = "Credit_movements"
)

type mongoCreditStore struct {
	cfg       *config.Config
	balances  *mongo.Collection
	movements *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoCreditStore(cfg *config.Config) CreditStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCreditStore{
		cfg:       cfg,
		balances:  db.Collection(BalancesCollection),
		movements: db.Collection(MovementsCollection),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (s *mongoCreditStore) Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var balance model.CreditBalance
	err := s.balances.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&balance)
	if mongotx.IsNotFound(err) {
		return &model.CreditBalance{TenantID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit balance: %w", err)
	}
	return &balance, nil
}

// TryDebit moves the counter only when the whole count is covered; a miss
// leaves the document untouched.
func (s *mongoCreditStore) TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error) {
	field, err := balanceField(channel)
	if err != nil {
		return false, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": tenantID}
	var update bson.M
	if channel == config.Email {
		filter["$expr"] = bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$email_used", count}}, "$email_quota"}}
		update = bson.M{"$inc": bson.M{field: count}}
	} else {
		filter[field] = bson.M{"$gte": count}
		update = bson.M{"$inc": bson.M{field: -count}}
	}
	update["$set"] = bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}

	result, err := s.balances.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to debit %s credits: %w", channel, err)
	}
	return result.ModifiedCount == 1, nil
}

// TopUp records the movement first; the unique payment_ref index turns a
// replayed payment into a no-op before the balance is touched.
func (s *mongoCreditStore) TopUp(ctx context.Context, tenantID string, channel config.Channel, amount int64, paymentRef string) (bool, error) {
	field, err := topUpField(channel)
	if err != nil {
		return false, err
	}

	applied := false
	err = s.txManager.ExecuteTransaction(ctx, func(sc context.Context) error {
		now := time.Now().UTC().Truncate(time.Millisecond)
		movement := &model.CreditMovement{
			TenantID:   tenantID,
			Channel:    channel,
			Amount:     amount,
			Kind:       model.MovementTopUp,
			PaymentRef: paymentRef,
			CreatedAt:  now,
		}
		if _, err := s.movements.InsertOne(sc, movement); err != nil {
			if mongotx.IsDuplicateKey(err) {
				return errAlreadyApplied
			}
			return fmt.Errorf("failed to record credit movement: %w", err)
		}

		_, err := s.balances.UpdateOne(sc,
			bson.M{"_id": tenantID},
			bson.M{
				"$inc": bson.M{field: amount},
				"$set": bson.M{"updated_at": now},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to top up %s credits: %w", channel, err)
		}
		applied = true
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyApplied):
		return false, nil
	case mongotx.IsWriteConflict(err):
		// a concurrent delivery of the same payment holds the movement
		if s.applied(ctx, paymentRef) {
			return false, nil
		}
		return false, err
	case err != nil:
		return false, err
	}
	return applied, nil
}

var errAlreadyApplied = errors.New("payment already applied")

func (s *mongoCreditStore) applied(ctx context.Context, paymentRef string) bool {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()
	n, err := s.movements.CountDocuments(ctx, bson.M{"payment_ref": paymentRef})
	return err == nil && n > 0
}

func (s *mongoCreditStore) Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.movements.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find credit movements: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var movements []*model.CreditMovement
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, fmt.Errorf("failed to decode credit movements: %w", err)
	}
	return movements, nil
}
