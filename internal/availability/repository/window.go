package repository

import (
	"context"
	"fmt"
	availabilityerrors "slotbook/internal/availability/errors"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Availability_windows"
)

type WindowRepository interface {
	Create(ctx context.Context, window *model.AvailabilityWindow) error
	FindByTenant(ctx context.Context, tenantID string) ([]*model.AvailabilityWindow, error)
	FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type mongoWindowRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWindowRepository(cfg *config.Config) WindowRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWindowRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoWindowRepository) Create(ctx context.Context, window *model.AvailabilityWindow) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	window.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to create availability window: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		window.ID = oid.Hex()
	}
	return nil
}

func (r *mongoWindowRepository) FindByTenant(ctx context.Context, tenantID string) ([]*model.AvailabilityWindow, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID})
}

func (r *mongoWindowRepository) FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error) {
	return r.find(ctx, bson.M{"tenant_id": tenantID, "weekday": weekday})
}

func (r *mongoWindowRepository) find(ctx context.Context, filter bson.M) ([]*model.AvailabilityWindow, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}, {Key: "start", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability windows: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []*model.AvailabilityWindow
	if err := cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability windows: %w", err)
	}
	return windows, nil
}

func (r *mongoWindowRepository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID})
	if err != nil {
		return fmt.Errorf("failed to delete availability window: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrNotFound, id)
	}
	return nil
}
