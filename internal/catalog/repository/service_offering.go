package repository

import (
	"context"
	"fmt"
	catalogerrors "slotbook/internal/catalog/errors"
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
	ServicesCollection = "Services"
)

type ServiceOfferingRepository interface {
	Create(ctx context.Context, service *model.ServiceOffering) error
	FindByID(ctx context.Context, tenantID, id string) (*model.ServiceOffering, error)
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error)
	FindByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error)
	CountByCategory(ctx context.Context, tenantID, category string) (int64, error)
	Update(ctx context.Context, tenantID, id string, service *model.ServiceOffering) error
	Delete(ctx context.Context, tenantID, id string) error
}

type mongoServiceOfferingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoServiceOfferingRepository(cfg *config.Config) ServiceOfferingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceOfferingRepository{
		cfg:        cfg,
		collection: db.Collection(ServicesCollection),
	}
}

func (r *mongoServiceOfferingRepository) Create(ctx context.Context, service *model.ServiceOffering) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	service.CreatedAt = now
	service.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, service)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		service.ID = oid.Hex()
	}
	return nil
}

func (r *mongoServiceOfferingRepository) FindByID(ctx context.Context, tenantID, id string) (*model.ServiceOffering, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var service model.ServiceOffering
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&service); err != nil {
		if mongotx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &service, nil
}

// FindByIDs returns the services of tenantID among ids, active or not. Unknown
// ids are simply missing from the result.
func (r *mongoServiceOfferingRepository) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(id)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}, "tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.ServiceOffering
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

func (r *mongoServiceOfferingRepository) FindByTenant(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"tenant_id": tenantID}
	if activeOnly {
		filter["active"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.ServiceOffering
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

func (r *mongoServiceOfferingRepository) CountByCategory(ctx context.Context, tenantID, category string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"tenant_id": tenantID, "category": category})
	if err != nil {
		return 0, fmt.Errorf("failed to count services in category %q: %w", category, err)
	}
	return count, nil
}

func (r *mongoServiceOfferingRepository) Update(ctx context.Context, tenantID, id string, service *model.ServiceOffering) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	service.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"name":         service.Name,
			"description":  service.Description,
			"price":        service.Price,
			"duration_min": service.DurationMin,
			"category":     service.Category,
			"active":       service.Active,
			"updated_at":   service.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}, update)
	if err != nil {
		return fmt.Errorf("failed to update service: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
	}
	return nil
}

func (r *mongoServiceOfferingRepository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID})
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrServiceNotFound, id)
	}
	return nil
}
