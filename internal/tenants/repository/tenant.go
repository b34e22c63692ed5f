package repository

import (
	"context"
	"errors"
	"fmt"
	tenantserrors "slotbook/internal/tenants/errors"
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
	CollectionName = "Tenants"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Tenant, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, tenant *model.Tenant) error
	SetPaid(ctx context.Context, id string, paid bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

type mongoTenantRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTenantRepository(cfg *config.Config) TenantRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTenantRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", tenantserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoTenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		tenant.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTenantRepository) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var tenant model.Tenant
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&tenant); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", tenantserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}
	return &tenant, nil
}

func (r *mongoTenantRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Tenant, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []*model.Tenant
	if err := cursor.All(ctx, &tenants); err != nil {
		return nil, fmt.Errorf("failed to decode tenants: %w", err)
	}
	return tenants, nil
}

func (r *mongoTenantRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return count, nil
}

func (r *mongoTenantRepository) Update(ctx context.Context, id string, tenant *model.Tenant) error {
	return r.set(ctx, id, bson.M{
		"name":          tenant.Name,
		"timezone":      tenant.Timezone,
		"country":       tenant.Country,
		"locale":        tenant.Locale,
		"contact_email": tenant.ContactEmail,
		"contact_phone": tenant.ContactPhone,
	})
}

func (r *mongoTenantRepository) SetPaid(ctx context.Context, id string, paid bool) error {
	return r.set(ctx, id, bson.M{"paid": paid})
}

func (r *mongoTenantRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.set(ctx, id, bson.M{"active": active})
}

func (r *mongoTenantRepository) set(ctx context.Context, id string, fields bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", tenantserrors.ErrNotFound, id)
	}
	return nil
}
