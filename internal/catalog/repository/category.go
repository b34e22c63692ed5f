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
	CategoriesCollection = "Categories"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	FindByTenant(ctx context.Context, tenantID string) ([]*model.Category, error)
	ExistsByName(ctx context.Context, tenantID, name string) (bool, error)
	FindByID(ctx context.Context, tenantID, id string) (*model.Category, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type mongoCategoryRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCategoryRepository(cfg *config.Config) CategoryRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCategoryRepository{
		cfg:        cfg,
		collection: db.Collection(CategoriesCollection),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoCategoryRepository) Create(ctx context.Context, category *model.Category) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	category.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, category)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateCategory, category.Name)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		category.ID = oid.Hex()
	}
	return nil
}

func (r *mongoCategoryRepository) FindByTenant(ctx context.Context, tenantID string) ([]*model.Category, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer cursor.Close(ctx)

	var categories []*model.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (r *mongoCategoryRepository) ExistsByName(ctx context.Context, tenantID, name string) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"tenant_id": tenantID, "name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
	return count > 0, nil
}

func (r *mongoCategoryRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Category, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var category model.Category
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&category); err != nil {
		if mongotx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrCategoryNotFound, id)
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return &category, nil
}

func (r *mongoCategoryRepository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID})
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", catalogerrors.ErrCategoryNotFound, id)
	}
	return nil
}
