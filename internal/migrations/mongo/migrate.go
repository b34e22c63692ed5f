package mongo

import (
	"context"
	"fmt"
	"slotbook/internal/migrations/mongo/validators"
	"slotbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is one collection the services rely on: its validator (may be
// nil) and the indexes queries and uniqueness checks depend on.
type Collection struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var (
	TenantsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "paid", Value: 1}}},
	}

	CategoriesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "active", Value: 1}}},
	}

	AvailabilityWindowsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "weekday", Value: 1},
			{Key: "start", Value: 1},
		}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "date", Value: 1},
			{Key: "start", Value: 1},
		}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	DayLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	CreditMovementsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	ReminderDispatchesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "booking_id", Value: 1},
			{Key: "sent_at", Value: -1},
		}},
	}

	// In-flight claims carry expires_at; skipped claims drop it and stay.
	ReminderClaimsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

// Collections lists everything RunMigration ensures, in creation order.
func Collections() []Collection {
	return []Collection{
		{Name: "Tenants", Validator: validators.TenantValidator, Indexes: TenantsIndexes},
		{Name: "Categories", Indexes: CategoriesIndexes},
		{Name: "Services", Indexes: ServicesIndexes},
		{Name: "Availability_windows", Validator: validators.AvailabilityWindowValidator, Indexes: AvailabilityWindowsIndexes},
		{Name: "Bookings", Validator: validators.BookingValidator, Indexes: BookingsIndexes},
		{Name: "Booking_day_locks", Indexes: DayLocksIndexes},
		{Name: "Credit_balances", Validator: validators.CreditBalanceValidator},
		{Name: "Credit_movements", Indexes: CreditMovementsIndexes},
		{Name: "Reminder_policies"},
		{Name: "Reminder_dispatches", Indexes: ReminderDispatchesIndexes},
		{Name: "Reminder_claims", Indexes: ReminderClaimsIndexes},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
