package repository

import (
	"context"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
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
	CollectionName = "Bookings"
)

// BookingRepository is the booking store. Methods called with the context
// handed to ExecuteTransaction take part in that transaction.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, tenantID, id string) (*model.Booking, error)
	ForDate(ctx context.Context, tenantID, date string) ([]*model.Booking, error)
	FindOverlapping(ctx context.Context, tenantID, date, start, end string) ([]*model.Booking, error)
	List(ctx context.Context, tenantID string, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, tenantID string, filter model.BookingFilter) (int64, error)
	UpdateStatus(ctx context.Context, tenantID, id string, from, to config.BookingStatus) error
	Upcoming(ctx context.Context, from, to time.Time, afterID string, limit int) ([]*model.Booking, error)
	BumpDayLock(ctx context.Context, tenantID, date string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	dayLocks   *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		dayLocks:   db.Collection(DayLocksCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID}).Decode(&booking)
	if err != nil {
		if mongotx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

// ForDate returns the scheduled bookings of one day ordered by start.
func (r *mongoBookingRepository) ForDate(ctx context.Context, tenantID, date string) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{
		"tenant_id": tenantID,
		"date":      date,
		"status":    config.Scheduled,
	}, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
}

// FindOverlapping returns scheduled bookings whose [start,end) intersects the
// given span. Zero padded "HH:MM" strings order the same as the times.
func (r *mongoBookingRepository) FindOverlapping(ctx context.Context, tenantID, date, start, end string) ([]*model.Booking, error) {
	return r.find(ctx, bson.M{
		"tenant_id": tenantID,
		"date":      date,
		"status":    config.Scheduled,
		"start":     bson.M{"$lt": end},
		"end":       bson.M{"$gt": start},
	}, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
}

func (r *mongoBookingRepository) List(ctx context.Context, tenantID string, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start", Value: 1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, listFilter(tenantID, filter), opts)
}

func (r *mongoBookingRepository) Count(ctx context.Context, tenantID string, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, listFilter(tenantID, filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func listFilter(tenantID string, filter model.BookingFilter) bson.M {
	query := bson.M{"tenant_id": tenantID}

	dates := bson.M{}
	if filter.From != "" {
		dates["$gte"] = filter.From
	}
	if filter.To != "" {
		dates["$lte"] = filter.To
	}
	if len(dates) > 0 {
		query["date"] = dates
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	return query
}

// UpdateStatus moves a booking only while it still has status from, so two
// racing transitions cannot both succeed.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, tenantID, id string, from, to config.BookingStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"status":     to,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid, "tenant_id": tenantID, "status": from}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrStatusChanged, id)
	}
	return nil
}

// Upcoming returns one page of scheduled bookings starting in [from, to)
// across tenants, ordered by (starts_at, _id). A non-empty afterID resumes
// after that booking, which must start at from.
func (r *mongoBookingRepository) Upcoming(ctx context.Context, from, to time.Time, afterID string, limit int) ([]*model.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, upcomingFilter(from, to, afterID), opts)
}

func upcomingFilter(from, to time.Time, afterID string) bson.M {
	filter := bson.M{"status": config.Scheduled}
	oid, err := primitive.ObjectIDFromHex(afterID)
	if afterID == "" || err != nil {
		filter["starts_at"] = bson.M{"$gte": from, "$lt": to}
		return filter
	}
	filter["starts_at"] = bson.M{"$lt": to}
	filter["$or"] = bson.A{
		bson.M{"starts_at": bson.M{"$gt": from}},
		bson.M{"starts_at": from, "_id": bson.M{"$gt": oid}},
	}
	return filter
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
