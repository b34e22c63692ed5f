package repository

import (
	"context"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	mongotx "slotbook/pkg/db/mongo"
	"slotbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DayLocksCollection = "Booking_day_locks"
)

// BumpDayLock increments the (tenant, date) lock document. Two transactions
// bumping the same day write-conflict, which is reported as a ConflictError.
// Each bump pushes expires_at BookingDayLockExpiry ahead, after which the TTL
// index drops the document. The next bump upserts it again.
func (r *mongoBookingRepository) BumpDayLock(ctx context.Context, tenantID, date string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{
			"updated_at": now,
			"expires_at": now.Add(r.cfg.BookingDayLockExpiry),
		},
	}

	id := model.DayLockID(tenantID, date)
	_, err := r.dayLocks.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongotx.IsWriteConflict(err) || mongotx.IsDuplicateKey(err) {
			return &bookingserrors.ConflictError{
				TenantID: tenantID,
				Date:     date,
				Reason:   bookingserrors.ReasonConcurrent,
			}
		}
		return fmt.Errorf("failed to lock booking day %s: %w", id, err)
	}
	return nil
}
