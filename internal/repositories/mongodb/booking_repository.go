package mongodb

import (
	"context"
	"fmt"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bookingRepository struct {
	collection *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) interfaces.BookingRepository {
	return &bookingRepository{
		collection: db.Collection("bookings"),
	}
}

// CreateForRequest upserts on request_id so a retried dispatch cannot create
// a duplicate booking. The winning insert and any retry both return the one
// stored booking.
func (r *bookingRepository) CreateForRequest(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	now := time.Now()
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"request_id": booking.RequestID},
		bson.M{"$setOnInsert": booking},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return r.GetByRequestID(ctx, booking.RequestID)
}

func (r *bookingRepository) GetByRequestID(ctx context.Context, requestID primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := r.collection.FindOne(ctx, bson.M{"request_id": requestID}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("booking for request %s: %w", requestID.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}
