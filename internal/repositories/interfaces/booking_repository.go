package interfaces

import (
	"context"

	"roadassist/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingRepository interface {
	// CreateForRequest inserts the booking keyed by its request id. The
	// operation is idempotent: repeated calls for the same request return
	// the booking created by the first call.
	CreateForRequest(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	GetByRequestID(ctx context.Context, requestID primitive.ObjectID) (*models.Booking, error)
}
