package interfaces

import (
	"context"

	"roadassist/internal/models"
	"roadassist/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestRepository interface {
	// Basic operations. Requests are never hard-deleted; terminal states are
	// retained for audit history.
	Create(ctx context.Context, request *models.EmergencyRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error)
	GetByRequesterID(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)

	// UpdateStatusIf performs a compare-and-set transition: the update is
	// applied only when the stored status still equals expected. Returns
	// false when another writer won the race.
	UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expected models.RequestStatus, updates map[string]interface{}) (bool, error)
}
