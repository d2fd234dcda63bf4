package interfaces

import (
	"context"

	"roadassist/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProviderRepository reads the provider catalog. The catalog itself is
// maintained by another subsystem; this core only queries it.
type ProviderRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Provider, error)
	GetByCategories(ctx context.Context, categories []models.ProviderCategory) ([]*models.Provider, error)
}
