package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/repositories/interfaces"
	"roadassist/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type providerRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewProviderRepository(db *mongo.Database, cache CacheService) interfaces.ProviderRepository {
	return &providerRepository{
		collection: db.Collection("providers"),
		cache:      cache,
	}
}

func (r *providerRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Provider, error) {
	if provider := r.getProviderFromCache(ctx, id.Hex()); provider != nil {
		return provider, nil
	}

	var provider models.Provider
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&provider)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("provider %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}

	r.cacheProvider(ctx, &provider)

	return &provider, nil
}

// GetByCategories returns the active candidate set for ranking, sorted by id
// so repeated reads are stable.
func (r *providerRepository) GetByCategories(ctx context.Context, categories []models.ProviderCategory) ([]*models.Provider, error) {
	cacheKey := r.categoriesCacheKey(categories)
	if providers := r.getProvidersFromCache(ctx, cacheKey); providers != nil {
		return providers, nil
	}

	filter := bson.M{"is_active": true}
	if len(categories) > 0 {
		filter["category"] = bson.M{"$in": categories}
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find providers by category: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []*models.Provider
	for cursor.Next(ctx) {
		var provider models.Provider
		if err := cursor.Decode(&provider); err != nil {
			return nil, fmt.Errorf("failed to decode provider: %w", err)
		}
		providers = append(providers, &provider)
	}

	if r.cache != nil && providers != nil {
		r.cache.Set(ctx, cacheKey, providers, 5*time.Minute)
	}

	return providers, nil
}

func (r *providerRepository) categoriesCacheKey(categories []models.ProviderCategory) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, string(c))
	}
	return utils.CacheProvidersByCats + strings.Join(parts, ",")
}

func (r *providerRepository) cacheProvider(ctx context.Context, provider *models.Provider) {
	if r.cache != nil {
		r.cache.Set(ctx, utils.CacheProviderPrefix+provider.ID.Hex(), provider, 10*time.Minute)
	}
}

func (r *providerRepository) getProviderFromCache(ctx context.Context, providerID string) *models.Provider {
	if r.cache == nil {
		return nil
	}

	var provider models.Provider
	if err := r.cache.Get(ctx, utils.CacheProviderPrefix+providerID, &provider); err != nil {
		return nil
	}

	return &provider
}

func (r *providerRepository) getProvidersFromCache(ctx context.Context, key string) []*models.Provider {
	if r.cache == nil {
		return nil
	}

	var providers []*models.Provider
	if err := r.cache.Get(ctx, key, &providers); err != nil {
		return nil
	}

	return providers
}
