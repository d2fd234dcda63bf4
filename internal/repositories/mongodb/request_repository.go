package mongodb

import (
	"context"
	"fmt"
	"time"

	"roadassist/internal/models"
	"roadassist/internal/repositories/interfaces"
	"roadassist/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type requestRepository struct {
	collection *mongo.Collection
	cache      CacheService
}

func NewRequestRepository(db *mongo.Database, cache CacheService) interfaces.RequestRepository {
	return &requestRepository{
		collection: db.Collection("emergency_requests"),
		cache:      cache,
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.EmergencyRequest) error {
	request.ID = primitive.NewObjectID()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create emergency request: %w", err)
	}

	r.cacheRequest(ctx, request)

	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	if request := r.getRequestFromCache(ctx, id.Hex()); request != nil {
		return request, nil
	}

	var request models.EmergencyRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("emergency request %s: %w", id.Hex(), models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get emergency request: %w", err)
	}

	r.cacheRequest(ctx, &request)

	return &request, nil
}

func (r *requestRepository) GetByRequesterID(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	filter := bson.M{"requester_id": requesterID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count emergency requests: %w", err)
	}

	opts := params.GetSortOptions()
	if params.Sort == "created_at" || params.Sort == "" {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}})
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find emergency requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.EmergencyRequest
	for cursor.Next(ctx) {
		var request models.EmergencyRequest
		if err := cursor.Decode(&request); err != nil {
			return nil, 0, fmt.Errorf("failed to decode emergency request: %w", err)
		}
		requests = append(requests, &request)
	}

	return requests, total, nil
}

// UpdateStatusIf applies updates only when the stored status still equals
// expected. The status filter is the compare-and-set guard that keeps two
// concurrent dispatchers from both succeeding.
func (r *requestRepository) UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expected models.RequestStatus, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": expected},
		bson.M{"$set": updates},
	)
	if err != nil {
		return false, fmt.Errorf("failed to update emergency request: %w", err)
	}

	r.invalidateRequestCache(ctx, id.Hex())

	return result.MatchedCount == 1, nil
}

// Cache operations. Only non-terminal requests are worth caching; they are
// the ones polled during an active session.
func (r *requestRepository) cacheRequest(ctx context.Context, request *models.EmergencyRequest) {
	if r.cache != nil && !request.Status.IsTerminal() {
		cacheKey := utils.CacheRequestPrefix + request.ID.Hex()
		r.cache.Set(ctx, cacheKey, request, 2*time.Minute)
	}
}

func (r *requestRepository) getRequestFromCache(ctx context.Context, requestID string) *models.EmergencyRequest {
	if r.cache == nil {
		return nil
	}

	var request models.EmergencyRequest
	if err := r.cache.Get(ctx, utils.CacheRequestPrefix+requestID, &request); err != nil {
		return nil
	}

	return &request
}

func (r *requestRepository) invalidateRequestCache(ctx context.Context, requestID string) {
	if r.cache != nil {
		r.cache.Delete(ctx, utils.CacheRequestPrefix+requestID)
	}
}
