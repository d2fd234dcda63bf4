package services

import (
	"context"
	"fmt"
	"time"

	"roadassist/internal/config"
	"roadassist/internal/models"
	"roadassist/internal/repositories/interfaces"
	"roadassist/internal/utils"
	"roadassist/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DispatchService interface {
	// CreateRequest opens a new emergency request in the searching state.
	CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error)

	// Dispatch assigns a provider to a searching request and creates the
	// confirmed booking as part of the same logical unit of work.
	Dispatch(ctx context.Context, requesterID, requestID, providerID primitive.ObjectID) (*models.EmergencyRequest, error)

	// AdvanceStatus is the operator-side progression along the lifecycle.
	AdvanceStatus(ctx context.Context, requestID primitive.ObjectID, target models.RequestStatus) (*models.EmergencyRequest, error)

	// Cancel moves the request to cancelled from any non-terminal state.
	// Cancelling an already-cancelled request is a no-op success.
	Cancel(ctx context.Context, requesterID, requestID primitive.ObjectID) (*models.EmergencyRequest, error)

	// GetRequest is the read surface for status polling.
	GetRequest(ctx context.Context, requestID primitive.ObjectID) (*models.EmergencyRequest, error)

	// GetRequestHistory lists a requester's past requests, newest first.
	GetRequestHistory(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error)
}

type CreateRequestInput struct {
	RequesterID primitive.ObjectID
	VehicleID   *primitive.ObjectID
	Type        models.EmergencyType
	Latitude    float64
	Longitude   float64
	Address     string
}

type dispatchService struct {
	requestRepo  interfaces.RequestRepository
	providerRepo interfaces.ProviderRepository
	bookingRepo  interfaces.BookingRepository
	cfg          *config.DispatchConfig
	logger       *logger.Logger
}

func NewDispatchService(
	requestRepo interfaces.RequestRepository,
	providerRepo interfaces.ProviderRepository,
	bookingRepo interfaces.BookingRepository,
	cfg *config.DispatchConfig,
	log *logger.Logger,
) DispatchService {
	return &dispatchService{
		requestRepo:  requestRepo,
		providerRepo: providerRepo,
		bookingRepo:  bookingRepo,
		cfg:          cfg,
		logger:       log,
	}
}

func (s *dispatchService) CreateRequest(ctx context.Context, input *CreateRequestInput) (*models.EmergencyRequest, error) {
	if input.RequesterID.IsZero() {
		return nil, fmt.Errorf("create request: %w", models.ErrUnauthorized)
	}
	if !input.Type.Valid() {
		return nil, fmt.Errorf("unknown emergency type %q: %w", input.Type, models.ErrValidation)
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range: %w", models.ErrValidation)
	}
	if input.Latitude == 0 && input.Longitude == 0 {
		return nil, fmt.Errorf("location is required: %w", models.ErrValidation)
	}

	location := models.NewPoint(input.Latitude, input.Longitude)
	location.Address = input.Address

	request := &models.EmergencyRequest{
		RequestNumber: uuid.NewString(),
		RequesterID:   input.RequesterID,
		VehicleID:     input.VehicleID,
		Type:          input.Type,
		Status:        models.RequestStatusSearching,
		Location:      location,
		Priority:      models.DefaultPriority,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.LogRequestEvent(request.ID, utils.EventRequestCreated, map[string]interface{}{
		"emergency_type": request.Type,
		"requester_id":   request.RequesterID.Hex(),
	})

	return request, nil
}

func (s *dispatchService) Dispatch(ctx context.Context, requesterID, requestID, providerID primitive.ObjectID) (*models.EmergencyRequest, error) {
	if requesterID.IsZero() {
		return nil, fmt.Errorf("dispatch: %w", models.ErrUnauthorized)
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOwnedBy(requesterID) {
		return nil, fmt.Errorf("request %s is not owned by caller: %w", requestID.Hex(), models.ErrUnauthorized)
	}

	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	eta := s.estimateETA(request, provider)

	// Status guard: only the transition out of searching may set the
	// provider, so concurrent dispatch attempts cannot both win.
	matched, err := s.requestRepo.UpdateStatusIf(ctx, requestID, models.RequestStatusSearching, map[string]interface{}{
		"status":        models.RequestStatusDispatched,
		"provider_id":   provider.ID,
		"dispatched_at": now,
		"eta_minutes":   eta,
	})
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("request %s is no longer searching: %w", requestID.Hex(), models.ErrInvalidTransition)
	}

	booking := &models.Booking{
		BookingNumber:     uuid.NewString(),
		RequestID:         request.ID,
		RequesterID:       request.RequesterID,
		ProviderID:        provider.ID,
		VehicleID:         request.VehicleID,
		IsEmergency:       true,
		EmergencyLocation: &request.Location,
		Status:            models.BookingStatusConfirmed,
	}

	if _, err := s.bookingRepo.CreateForRequest(ctx, booking); err != nil {
		// Compensate so the request does not stay dispatched without a
		// booking; a retry then goes through the guard again.
		if _, revertErr := s.requestRepo.UpdateStatusIf(ctx, requestID, models.RequestStatusDispatched, map[string]interface{}{
			"status":        models.RequestStatusSearching,
			"provider_id":   nil,
			"dispatched_at": nil,
			"eta_minutes":   0,
		}); revertErr != nil {
			s.logger.WithError(revertErr).WithAssistRequestID(requestID).Error("Failed to revert dispatch after booking failure")
		}
		return nil, fmt.Errorf("failed to create booking for dispatch: %w", err)
	}

	s.logger.LogRequestEvent(request.ID, utils.EventRequestDispatched, map[string]interface{}{
		"provider_id": provider.ID.Hex(),
		"eta_minutes": eta,
	})

	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *dispatchService) AdvanceStatus(ctx context.Context, requestID primitive.ObjectID, target models.RequestStatus) (*models.EmergencyRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	// Cancellation has its own path, and dispatched is only reachable
	// through Dispatch so a request can never be dispatched without its
	// provider and booking.
	if target == models.RequestStatusCancelled || target == models.RequestStatusDispatched || !request.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("cannot advance %s from %s to %s: %w",
			requestID.Hex(), request.Status, target, models.ErrInvalidTransition)
	}

	updates := map[string]interface{}{"status": target}
	now := time.Now()
	switch target {
	case models.RequestStatusArrived:
		updates["arrived_at"] = now
	case models.RequestStatusResolved:
		updates["resolved_at"] = now
	}

	matched, err := s.requestRepo.UpdateStatusIf(ctx, requestID, request.Status, updates)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("request %s changed concurrently: %w", requestID.Hex(), models.ErrInvalidTransition)
	}

	s.logger.LogRequestEvent(requestID, utils.EventRequestAdvanced, map[string]interface{}{
		"from": request.Status,
		"to":   target,
	})

	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *dispatchService) Cancel(ctx context.Context, requesterID, requestID primitive.ObjectID) (*models.EmergencyRequest, error) {
	if requesterID.IsZero() {
		return nil, fmt.Errorf("cancel: %w", models.ErrUnauthorized)
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !request.IsOwnedBy(requesterID) {
		return nil, fmt.Errorf("request %s is not owned by caller: %w", requestID.Hex(), models.ErrUnauthorized)
	}

	// Idempotent: a second cancel sees the terminal state and succeeds.
	if request.Status == models.RequestStatusCancelled {
		return request, nil
	}
	if request.Status == models.RequestStatusResolved {
		return nil, fmt.Errorf("request %s already resolved: %w", requestID.Hex(), models.ErrInvalidTransition)
	}

	matched, err := s.requestRepo.UpdateStatusIf(ctx, requestID, request.Status, map[string]interface{}{
		"status":       models.RequestStatusCancelled,
		"cancelled_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if !matched {
		// Lost a race; cancellation still wins if someone else cancelled.
		current, err := s.requestRepo.GetByID(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.RequestStatusCancelled {
			return current, nil
		}
		return s.Cancel(ctx, requesterID, requestID)
	}

	s.logger.LogRequestEvent(requestID, utils.EventRequestCancelled, map[string]interface{}{
		"from": request.Status,
	})

	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *dispatchService) GetRequest(ctx context.Context, requestID primitive.ObjectID) (*models.EmergencyRequest, error) {
	return s.requestRepo.GetByID(ctx, requestID)
}

func (s *dispatchService) GetRequestHistory(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	if requesterID.IsZero() {
		return nil, 0, fmt.Errorf("request history: %w", models.ErrUnauthorized)
	}
	return s.requestRepo.GetByRequesterID(ctx, requesterID, params)
}

// estimateETA returns a static estimate from straight-line distance; it is
// not refreshed after dispatch.
func (s *dispatchService) estimateETA(request *models.EmergencyRequest, provider *models.Provider) int {
	if !provider.HasLocation() {
		return s.cfg.DefaultETAMinutes
	}

	distance := utils.CalculateDistance(
		request.Location.Latitude(), request.Location.Longitude(),
		provider.Location.Latitude(), provider.Location.Longitude(),
	)
	return utils.EstimateETAMinutes(distance, s.cfg.AverageSpeedMPH)
}
