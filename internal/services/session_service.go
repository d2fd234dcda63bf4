package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"roadassist/internal/config"
	"roadassist/internal/models"
	"roadassist/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionPhase is the requester-facing view phase. It is deliberately a
// separate type from models.RequestStatus: the persisted status is
// server-authoritative, the phase only drives presentation.
type SessionPhase string

const (
	PhaseDetecting     SessionPhase = "detecting"
	PhaseTypeSelection SessionPhase = "type_selection"
	PhaseSearching     SessionPhase = "searching"
	PhaseConfirmation  SessionPhase = "dispatched_confirmation"
	PhaseTracking      SessionPhase = "tracking"
	PhaseClosed        SessionPhase = "closed"
)

// TrackingStep is the 3-step progress indicator shown while tracking. It is
// derived from the persisted status, not from live telemetry.
type TrackingStep int

const (
	TrackingStepReceived TrackingStep = iota + 1
	TrackingStepEnRoute
	TrackingStepArriving
)

// LocationDetector acquires the device position. Implementations must
// respect context cancellation; the session bounds the wait.
type LocationDetector interface {
	CurrentLocation(ctx context.Context) (lat, lng float64, err error)
}

// Session sequences one requester's flow from location detection through
// tracking. One phase is active at a time; Cancel is accepted in any phase
// but waits for an in-flight dispatch to settle so a booking is never left
// behind without its request.
type Session struct {
	mu sync.Mutex

	phase               SessionPhase
	requesterID         primitive.ObjectID
	vehicleID           *primitive.ObjectID
	lat, lng            float64
	locationUnavailable bool
	request             *models.EmergencyRequest
	providers           *models.ProviderSearchResult
	categories          []models.ProviderCategory

	dispatchInFlight bool
	cancelRequested  bool
	confirmTimer     *time.Timer

	dispatcher DispatchService
	locator    LocatorService
	detector   LocationDetector
	cfg        *config.DispatchConfig
	logger     *logger.Logger
}

func NewSession(
	requesterID primitive.ObjectID,
	vehicleID *primitive.ObjectID,
	categories []models.ProviderCategory,
	dispatcher DispatchService,
	locator LocatorService,
	detector LocationDetector,
	cfg *config.DispatchConfig,
	log *logger.Logger,
) *Session {
	return &Session{
		phase:       PhaseDetecting,
		requesterID: requesterID,
		vehicleID:   vehicleID,
		categories:  categories,
		dispatcher:  dispatcher,
		locator:     locator,
		detector:    detector,
		cfg:         cfg,
		logger:      log,
	}
}

func (s *Session) Phase() SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) LocationUnavailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locationUnavailable
}

func (s *Session) Request() *models.EmergencyRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request
}

func (s *Session) Providers() *models.ProviderSearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providers
}

// Start runs the detecting phase. A failed or slow detection degrades to
// type selection with the location-unavailable flag set rather than
// blocking the user.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseDetecting {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("session already started (phase %s)", phase)
	}
	s.mu.Unlock()

	detectCtx, cancel := context.WithTimeout(ctx, s.cfg.LocationDetectTimeout)
	defer cancel()

	lat, lng, err := s.detector.CurrentLocation(detectCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelRequested {
		s.phase = PhaseClosed
		return nil
	}

	if err != nil {
		s.locationUnavailable = true
		s.logger.WithError(err).Warn("Location detection failed, continuing without ranking")
	} else {
		s.lat, s.lng = lat, lng
	}

	s.phase = PhaseTypeSelection
	return nil
}

// SetManualLocation is the manual-entry alternative for the degraded flow:
// when detection failed the user may type an address/position instead.
func (s *Session) SetManualLocation(lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseTypeSelection {
		return fmt.Errorf("cannot set location in phase %s: %w", s.phase, models.ErrInvalidTransition)
	}

	s.lat, s.lng = lat, lng
	s.locationUnavailable = false
	return nil
}

// SelectType creates the emergency request. The phase advances only after
// the orchestrator acknowledges; on failure the session stays in type
// selection and the error is surfaced.
func (s *Session) SelectType(ctx context.Context, emergencyType models.EmergencyType) error {
	s.mu.Lock()
	if s.phase != PhaseTypeSelection {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("cannot select type in phase %s: %w", phase, models.ErrInvalidTransition)
	}
	if s.locationUnavailable {
		// The requester must supply a position via SetManualLocation
		// before a request can be opened.
		s.mu.Unlock()
		return fmt.Errorf("device position unknown: %w", models.ErrLocationUnavailable)
	}
	lat, lng := s.lat, s.lng
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	request, err := s.dispatcher.CreateRequest(callCtx, &CreateRequestInput{
		RequesterID: s.requesterID,
		VehicleID:   s.vehicleID,
		Type:        emergencyType,
		Latitude:    lat,
		Longitude:   lng,
	})
	if err != nil {
		return err
	}

	providers, err := s.locator.NearbyProviders(callCtx, lat, lng, s.categories)
	if err != nil {
		// Ranking failure degrades to the unranked path; the request
		// itself already exists.
		s.logger.WithError(err).Warn("Provider ranking failed, falling back to unranked list")
		providers = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.request = request
	s.providers = providers
	s.phase = PhaseSearching

	if s.cancelRequested {
		return s.applyCancelLocked(ctx)
	}
	return nil
}

// SelectProvider dispatches the request to the chosen provider. A cancel
// arriving while the call is in flight is deferred until it settles.
func (s *Session) SelectProvider(ctx context.Context, providerID primitive.ObjectID) error {
	s.mu.Lock()
	if s.phase != PhaseSearching {
		phase := s.phase
		s.mu.Unlock()
		return fmt.Errorf("cannot select provider in phase %s: %w", phase, models.ErrInvalidTransition)
	}
	requestID := s.request.ID
	s.dispatchInFlight = true
	s.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	request, err := s.dispatcher.Dispatch(callCtx, s.requesterID, requestID, providerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatchInFlight = false

	if err != nil {
		if s.cancelRequested {
			return s.applyCancelLocked(ctx)
		}
		return err
	}

	s.request = request

	if s.cancelRequested {
		return s.applyCancelLocked(ctx)
	}

	s.phase = PhaseConfirmation
	s.confirmTimer = time.AfterFunc(s.cfg.ConfirmationDelay, s.confirmElapsed)
	return nil
}

// confirmElapsed auto-advances the transient confirmation phase.
func (s *Session) confirmElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseConfirmation {
		s.phase = PhaseTracking
	}
}

// Cancel is accepted in every phase. When a dispatch call is in flight the
// cancellation is deferred until the call completes, so an orphaned booking
// cannot result.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseClosed {
		return nil
	}

	if s.dispatchInFlight {
		s.cancelRequested = true
		return nil
	}

	return s.applyCancelLocked(ctx)
}

// applyCancelLocked cancels the persisted request if one exists and closes
// the session. Callers must hold s.mu.
func (s *Session) applyCancelLocked(ctx context.Context) error {
	s.cancelRequested = false

	if s.confirmTimer != nil {
		s.confirmTimer.Stop()
		s.confirmTimer = nil
	}

	if s.request != nil && !s.request.Status.IsTerminal() {
		request, err := s.dispatcher.Cancel(ctx, s.requesterID, s.request.ID)
		if err != nil {
			return err
		}
		s.request = request
	}

	s.phase = PhaseClosed
	return nil
}

// RefreshStatus re-fetches the persisted request and reconciles the view
// phase with the authoritative status. This is the recovery path after an
// InvalidTransitionError or a poll during tracking.
func (s *Session) RefreshStatus(ctx context.Context) error {
	s.mu.Lock()
	if s.request == nil {
		s.mu.Unlock()
		return nil
	}
	requestID := s.request.ID
	s.mu.Unlock()

	request, err := s.dispatcher.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.request = request

	switch request.Status {
	case models.RequestStatusCancelled:
		s.phase = PhaseClosed
	case models.RequestStatusResolved:
		s.phase = PhaseClosed
	case models.RequestStatusDispatched, models.RequestStatusEnRoute, models.RequestStatusArrived:
		if s.phase != PhaseConfirmation {
			s.phase = PhaseTracking
		}
	}

	return nil
}

// TrackingProgress maps the persisted status onto the 3-step indicator.
// Zero means the request is not yet dispatched.
func (s *Session) TrackingProgress() TrackingStep {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.request == nil {
		return 0
	}

	switch s.request.Status {
	case models.RequestStatusDispatched:
		return TrackingStepReceived
	case models.RequestStatusEnRoute:
		return TrackingStepEnRoute
	case models.RequestStatusArrived, models.RequestStatusResolved:
		return TrackingStepArriving
	default:
		return 0
	}
}
