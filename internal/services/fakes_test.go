package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"roadassist/internal/config"
	"roadassist/internal/models"
	"roadassist/internal/utils"
	"roadassist/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Format: "text",
		Output: "stderr",
	})
	require.NoError(t, err)
	return log
}

func testDispatchConfig() *config.DispatchConfig {
	return &config.DispatchConfig{
		SearchRadiusMiles:     10.0,
		MaxRadiusMiles:        25.0,
		WidenOnEmpty:          true,
		AverageSpeedMPH:       30.0,
		DefaultETAMinutes:     30,
		LocationDetectTimeout: 100 * time.Millisecond,
		RequestTimeout:        time.Second,
		ConfirmationDelay:     10 * time.Millisecond,
	}
}

// latNorthOf shifts a latitude north by roughly the given number of miles.
func latNorthOf(lat, miles float64) float64 {
	return lat + miles/69.0975
}

// memRequestRepo is an in-memory RequestRepository with the same
// compare-and-set semantics as the MongoDB implementation.
type memRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.EmergencyRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[primitive.ObjectID]*models.EmergencyRequest)}
}

func (f *memRequestRepo) Create(ctx context.Context, request *models.EmergencyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	request.ID = primitive.NewObjectID()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt

	stored := *request
	f.requests[request.ID] = &stored
	return nil
}

func (f *memRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.requests[id]
	if !ok {
		return nil, fmt.Errorf("emergency request %s: %w", id.Hex(), models.ErrNotFound)
	}

	copied := *stored
	return &copied, nil
}

func (f *memRequestRepo) GetByRequesterID(ctx context.Context, requesterID primitive.ObjectID, params *utils.PaginationParams) ([]*models.EmergencyRequest, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []*models.EmergencyRequest
	for _, stored := range f.requests {
		if stored.RequesterID == requesterID {
			copied := *stored
			matches = append(matches, &copied)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	skip := params.GetSkip()
	if skip >= len(matches) {
		return []*models.EmergencyRequest{}, total, nil
	}
	end := skip + params.GetLimit()
	if end > len(matches) {
		end = len(matches)
	}
	return matches[skip:end], total, nil
}

func (f *memRequestRepo) UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expected models.RequestStatus, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.requests[id]
	if !ok || stored.Status != expected {
		return false, nil
	}

	for key, value := range updates {
		switch key {
		case "status":
			stored.Status = value.(models.RequestStatus)
		case "provider_id":
			if value == nil {
				stored.ProviderID = nil
			} else {
				providerID := value.(primitive.ObjectID)
				stored.ProviderID = &providerID
			}
		case "eta_minutes":
			stored.ETAMinutes = value.(int)
		case "dispatched_at":
			stored.DispatchedAt = asTimePtr(value)
		case "arrived_at":
			stored.ArrivedAt = asTimePtr(value)
		case "resolved_at":
			stored.ResolvedAt = asTimePtr(value)
		case "cancelled_at":
			stored.CancelledAt = asTimePtr(value)
		}
	}
	stored.UpdatedAt = time.Now()
	return true, nil
}

func asTimePtr(value interface{}) *time.Time {
	if value == nil {
		return nil
	}
	t := value.(time.Time)
	return &t
}

// memProviderRepo is an in-memory read-only provider catalog.
type memProviderRepo struct {
	mu        sync.Mutex
	providers map[primitive.ObjectID]*models.Provider
	err       error
}

func newMemProviderRepo() *memProviderRepo {
	return &memProviderRepo{providers: make(map[primitive.ObjectID]*models.Provider)}
}

func (f *memProviderRepo) add(provider *models.Provider) *models.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()

	if provider.ID.IsZero() {
		provider.ID = primitive.NewObjectID()
	}
	f.providers[provider.ID] = provider
	return provider
}

func (f *memProviderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	provider, ok := f.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", id.Hex(), models.ErrNotFound)
	}
	return provider, nil
}

func (f *memProviderRepo) GetByCategories(ctx context.Context, categories []models.ProviderCategory) ([]*models.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	wanted := make(map[models.ProviderCategory]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	var matches []*models.Provider
	for _, provider := range f.providers {
		if !provider.IsActive {
			continue
		}
		if len(wanted) > 0 && !wanted[provider.Category] {
			continue
		}
		matches = append(matches, provider)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID.Hex() < matches[j].ID.Hex()
	})
	return matches, nil
}

// memBookingRepo enforces the one-booking-per-request idempotency rule.
type memBookingRepo struct {
	mu        sync.Mutex
	byRequest map[primitive.ObjectID]*models.Booking
	creates   int
	failWith  error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{byRequest: make(map[primitive.ObjectID]*models.Booking)}
}

func (f *memBookingRepo) CreateForRequest(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return nil, f.failWith
	}

	if existing, ok := f.byRequest[booking.RequestID]; ok {
		return existing, nil
	}

	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	f.byRequest[booking.RequestID] = booking
	f.creates++
	return booking, nil
}

func (f *memBookingRepo) GetByRequestID(ctx context.Context, requestID primitive.ObjectID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	booking, ok := f.byRequest[requestID]
	if !ok {
		return nil, fmt.Errorf("booking for request %s: %w", requestID.Hex(), models.ErrNotFound)
	}
	return booking, nil
}

func (f *memBookingRepo) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

// dispatchFixture wires a DispatchService over the in-memory repositories.
type dispatchFixture struct {
	requests  *memRequestRepo
	providers *memProviderRepo
	bookings  *memBookingRepo
	cfg       *config.DispatchConfig
	service   DispatchService
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	fixture := &dispatchFixture{
		requests:  newMemRequestRepo(),
		providers: newMemProviderRepo(),
		bookings:  newMemBookingRepo(),
		cfg:       testDispatchConfig(),
	}
	fixture.service = NewDispatchService(fixture.requests, fixture.providers, fixture.bookings, fixture.cfg, testLogger(t))
	return fixture
}

func (f *dispatchFixture) addProvider(t *testing.T, name string, category models.ProviderCategory, lat, lng float64) *models.Provider {
	t.Helper()

	point := models.NewPoint(lat, lng)
	return f.providers.add(&models.Provider{
		Name:     name,
		Category: category,
		Location: &point,
		IsActive: true,
	})
}

func (f *dispatchFixture) createRequest(t *testing.T, requesterID primitive.ObjectID, emergencyType models.EmergencyType, lat, lng float64) *models.EmergencyRequest {
	t.Helper()

	request, err := f.service.CreateRequest(context.Background(), &CreateRequestInput{
		RequesterID: requesterID,
		Type:        emergencyType,
		Latitude:    lat,
		Longitude:   lng,
	})
	require.NoError(t, err)
	return request
}

// stubDetector implements LocationDetector for session tests.
type stubDetector struct {
	lat, lng float64
	err      error
	delay    time.Duration
}

func (d *stubDetector) CurrentLocation(ctx context.Context) (float64, float64, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	if d.err != nil {
		return 0, 0, d.err
	}
	return d.lat, d.lng, nil
}

// gatedDispatcher holds Dispatch open until released, to exercise the
// cancel-while-dispatching path.
type gatedDispatcher struct {
	DispatchService
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedDispatcher(inner DispatchService) *gatedDispatcher {
	return &gatedDispatcher{
		DispatchService: inner,
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (g *gatedDispatcher) Dispatch(ctx context.Context, requesterID, requestID, providerID primitive.ObjectID) (*models.EmergencyRequest, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.DispatchService.Dispatch(ctx, requesterID, requestID, providerID)
}
