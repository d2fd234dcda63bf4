package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"roadassist/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sessionFixture struct {
	*dispatchFixture
	requesterID primitive.ObjectID
	locator     LocatorService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	dispatch := newDispatchFixture(t)
	return &sessionFixture{
		dispatchFixture: dispatch,
		requesterID:     primitive.NewObjectID(),
		locator:         NewLocatorService(dispatch.providers, dispatch.cfg, testLogger(t)),
	}
}

func (f *sessionFixture) newSession(t *testing.T, detector LocationDetector) *Session {
	t.Helper()
	return NewSession(f.requesterID, nil, nil, f.service, f.locator, detector, f.cfg, testLogger(t))
}

func TestSessionHappyPath(t *testing.T) {
	fixture := newSessionFixture(t)
	provider := fixture.addProvider(t, "AAA Towing", models.ProviderCategoryTowing, latNorthOf(testLat, 3), testLng)

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})
	assert.Equal(t, PhaseDetecting, session.Phase())

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, PhaseTypeSelection, session.Phase())
	assert.False(t, session.LocationUnavailable())

	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeDeadBattery))
	assert.Equal(t, PhaseSearching, session.Phase())

	request := session.Request()
	require.NotNil(t, request)
	assert.Equal(t, models.RequestStatusSearching, request.Status)

	providers := session.Providers()
	require.NotNil(t, providers)
	require.Len(t, providers.Providers, 1)
	assert.Equal(t, provider.ID, providers.Providers[0].Provider.ID)

	require.NoError(t, session.SelectProvider(context.Background(), provider.ID))
	assert.Equal(t, PhaseConfirmation, session.Phase())
	assert.Equal(t, TrackingStepReceived, session.TrackingProgress())

	// Confirmation is transient; the session advances on its own.
	require.Eventually(t, func() bool {
		return session.Phase() == PhaseTracking
	}, time.Second, 2*time.Millisecond)
}

func TestSessionTrackingFollowsOperatorUpdates(t *testing.T) {
	fixture := newSessionFixture(t)
	provider := fixture.addProvider(t, "AAA Towing", models.ProviderCategoryTowing, testLat, testLng)

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})
	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeTowing))
	require.NoError(t, session.SelectProvider(context.Background(), provider.ID))

	requestID := session.Request().ID

	_, err := fixture.service.AdvanceStatus(context.Background(), requestID, models.RequestStatusEnRoute)
	require.NoError(t, err)

	require.NoError(t, session.RefreshStatus(context.Background()))
	assert.Equal(t, PhaseTracking, session.Phase())
	assert.Equal(t, TrackingStepEnRoute, session.TrackingProgress())

	_, err = fixture.service.AdvanceStatus(context.Background(), requestID, models.RequestStatusArrived)
	require.NoError(t, err)
	require.NoError(t, session.RefreshStatus(context.Background()))
	assert.Equal(t, TrackingStepArriving, session.TrackingProgress())

	_, err = fixture.service.AdvanceStatus(context.Background(), requestID, models.RequestStatusResolved)
	require.NoError(t, err)
	require.NoError(t, session.RefreshStatus(context.Background()))
	assert.Equal(t, PhaseClosed, session.Phase())
}

func TestSessionDegradesWhenDetectionFails(t *testing.T) {
	fixture := newSessionFixture(t)

	session := fixture.newSession(t, &stubDetector{err: fmt.Errorf("gps unavailable")})

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, PhaseTypeSelection, session.Phase())
	assert.True(t, session.LocationUnavailable())

	// Without a position the request cannot be opened.
	err := session.SelectType(context.Background(), models.EmergencyTypeLockout)
	assert.ErrorIs(t, err, models.ErrLocationUnavailable)
	assert.Equal(t, PhaseTypeSelection, session.Phase())
	assert.Nil(t, session.Request())

	// Manual entry recovers the flow, ranking included.
	fixture.addProvider(t, "City Locksmith", models.ProviderCategoryLocksmith, latNorthOf(testLat, 2), testLng)
	require.NoError(t, session.SetManualLocation(testLat, testLng))
	assert.False(t, session.LocationUnavailable())

	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeLockout))
	assert.Equal(t, PhaseSearching, session.Phase())
	require.NotNil(t, session.Providers())
	assert.Len(t, session.Providers().Providers, 1)
}

func TestSessionDegradesWhenDetectionTimesOut(t *testing.T) {
	fixture := newSessionFixture(t)
	fixture.cfg.LocationDetectTimeout = 10 * time.Millisecond

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng, delay: 200 * time.Millisecond})

	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, PhaseTypeSelection, session.Phase())
	assert.True(t, session.LocationUnavailable())
}

func TestSessionRankingFailureDegradesToUnranked(t *testing.T) {
	fixture := newSessionFixture(t)
	fixture.providers.err = fmt.Errorf("catalog down")

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})
	require.NoError(t, session.Start(context.Background()))

	// The request is created even though ranking is unavailable.
	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeTowing))
	assert.Equal(t, PhaseSearching, session.Phase())
	assert.NotNil(t, session.Request())
	assert.Nil(t, session.Providers())
}

func TestSessionPhaseOrderEnforced(t *testing.T) {
	fixture := newSessionFixture(t)
	provider := fixture.addProvider(t, "AAA Towing", models.ProviderCategoryTowing, testLat, testLng)

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})

	// Nothing before detection settles.
	err := session.SelectType(context.Background(), models.EmergencyTypeTowing)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	err = session.SelectProvider(context.Background(), provider.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, session.Start(context.Background()))

	// No provider selection before a request exists.
	err = session.SelectProvider(context.Background(), provider.ID)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeTowing))

	// Type selection does not repeat once the request is open.
	err = session.SelectType(context.Background(), models.EmergencyTypeFlatTire)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSessionCancelWhileSearching(t *testing.T) {
	fixture := newSessionFixture(t)

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})
	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeTowing))

	require.NoError(t, session.Cancel(context.Background()))
	assert.Equal(t, PhaseClosed, session.Phase())
	assert.Equal(t, models.RequestStatusCancelled, session.Request().Status)

	// A second cancel on a closed session is a no-op.
	require.NoError(t, session.Cancel(context.Background()))
}

func TestSessionCancelDuringDispatchDefersUntilSettled(t *testing.T) {
	fixture := newSessionFixture(t)
	provider := fixture.addProvider(t, "AAA Towing", models.ProviderCategoryTowing, testLat, testLng)

	gated := newGatedDispatcher(fixture.service)
	session := NewSession(fixture.requesterID, nil, nil, gated, fixture.locator, &stubDetector{lat: testLat, lng: testLng}, fixture.cfg, testLogger(t))

	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.SelectType(context.Background(), models.EmergencyTypeTowing))
	requestID := session.Request().ID

	done := make(chan error, 1)
	go func() {
		done <- session.SelectProvider(context.Background(), provider.ID)
	}()

	<-gated.entered

	// Cancel lands while the dispatch call is still in flight; it must be
	// deferred, not applied half way.
	require.NoError(t, session.Cancel(context.Background()))
	assert.Equal(t, PhaseSearching, session.Phase())

	close(gated.release)
	require.NoError(t, <-done)

	// The dispatch completed, then the deferred cancel was applied, so the
	// stored request and its booking stay a consistent pair.
	assert.Equal(t, PhaseClosed, session.Phase())

	stored, err := fixture.requests.GetByID(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, stored.Status)

	booking, err := fixture.bookings.GetByRequestID(context.Background(), requestID)
	require.NoError(t, err)
	assert.Equal(t, provider.ID, booking.ProviderID)
}

func TestSessionCancelBeforeRequestExists(t *testing.T) {
	fixture := newSessionFixture(t)

	session := fixture.newSession(t, &stubDetector{lat: testLat, lng: testLng})
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, session.Cancel(context.Background()))
	assert.Equal(t, PhaseClosed, session.Phase())
	assert.Nil(t, session.Request())
}
