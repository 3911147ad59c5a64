package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sundown-service/internal/domain"
	"github.com/spec-kit/sundown-service/internal/events"
	"github.com/spec-kit/sundown-service/internal/integration/nominatim"
	apperrors "github.com/spec-kit/sundown-service/pkg/util"
)

const testPhone = "+12015550123"

func newTestConversationService(repo *MockClientRepository, geocoder *fakeGeocoder, engine *fakeEngine) *ConversationService {
	if engine == nil {
		engine = &fakeEngine{fn: func(ctx context.Context, location string) (*domain.Forecast, error) {
			return nil, apperrors.NewProviderUnavailable(errors.New("not configured"))
		}}
	}
	svc := NewConversationService(ConversationDependencies{
		Clients:    repo,
		Geocoder:   geocoder,
		Forecasts:  engine,
		Locks:      &fakeLocker{},
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
	})
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func pendingClient(location string) *domain.Client {
	return &domain.Client{ID: "client-1", Phone: testPhone, Role: domain.RolePending, Location: location}
}

func userClient(location string) *domain.Client {
	return &domain.Client{ID: "client-1", Phone: testPhone, Role: domain.RoleUser, Location: location}
}

func allowBookkeeping(repo *MockClientRepository) {
	repo.On("TouchLastMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("AppendConversation", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestOnboardingUnknownPhone(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(nil, pgx.ErrNoRows)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Client) bool {
		return c.Phone == testPhone && c.Role == domain.RolePending && c.Location == ""
	})).Return(nil)
	repo.On("AppendConversation", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestConversationService(repo, &fakeGeocoder{}, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "hi")
	require.NoError(t, err)
	assert.Equal(t, replyWelcome, reply)
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestDuplicateCreateRejected(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	svc := newTestConversationService(repo, &fakeGeocoder{}, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "create")
	require.NoError(t, err)
	assert.Equal(t, replyDuplicate, reply)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPendingCandidateThenConfirm(t *testing.T) {
	// Candidate message: geocoded label stored, role stays PENDING.
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(pendingClient(""), nil)
	repo.On("UpdateRoleLocation", mock.Anything, "client-1", domain.RolePending, "Chatham, NJ, USA").Return(nil)
	allowBookkeeping(repo)

	geocoder := &fakeGeocoder{lat: 40.74, lon: -74.38, label: "Chatham, NJ, USA"}
	svc := newTestConversationService(repo, geocoder, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "chatham nj")
	require.NoError(t, err)
	assert.Contains(t, reply, "Chatham, NJ, USA")
	assert.Contains(t, reply, "YES or NO")
	repo.AssertExpectations(t)

	// Confirmation: role becomes USER, location is exactly the candidate.
	repo2 := new(MockClientRepository)
	repo2.On("GetByPhone", mock.Anything, testPhone).Return(pendingClient("Chatham, NJ, USA"), nil)
	repo2.On("UpdateRoleLocation", mock.Anything, "client-1", domain.RoleUser, "Chatham, NJ, USA").Return(nil)
	allowBookkeeping(repo2)

	svc2 := newTestConversationService(repo2, geocoder, nil)

	reply2, err := svc2.HandleInbound(context.Background(), testPhone, "yes")
	require.NoError(t, err)
	assert.Equal(t, replySetupComplete("Chatham, NJ, USA"), reply2)
	repo2.AssertExpectations(t)
}

func TestRepeatedNoNeverChangesRole(t *testing.T) {
	for _, role := range []domain.Role{domain.RolePending, domain.RoleUpdating} {
		repo := new(MockClientRepository)
		client := &domain.Client{ID: "client-1", Phone: testPhone, Role: role, Location: "Chatham, NJ, USA"}
		repo.On("GetByPhone", mock.Anything, testPhone).Return(client, nil)
		repo.On("UpdateRoleLocation", mock.Anything, "client-1", role, "").Return(nil)
		allowBookkeeping(repo)

		svc := newTestConversationService(repo, &fakeGeocoder{}, nil)

		for i := 0; i < 3; i++ {
			reply, err := svc.HandleInbound(context.Background(), testPhone, "no")
			require.NoError(t, err)
			assert.Equal(t, replyAskAgain, reply, "role %s", role)
			// Candidate is discarded after the first no.
			client.Location = ""
		}
		// Role argument to UpdateRoleLocation never differs from the current role.
		for _, call := range repo.Calls {
			if call.Method == "UpdateRoleLocation" {
				assert.Equal(t, role, call.Arguments.Get(2))
			}
		}
	}
}

func TestRefreshReturnsForecast(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	engine := &fakeEngine{fn: func(ctx context.Context, location string) (*domain.Forecast, error) {
		assert.Equal(t, "Chatham, NJ, USA", location)
		return &domain.Forecast{
			Day:         "Monday",
			LocalSunset: time.Date(2026, 6, 1, 20, 15, 0, 0, time.UTC),
			Band:        domain.BandGreat,
			Percent:     82.5,
			Location:    location,
		}, nil
	}}
	svc := newTestConversationService(repo, &fakeGeocoder{}, engine)

	for _, word := range []string{"refresh", "update", "sunset", "sundown"} {
		reply, err := svc.HandleInbound(context.Background(), testPhone, word)
		require.NoError(t, err)
		assert.Contains(t, reply, "Quality: Great 82.50%")
	}
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshProviderFailureDegradesToReply(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	engine := &fakeEngine{fn: func(ctx context.Context, location string) (*domain.Forecast, error) {
		return nil, apperrors.NewProviderUnavailable(errors.New("rate limited"))
	}}
	svc := newTestConversationService(repo, &fakeGeocoder{}, engine)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "refresh")
	require.NoError(t, err)
	assert.Equal(t, replyProviderDown, reply)
}

func TestChangeLocationCommand(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	repo.On("UpdateRoleLocation", mock.Anything, "client-1", domain.RoleUpdating, "New York, NY, USA").Return(nil)
	allowBookkeeping(repo)

	geocoder := &fakeGeocoder{lat: 40.71, lon: -74.01, label: "New York, NY, USA"}
	svc := newTestConversationService(repo, geocoder, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "change location to new york")
	require.NoError(t, err)
	assert.Contains(t, reply, "New York, NY, USA")
	repo.AssertExpectations(t)
}

func TestChangeLocationSameCityShortCircuits(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	geocoder := &fakeGeocoder{label: "should not be called"}
	svc := newTestConversationService(repo, geocoder, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "change location to chatham, nj, usa")
	require.NoError(t, err)
	assert.Equal(t, replySameCity("Chatham, NJ, USA"), reply)
	assert.Equal(t, 0, geocoder.calls, "matching city must not round-trip the geocoder")
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeLocationEmptyCandidate(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	geocoder := &fakeGeocoder{label: "should not be called"}
	svc := newTestConversationService(repo, geocoder, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "change location to")
	require.NoError(t, err)
	assert.Equal(t, replyInvalidLocation, reply)
	assert.Equal(t, 0, geocoder.calls)
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatingConfirmIncludesForecast(t *testing.T) {
	repo := new(MockClientRepository)
	client := &domain.Client{ID: "client-1", Phone: testPhone, Role: domain.RoleUpdating, Location: "New York, NY, USA"}
	repo.On("GetByPhone", mock.Anything, testPhone).Return(client, nil)
	repo.On("UpdateRoleLocation", mock.Anything, "client-1", domain.RoleUser, "New York, NY, USA").Return(nil)
	allowBookkeeping(repo)

	engine := &fakeEngine{fn: func(ctx context.Context, location string) (*domain.Forecast, error) {
		return &domain.Forecast{
			Day:         "Monday",
			LocalSunset: time.Date(2026, 6, 1, 20, 20, 0, 0, time.UTC),
			Band:        domain.BandGood,
			Percent:     60,
			Location:    location,
		}, nil
	}}
	svc := newTestConversationService(repo, &fakeGeocoder{}, engine)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "yes")
	require.NoError(t, err)
	assert.Contains(t, reply, replyLocationUpdated("New York, NY, USA"))
	assert.Contains(t, reply, "Quality: Good 60.00%")
	repo.AssertExpectations(t)
}

func TestUnrecognizedTextGetsHelp(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(userClient("Chatham, NJ, USA"), nil)
	allowBookkeeping(repo)

	svc := newTestConversationService(repo, &fakeGeocoder{}, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "what is this")
	require.NoError(t, err)
	assert.Contains(t, reply, "REFRESH")
	assert.Contains(t, reply, "Chatham, NJ, USA")
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPendingInvalidCandidateKeepsState(t *testing.T) {
	repo := new(MockClientRepository)
	repo.On("GetByPhone", mock.Anything, testPhone).Return(pendingClient(""), nil)
	allowBookkeeping(repo)

	geocoder := &fakeGeocoder{err: nominatim.ErrNotFound}
	svc := newTestConversationService(repo, geocoder, nil)

	reply, err := svc.HandleInbound(context.Background(), testPhone, "zzzzzz")
	require.NoError(t, err)
	assert.Equal(t, replyInvalidLocation, reply)
	repo.AssertNotCalled(t, "UpdateRoleLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
