package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/spec-kit/sundown-service/internal/domain"
)

// MockClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) Create(ctx context.Context, client *domain.Client) error {
	args := m.Called(ctx, client)
	if args.Error(0) == nil && client.ID == "" {
		client.ID = "client-1"
		client.CreatedAt = time.Now()
		client.LastMessageAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockClientRepository) GetByPhone(ctx context.Context, phone string) (*domain.Client, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Client), args.Error(1)
}

func (m *MockClientRepository) Exists(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) UpdateRoleLocation(ctx context.Context, id string, role domain.Role, location string) error {
	args := m.Called(ctx, id, role, location)
	return args.Error(0)
}

func (m *MockClientRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockClientRepository) ListAll(ctx context.Context) ([]domain.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Client), args.Error(1)
}

func (m *MockClientRepository) AppendConversation(ctx context.Context, clientID string, entry domain.ConversationEntry) error {
	args := m.Called(ctx, clientID, entry)
	return args.Error(0)
}

func (m *MockClientRepository) Conversation(ctx context.Context, clientID string, limit int) ([]domain.ConversationEntry, error) {
	args := m.Called(ctx, clientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationEntry), args.Error(1)
}

// fakeGeocoder answers a fixed coordinate/label, counting calls.
type fakeGeocoder struct {
	lat, lon float64
	label    string
	err      error
	calls    int
}

func (f *fakeGeocoder) Resolve(ctx context.Context, query string) (float64, float64, string, error) {
	f.calls++
	if f.err != nil {
		return 0, 0, "", f.err
	}
	return f.lat, f.lon, f.label, nil
}

// fakeQuality answers a fixed percentage, recording queried coordinates.
type fakeQuality struct {
	mu      sync.Mutex
	percent float64
	err     error
	coords  []domain.Coordinate
}

func (f *fakeQuality) Quality(ctx context.Context, lat, lon float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coords = append(f.coords, domain.Coordinate{Lat: lat, Lon: lon})
	if f.err != nil {
		return 0, f.err
	}
	return f.percent, nil
}

func (f *fakeQuality) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.coords)
}

// fakeAlmanac answers fixed sunset/timezone values.
type fakeAlmanac struct {
	sunset    time.Time
	sunsetErr error
	loc       *time.Location
	locErr    error
}

func (f *fakeAlmanac) SunsetUTC(lat, lon float64, date time.Time) (time.Time, error) {
	if f.sunsetErr != nil {
		return time.Time{}, f.sunsetErr
	}
	return f.sunset, nil
}

func (f *fakeAlmanac) Location(lat, lon float64) (*time.Location, error) {
	if f.locErr != nil {
		return nil, f.locErr
	}
	return f.loc, nil
}

// fakeEngine routes ComputeForecast through a test-provided function.
type fakeEngine struct {
	fn func(ctx context.Context, location string) (*domain.Forecast, error)
}

func (f *fakeEngine) ComputeForecast(ctx context.Context, location string) (*domain.Forecast, error) {
	return f.fn(ctx, location)
}

// fakeLocker hands out no-op releases, counting acquisitions.
type fakeLocker struct {
	mu       sync.Mutex
	acquired int
}

func (f *fakeLocker) Acquire(ctx context.Context, key string) (func(), error) {
	f.mu.Lock()
	f.acquired++
	f.mu.Unlock()
	return func() {}, nil
}

// fakeMessenger records sends; optional block channel stalls delivery.
type fakeMessenger struct {
	mu    sync.Mutex
	sent  map[string]string
	err   error
	block chan struct{}
	entry chan struct{}
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{sent: make(map[string]string)}
}

func (f *fakeMessenger) Send(ctx context.Context, to, body string) error {
	if f.entry != nil {
		f.entry <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[to] = body
	return nil
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
