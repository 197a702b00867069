package services

import (
	"context"
	"sync"
	"time"

	"github.com/medicapp/backend/internal/domain/entities"
	"github.com/medicapp/backend/internal/domain/providers"
	"github.com/medicapp/backend/internal/domain/repositories"
	"github.com/stretchr/testify/mock"
)

type mockProviderSearch struct {
	mock.Mock
}

func (m *mockProviderSearch) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Complete(ctx context.Context, req providers.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockProviderRepository struct {
	mock.Mock
}

func (m *mockProviderRepository) Create(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *mockProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *mockProviderRepository) Update(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *mockProviderRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

// searchableProviderRepository is a repository that also answers free-text lookups
type searchableProviderRepository struct {
	*mockProviderRepository
	*mockProviderSearch
}

type mockProviderIndex struct {
	mock.Mock
}

func (m *mockProviderIndex) SearchText(ctx context.Context, term string, limit int) ([]*entities.Provider, error) {
	args := m.Called(ctx, term, limit)
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

func (m *mockProviderIndex) Index(ctx context.Context, provider *entities.Provider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *mockProviderIndex) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) Publish(ctx context.Context, channel string, event *entities.ProviderEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *mockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ProviderEvent, error) {
	args := m.Called(ctx, channel)
	return args.Get(0).(<-chan *entities.ProviderEvent), args.Error(1)
}

func (m *mockEventBus) Close() error {
	return m.Called().Error(0)
}

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *mockUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepository) List(ctx context.Context, filter repositories.UserFilter) ([]*entities.User, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Int(1), args.Error(2)
}

// fakeClock is a settable time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
