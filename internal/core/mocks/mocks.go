package mocks

import (
	"context"
	"time"

	"github.com/lorrc/helpdesk-backend/internal/core/domain"
	"github.com/lorrc/helpdesk-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

func (m *MockTicketRepository) ListPaginated(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListAll(ctx context.Context) ([]*domain.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CountOpenedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockSLAConfigRepository is a mock implementation of ports.SLAConfigRepository
type MockSLAConfigRepository struct {
	mock.Mock
}

func NewMockSLAConfigRepository() *MockSLAConfigRepository {
	return &MockSLAConfigRepository{}
}

func (m *MockSLAConfigRepository) GetByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SLAConfig, error) {
	args := m.Called(ctx, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAConfig), args.Error(1)
}

func (m *MockSLAConfigRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SLAConfig), args.Error(1)
}

func (m *MockSLAConfigRepository) Upsert(ctx context.Context, cfg *domain.SLAConfig) (*domain.SLAConfig, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAConfig), args.Error(1)
}

func (m *MockSLAConfigRepository) ListWindows(ctx context.Context) ([]domain.BusinessWindow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BusinessWindow), args.Error(1)
}

func (m *MockSLAConfigRepository) UpsertWindow(ctx context.Context, window *domain.BusinessWindow) (*domain.BusinessWindow, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessWindow), args.Error(1)
}

// MockSLAHistoryRepository is a mock implementation of ports.SLAHistoryRepository
type MockSLAHistoryRepository struct {
	mock.Mock
}

func NewMockSLAHistoryRepository() *MockSLAHistoryRepository {
	return &MockSLAHistoryRepository{}
}

func (m *MockSLAHistoryRepository) GetByTicket(ctx context.Context, ticketID int64) (*domain.SLAHistoryEntry, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAHistoryEntry), args.Error(1)
}

func (m *MockSLAHistoryRepository) Upsert(ctx context.Context, entry *domain.SLAHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockCacheStore is a mock implementation of ports.CacheStore
type MockCacheStore struct {
	mock.Mock
}

func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{}
}

func (m *MockCacheStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CacheEntry), args.Error(1)
}

func (m *MockCacheStore) Set(ctx context.Context, entry domain.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCacheStore) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *MockCacheStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockSLAService is a mock implementation of ports.SLAService
type MockSLAService struct {
	mock.Mock
}

func NewMockSLAService() *MockSLAService {
	return &MockSLAService{}
}

func (m *MockSLAService) GetSLAStatus(ctx context.Context, ticket *domain.Ticket) *domain.SLASnapshot {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.SLASnapshot)
}

func (m *MockSLAService) SyncTicket(ctx context.Context, ticket *domain.Ticket, previousStatus *domain.TicketStatus) *domain.SLASnapshot {
	args := m.Called(ctx, ticket, previousStatus)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.SLASnapshot)
}

// MockSLAConfigService is a mock implementation of ports.SLAConfigService
type MockSLAConfigService struct {
	mock.Mock
}

func NewMockSLAConfigService() *MockSLAConfigService {
	return &MockSLAConfigService{}
}

func (m *MockSLAConfigService) GetConfig(ctx context.Context, priority domain.TicketPriority) *domain.SLAConfig {
	args := m.Called(ctx, priority)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.SLAConfig)
}

func (m *MockSLAConfigService) ListConfigs(ctx context.Context) ([]domain.SLAConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SLAConfig), args.Error(1)
}

func (m *MockSLAConfigService) UpsertConfig(ctx context.Context, cfg domain.SLAConfig) (*domain.SLAConfig, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLAConfig), args.Error(1)
}

func (m *MockSLAConfigService) WeekSchedule(ctx context.Context) domain.WeekSchedule {
	args := m.Called(ctx)
	return args.Get(0).(domain.WeekSchedule)
}

func (m *MockSLAConfigService) ListWindows(ctx context.Context) ([]domain.BusinessWindow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BusinessWindow), args.Error(1)
}

func (m *MockSLAConfigService) UpsertWindow(ctx context.Context, window domain.BusinessWindow) (*domain.BusinessWindow, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessWindow), args.Error(1)
}

// MockMetricsService is a mock implementation of ports.MetricsService
type MockMetricsService struct {
	mock.Mock
}

func NewMockMetricsService() *MockMetricsService {
	return &MockMetricsService{}
}

func (m *MockMetricsService) GetMetrics(ctx context.Context) domain.DashboardSnapshot {
	args := m.Called(ctx)
	return args.Get(0).(domain.DashboardSnapshot)
}

func (m *MockMetricsService) UpdateForTicket(ctx context.Context, change ports.TicketChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockMetricsService) InvalidateForTicket(ctx context.Context, ticketID int64) {
	m.Called(ctx, ticketID)
}

func (m *MockMetricsService) InvalidateAll(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockMetricsService) Rebuild(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockMetricsService) IncrementToday(ctx context.Context) int64 {
	args := m.Called(ctx)
	return args.Get(0).(int64)
}

func (m *MockMetricsService) DecrementToday(ctx context.Context) int64 {
	args := m.Called(ctx)
	return args.Get(0).(int64)
}

func (m *MockMetricsService) ReseedToday(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) UpdateStatus(ctx context.Context, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, newStatus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) DeleteTicket(ctx context.Context, ticketID int64) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockTicketService) GetTicketSLA(ctx context.Context, ticketID int64) (*domain.SLASnapshot, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SLASnapshot), args.Error(1)
}
