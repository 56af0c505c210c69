package service

import (
	"context"

	"casino/events"
	"casino/games/blackjack"
	"casino/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	args := m.Called(ctx, id, newBalance)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetLatest(ctx context.Context, accountID int64) (*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if fn, ok := args.Get(0).(func(context.Context, int64) *models.LedgerEntry); ok {
		return fn(ctx, accountID), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) ListChain(ctx context.Context, accountID int64) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetAggregates(ctx context.Context, accountID int64) ([]models.LedgerAggregate, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LedgerAggregate), args.Error(1)
}

// MockBlackjackRepository is a mock implementation of BlackjackRepository
type MockBlackjackRepository struct {
	mock.Mock
}

func (m *MockBlackjackRepository) GetOpenByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blackjack.Game), args.Error(1)
}

func (m *MockBlackjackRepository) GetLatestByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blackjack.Game), args.Error(1)
}

func (m *MockBlackjackRepository) Create(ctx context.Context, game *blackjack.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockBlackjackRepository) Update(ctx context.Context, game *blackjack.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

// MockAchievementRepository is a mock implementation of AchievementRepository
type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Achievement, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) Unlock(ctx context.Context, achievement *models.Achievement) (bool, error) {
	args := m.Called(ctx, achievement)
	return args.Bool(0), args.Error(1)
}

// MockSpinHistory is a mock implementation of SpinHistory
type MockSpinHistory struct {
	mock.Mock
}

func (m *MockSpinHistory) Push(ctx context.Context, accountID int64, number int) error {
	args := m.Called(ctx, accountID, number)
	return args.Error(0)
}

func (m *MockSpinHistory) Recent(ctx context.Context, accountID int64, limit int) ([]int, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// Published returns every event passed to Publish, in order
func (m *MockEventPublisher) Published() []events.Event {
	var out []events.Event
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			out = append(out, call.Arguments.Get(0).(events.Event))
		}
	}
	return out
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests only set expectations on the calls they care about.
type MockUnitOfWork struct {
	mock.Mock
	accountRepo     AccountRepository
	ledgerRepo      LedgerRepository
	blackjackRepo   BlackjackRepository
	achievementRepo AchievementRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(accountRepo AccountRepository, ledgerRepo LedgerRepository, blackjackRepo BlackjackRepository, achievementRepo AchievementRepository) {
	m.accountRepo = accountRepo
	m.ledgerRepo = ledgerRepo
	m.blackjackRepo = blackjackRepo
	m.achievementRepo = achievementRepo
}

// SetEventBus wires the publisher returned by EventBus
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) LedgerRepository() LedgerRepository {
	return m.ledgerRepo
}

func (m *MockUnitOfWork) BlackjackRepository() BlackjackRepository {
	return m.blackjackRepo
}

func (m *MockUnitOfWork) AchievementRepository() AchievementRepository {
	return m.achievementRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
