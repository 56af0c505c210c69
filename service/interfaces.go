package service

import (
	"context"

	"casino/events"
	"casino/games/blackjack"
	"casino/games/roulette"
	"casino/models"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByUsername retrieves an account by username, returning nil when it does not exist
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// GetForUpdate retrieves an account and holds an exclusive lock on it
	// until the unit of work ends. Returns nil when it does not exist.
	GetForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// Create creates an account with a zero balance
	Create(ctx context.Context, username string) (*models.Account, error)

	// UpdateBalance sets the balance of a locked account
	UpdateBalance(ctx context.Context, id int64, newBalance int64) error
}

// LedgerRepository is the append-only store of ledger entries
type LedgerRepository interface {
	// Append stores a new entry and fills in its ID and CreatedAt
	Append(ctx context.Context, entry *models.LedgerEntry) error

	// GetLatest returns the entry with the highest sequence for an account, or nil
	GetLatest(ctx context.Context, accountID int64) (*models.LedgerEntry, error)

	// List returns entries matching the filter, newest first
	List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error)

	// ListChain returns every entry for an account in sequence order
	ListChain(ctx context.Context, accountID int64) ([]*models.LedgerEntry, error)

	// GetAggregates returns counts and sums grouped by kind and game
	GetAggregates(ctx context.Context, accountID int64) ([]models.LedgerAggregate, error)
}

// BlackjackRepository stores blackjack rounds
type BlackjackRepository interface {
	// GetOpenByAccount returns the account's game that is not over, or nil
	GetOpenByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error)

	// GetLatestByAccount returns the account's most recent game, or nil
	GetLatestByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error)

	// Create stores a new game and fills in its ID and timestamps
	Create(ctx context.Context, game *blackjack.Game) error

	// Update persists the current state of a game
	Update(ctx context.Context, game *blackjack.Game) error
}

// AchievementRepository records unlocked achievements
type AchievementRepository interface {
	// ListByAccount returns every achievement the account has unlocked
	ListByAccount(ctx context.Context, accountID int64) ([]*models.Achievement, error)

	// Unlock stores the achievement. Returns false if it was already unlocked.
	Unlock(ctx context.Context, achievement *models.Achievement) (bool, error)
}

// SpinHistory keeps the most recent roulette numbers per account
type SpinHistory interface {
	Push(ctx context.Context, accountID int64, number int) error
	Recent(ctx context.Context, accountID int64, limit int) ([]int, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// LedgerService exposes the ledger to callers outside a game
type LedgerService interface {
	// OpenAccount creates an account and credits the initial balance as an adjustment
	OpenAccount(ctx context.Context, username string, initialBalance int64) (*models.Account, error)

	// GetAccount returns an account or ErrAccountNotFound
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	// Adjust posts an administrative change. It cannot take the balance below zero.
	Adjust(ctx context.Context, accountID int64, amount int64, description string) (*models.LedgerEntry, error)

	// Reserve takes a stake from the balance under a fresh reference
	Reserve(ctx context.Context, accountID int64, amount int64, game models.GameKind, description string) (*models.LedgerEntry, error)

	// Settle posts the outcome of a reserved stake under the same reference
	Settle(ctx context.Context, accountID int64, amount int64, kind models.EntryKind, game models.GameKind, description string, referenceID uuid.UUID, metadata map[string]any) (*models.LedgerEntry, error)

	// GetStatistics aggregates the account's entries
	GetStatistics(ctx context.Context, accountID int64) (*models.LedgerStatistics, error)

	// History lists entries, newest first
	History(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error)

	// Verify replays the account's ledger and checks every invariant
	Verify(ctx context.Context, accountID int64) (*models.LedgerAudit, error)
}

// BlackjackService runs blackjack rounds
type BlackjackService interface {
	// StartGame reserves the wager and deals a new round, closing any open one
	StartGame(ctx context.Context, accountID int64, wager int64) (*blackjack.View, error)

	// ApplyAction plays hit, stand, double_down or split on the open round
	ApplyAction(ctx context.Context, accountID int64, action blackjack.Action) (*blackjack.View, error)

	// GetGame returns the account's most recent round
	GetGame(ctx context.Context, accountID int64) (*blackjack.View, error)
}

// RouletteService settles a batch of roulette bets on one spin
type RouletteService interface {
	SettleBets(ctx context.Context, accountID int64, bets []roulette.Bet) (*models.RouletteResult, error)
}

// SlotsService plays the slot machine
type SlotsService interface {
	Spin(ctx context.Context, accountID int64) (*models.SlotResult, error)
}

// AchievementService awards achievements after settlements
type AchievementService interface {
	// Evaluate checks a settled round against every achievement rule
	Evaluate(ctx context.Context, settled events.GameSettledEvent) ([]*models.Achievement, error)

	// ListAchievements returns what an account has unlocked
	ListAchievements(ctx context.Context, accountID int64) ([]*models.Achievement, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and releases queued events
	Commit() error

	// Rollback rolls back the transaction and drops queued events
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository
	BlackjackRepository() BlackjackRepository
	AchievementRepository() AchievementRepository

	// Event publishing
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
