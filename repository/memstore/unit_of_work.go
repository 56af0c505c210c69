package memstore

import (
	"context"
	"fmt"

	"casino/events"
	"casino/games/blackjack"
	"casino/models"
	"casino/service"
)

type unitOfWorkFactory struct {
	store *Store
	bus   *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store:            f.store,
		transactionalBus: events.NewTransactionalBus(f.bus),
	}
}

// unitOfWork stages every write until Commit
type unitOfWork struct {
	store            *Store
	ctx              context.Context
	started          bool
	transactionalBus *events.TransactionalBus

	held map[int64]bool

	newAccounts  map[int64]*models.Account
	balances     map[int64]int64
	entries      map[int64][]*models.LedgerEntry
	games        map[int64]*blackjack.Game
	newGames     []int64
	achievements map[int64][]*models.Achievement
}

// Begin starts a new unit of work
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.started {
		return fmt.Errorf("transaction already started")
	}
	u.ctx = ctx
	u.started = true
	u.held = make(map[int64]bool)
	u.newAccounts = make(map[int64]*models.Account)
	u.balances = make(map[int64]int64)
	u.entries = make(map[int64][]*models.LedgerEntry)
	u.games = make(map[int64]*blackjack.Game)
	u.newGames = nil
	u.achievements = make(map[int64][]*models.Achievement)
	return nil
}

// Commit applies the staged writes, releases account locks and flushes events
func (u *unitOfWork) Commit() error {
	if !u.started {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.apply(); err != nil {
		u.finish()
		u.transactionalBus.Discard()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.finish()
	u.transactionalBus.Flush(u.ctx)
	return nil
}

// Rollback drops the staged writes and pending events
func (u *unitOfWork) Rollback() error {
	if !u.started {
		return nil
	}
	u.finish()
	u.transactionalBus.Discard()
	return nil
}

func (u *unitOfWork) finish() {
	for id := range u.held {
		u.store.release(id)
	}
	u.held = nil
	u.started = false
}

func (u *unitOfWork) apply() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range u.newAccounts {
		if _, taken := s.usernames[account.Username]; taken {
			return fmt.Errorf("username %q is already taken", account.Username)
		}
	}
	for accountID, staged := range u.entries {
		if len(staged) == 0 {
			continue
		}
		committed := s.ledger[accountID]
		if int64(len(committed))+1 != staged[0].Sequence {
			return fmt.Errorf("ledger sequence %d for account %d already exists", staged[0].Sequence, accountID)
		}
	}

	for id, account := range u.newAccounts {
		s.accounts[id] = cloneAccount(account)
		s.usernames[account.Username] = id
	}
	now := s.clock.Now()
	for id, balance := range u.balances {
		account := s.accounts[id]
		account.Balance = balance
		account.UpdatedAt = now
	}
	for accountID, staged := range u.entries {
		s.ledger[accountID] = append(s.ledger[accountID], staged...)
	}
	for _, id := range u.newGames {
		game := u.games[id]
		s.gameOrder[game.AccountID] = append(s.gameOrder[game.AccountID], id)
	}
	for id, game := range u.games {
		s.games[id] = game
	}
	for accountID, staged := range u.achievements {
		s.achievements[accountID] = append(s.achievements[accountID], staged...)
	}
	return nil
}

func (u *unitOfWork) mustBeStarted() {
	if !u.started {
		panic("unit of work not started - call Begin() first")
	}
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	u.mustBeStarted()
	return &accountRepository{uow: u}
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	u.mustBeStarted()
	return &ledgerRepository{uow: u}
}

// BlackjackRepository returns the blackjack repository for this unit of work
func (u *unitOfWork) BlackjackRepository() service.BlackjackRepository {
	u.mustBeStarted()
	return &blackjackRepository{uow: u}
}

// AchievementRepository returns the achievement repository for this unit of work
func (u *unitOfWork) AchievementRepository() service.AchievementRepository {
	u.mustBeStarted()
	return &achievementRepository{uow: u}
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.transactionalBus
}
