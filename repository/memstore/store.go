// Package memstore is an in-process store behind the same unit of work
// contract as the Postgres repositories. Writes are staged per unit of work
// and applied atomically on commit; account rows are serialised with one
// lock per account.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"casino/events"
	"casino/games/blackjack"
	"casino/games/cards"
	"casino/models"
	"casino/service"

	"github.com/coder/quartz"
)

// Store holds committed state for every account
type Store struct {
	mu    sync.Mutex
	clock quartz.Clock

	accounts     map[int64]*models.Account
	usernames    map[string]int64
	ledger       map[int64][]*models.LedgerEntry
	games        map[int64]*blackjack.Game
	gameOrder    map[int64][]int64
	achievements map[int64][]*models.Achievement

	// one-slot channels acting as cancellable per-account mutexes
	locks map[int64]chan struct{}

	nextAccountID     int64
	nextEntryID       int64
	nextGameID        int64
	nextAchievementID int64
}

// New creates an empty store
func New(clock quartz.Clock) *Store {
	return &Store{
		clock:        clock,
		accounts:     make(map[int64]*models.Account),
		usernames:    make(map[string]int64),
		ledger:       make(map[int64][]*models.LedgerEntry),
		games:        make(map[int64]*blackjack.Game),
		gameOrder:    make(map[int64][]int64),
		achievements: make(map[int64][]*models.Achievement),
		locks:        make(map[int64]chan struct{}),
	}
}

// NewFactory creates a unit of work factory over a fresh store
func NewFactory(bus *events.Bus, clock quartz.Clock) service.UnitOfWorkFactory {
	return New(clock).Factory(bus)
}

// Factory returns a unit of work factory over this store
func (s *Store) Factory(bus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{store: s, bus: bus}
}

func (s *Store) lockChan(accountID int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[accountID] = ch
	}
	return ch
}

func (s *Store) acquire(ctx context.Context, accountID int64) error {
	select {
	case s.lockChan(accountID) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to lock account %d: %w", accountID, ctx.Err())
	}
}

func (s *Store) release(accountID int64) {
	<-s.lockChan(accountID)
}

func (s *Store) allocate(counter *int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return *counter
}

func cloneAccount(a *models.Account) *models.Account {
	c := *a
	return &c
}

func cloneEntry(e *models.LedgerEntry) *models.LedgerEntry {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.ReferenceID != nil {
		ref := *e.ReferenceID
		c.ReferenceID = &ref
	}
	return &c
}

func cloneGame(g *blackjack.Game) *blackjack.Game {
	c := *g
	c.Shoe = append(cards.Shoe(nil), g.Shoe...)
	c.DealerHand = append(cards.Hand(nil), g.DealerHand...)
	c.PlayerHand = append(cards.Hand(nil), g.PlayerHand...)
	if g.SecondHand != nil {
		second := append(cards.Hand(nil), (*g.SecondHand)...)
		c.SecondHand = &second
	}
	c.Results = append([]blackjack.HandResult(nil), g.Results...)
	return &c
}

func cloneAchievement(a *models.Achievement) *models.Achievement {
	c := *a
	if a.LedgerEntry != nil {
		id := *a.LedgerEntry
		c.LedgerEntry = &id
	}
	return &c
}
