package events

import (
	"context"
	"sync"

	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange       EventType = "balance_change"
	EventTypeAccountOpened       EventType = "account_opened"
	EventTypeGameSettled         EventType = "game_settled"
	EventTypeAchievementUnlocked EventType = "achievement_unlocked"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is published for every ledger entry
type BalanceChangeEvent struct {
	AccountID   int64            `json:"account_id"`
	EntryID     int64            `json:"entry_id"`
	Kind        models.EntryKind `json:"kind"`
	Game        models.GameKind  `json:"game"`
	OldBalance  int64            `json:"old_balance"`
	NewBalance  int64            `json:"new_balance"`
	Amount      int64            `json:"amount"`
	ReferenceID *uuid.UUID       `json:"reference_id,omitempty"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountOpenedEvent represents a new account
type AccountOpenedEvent struct {
	AccountID      int64  `json:"account_id"`
	Username       string `json:"username"`
	InitialBalance int64  `json:"initial_balance"`
}

func (e AccountOpenedEvent) Type() EventType {
	return EventTypeAccountOpened
}

// OutcomeForfeit marks a round closed without play
const OutcomeForfeit = "forfeit"

// GameSettledEvent is the outcome handed to hooks once a wager is final.
// Staked is everything reserved for the round, Won everything credited back.
type GameSettledEvent struct {
	AccountID   int64           `json:"account_id"`
	Game        models.GameKind `json:"game"`
	ReferenceID uuid.UUID       `json:"reference_id"`
	Outcome     string          `json:"outcome"`
	Staked      int64           `json:"staked"`
	Won         int64           `json:"won"`
	NewBalance  int64           `json:"new_balance"`
	Details     map[string]any  `json:"details,omitempty"`
}

func (e GameSettledEvent) Type() EventType {
	return EventTypeGameSettled
}

// Net is the round's result for the player
func (e GameSettledEvent) Net() int64 {
	return e.Won - e.Staked
}

// AchievementUnlockedEvent represents an achievement award
type AchievementUnlockedEvent struct {
	AccountID int64                  `json:"account_id"`
	Code      models.AchievementCode `json:"code"`
	Reward    int64                  `json:"reward"`
}

func (e AchievementUnlockedEvent) Type() EventType {
	return EventTypeAchievementUnlocked
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run on their
// own goroutines; a panicking handler is logged and does not affect others.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned. Handlers that
// emit further events extend the wait.
func (b *Bus) Wait() {
	b.inflight.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Queued event until commit")
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	if len(b.pending) == 0 {
		return
	}
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing committed events")

	// Handlers outlive the request that committed, so they get a fresh context
	eventCtx := context.Background()

	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
