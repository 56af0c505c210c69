package events

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"casino/models"

	"github.com/stretchr/testify/assert"
)

// TestEventDeliveryIntegration tests the complete event flow from TransactionalBus to main Bus
func TestEventDeliveryIntegration(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	eventReceived := make(chan BalanceChangeEvent, 1)
	var wg sync.WaitGroup
	wg.Add(1)

	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		if balanceEvent, ok := event.(BalanceChangeEvent); ok {
			eventReceived <- balanceEvent
		} else {
			t.Errorf("Expected BalanceChangeEvent, got %T", event)
		}
	})

	testEvent := BalanceChangeEvent{
		AccountID:  123456,
		Kind:       models.EntryKindWin,
		Game:       models.GameSlots,
		OldBalance: 1000,
		NewBalance: 1050,
		Amount:     50,
	}

	transactionalBus.Publish(testEvent)
	assert.Equal(t, 1, transactionalBus.Pending())

	transactionalBus.Flush(context.Background())
	assert.Equal(t, 0, transactionalBus.Pending())
	wg.Wait()

	select {
	case received := <-eventReceived:
		assert.Equal(t, testEvent, received)
	case <-time.After(2 * time.Second):
		t.Fatal("Event was not received within timeout")
	}
}

// TestMultipleEventsDelivery tests delivering multiple events in sequence
func TestMultipleEventsDelivery(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	received := make(map[int64]bool)

	mainBus.Subscribe(EventTypeGameSettled, func(ctx context.Context, event Event) {
		settled := event.(GameSettledEvent)
		mu.Lock()
		received[settled.AccountID] = true
		mu.Unlock()
	})

	for _, id := range []int64{1, 2, 3} {
		transactionalBus.Publish(GameSettledEvent{AccountID: id, Game: models.GameRoulette, Staked: 10})
	}
	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 3)
	assert.True(t, received[1])
	assert.True(t, received[2])
	assert.True(t, received[3])
}

// TestTransactionalBusDiscard tests that discarded events are not delivered
func TestTransactionalBusDiscard(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var delivered atomic.Int32
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		delivered.Add(1)
	})

	transactionalBus.Publish(BalanceChangeEvent{AccountID: 1, Amount: -10})
	transactionalBus.Discard()
	transactionalBus.Flush(context.Background())
	mainBus.Wait()

	assert.Zero(t, delivered.Load())
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewBus()

	var delivered atomic.Int32
	bus.Subscribe(EventTypeGameSettled, func(ctx context.Context, event Event) {
		panic("hook failure")
	})
	bus.Subscribe(EventTypeGameSettled, func(ctx context.Context, event Event) {
		delivered.Add(1)
	})

	bus.Emit(context.Background(), GameSettledEvent{AccountID: 9})
	bus.Wait()

	assert.Equal(t, int32(1), delivered.Load())
}

func TestGameSettledEvent_Net(t *testing.T) {
	assert.Equal(t, int64(50), GameSettledEvent{Staked: 50, Won: 100}.Net())
	assert.Equal(t, int64(-10), GameSettledEvent{Staked: 10}.Net())
}
