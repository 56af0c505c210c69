package service

import (
	"context"
	"sync"
	"testing"

	"casino/events"
	"casino/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func codesOf(achievements []*models.Achievement) []models.AchievementCode {
	codes := make([]models.AchievementCode, 0, len(achievements))
	for _, a := range achievements {
		codes = append(codes, a.Code)
	}
	return codes
}

func TestAchievementService_Evaluate_AwardsNewAchievements(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	m.expectCommitted()

	m.accounts.On("GetForUpdate", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 100}, nil)
	m.achievements.On("ListByAccount", ctx, int64(1)).Return([]*models.Achievement{}, nil)
	m.ledger.On("GetAggregates", ctx, int64(1)).Return([]models.LedgerAggregate{
		{Kind: models.EntryKindBet, Game: models.GameSlots, Count: 10, Sum: -10},
		{Kind: models.EntryKindWin, Game: models.GameSlots, Count: 1, Sum: 50},
	}, nil)
	m.trackLedger(1, &models.LedgerEntry{ID: 30, AccountID: 1, Sequence: 21, BalanceAfter: 100, Hash: "h"})
	m.achievements.On("Unlock", ctx, mock.AnythingOfType("*models.Achievement")).Return(true, nil)

	svc := NewAchievementService(m.factory)
	awarded, err := svc.Evaluate(ctx, events.GameSettledEvent{AccountID: 1, Game: models.GameSlots, Staked: 1, Won: 50})
	require.NoError(t, err)

	assert.Equal(t, []models.AchievementCode{
		models.AchievementFirstSpin,
		models.AchievementFirstWin,
		models.AchievementTotalSpins10,
	}, codesOf(awarded))

	entries := m.appended()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, models.EntryKindBonus, e.Kind)
		assert.Equal(t, models.GameNone, e.Game)
		assert.Equal(t, e.ID, *awarded[i].LedgerEntry)
	}
	assert.Equal(t, int64(100+10+25+50), entries[2].BalanceAfter)

	var unlocked []models.AchievementCode
	for _, e := range m.publisher.Published() {
		if a, ok := e.(events.AchievementUnlockedEvent); ok {
			unlocked = append(unlocked, a.Code)
		}
	}
	assert.Equal(t, codesOf(awarded), unlocked)

	m.assertExpectations(t)
}

func TestAchievementService_Evaluate_SkipsHeldAchievements(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	m.expectRolledBack()

	m.accounts.On("GetForUpdate", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 100}, nil)
	m.achievements.On("ListByAccount", ctx, int64(1)).Return([]*models.Achievement{
		{Code: models.AchievementFirstSpin},
	}, nil)
	m.ledger.On("GetAggregates", ctx, int64(1)).Return([]models.LedgerAggregate{
		{Kind: models.EntryKindBet, Game: models.GameRoulette, Count: 2, Sum: -20},
	}, nil)

	awarded, err := NewAchievementService(m.factory).Evaluate(ctx, events.GameSettledEvent{AccountID: 1, Game: models.GameRoulette, Staked: 10})
	require.NoError(t, err)
	assert.Empty(t, awarded)

	m.uow.AssertNotCalled(t, "Commit")
	m.assertExpectations(t)
}

func TestAchievementService_Evaluate_HighRollerAndBigWin(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	m.expectCommitted()

	held := []*models.Achievement{
		{Code: models.AchievementFirstSpin},
		{Code: models.AchievementFirstWin},
	}
	m.accounts.On("GetForUpdate", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 3000}, nil)
	m.achievements.On("ListByAccount", ctx, int64(1)).Return(held, nil)
	m.ledger.On("GetAggregates", ctx, int64(1)).Return([]models.LedgerAggregate{
		{Kind: models.EntryKindBet, Game: models.GameBlackjack, Count: 1, Sum: -1000},
		{Kind: models.EntryKindWin, Game: models.GameBlackjack, Count: 1, Sum: 2000},
	}, nil)
	m.trackLedger(1, &models.LedgerEntry{ID: 1, AccountID: 1, Sequence: 3, BalanceAfter: 3000, Hash: "h"})
	m.achievements.On("Unlock", ctx, mock.AnythingOfType("*models.Achievement")).Return(true, nil)

	awarded, err := NewAchievementService(m.factory).Evaluate(ctx, events.GameSettledEvent{
		AccountID: 1, Game: models.GameBlackjack, Staked: 1000, Won: 2000,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.AchievementCode{
		models.AchievementBigWin100,
		models.AchievementBigWin500,
		models.AchievementNetProfit1000,
		models.AchievementHighRoller,
	}, codesOf(awarded))
}

func TestAchievementService_Evaluate_LostUnlockRaceRollsBack(t *testing.T) {
	ctx := context.Background()
	m := newTestMocks()
	m.expectRolledBack()

	m.accounts.On("GetForUpdate", ctx, int64(1)).Return(&models.Account{ID: 1, Balance: 100}, nil)
	m.achievements.On("ListByAccount", ctx, int64(1)).Return([]*models.Achievement{}, nil)
	m.ledger.On("GetAggregates", ctx, int64(1)).Return([]models.LedgerAggregate{}, nil)
	m.trackLedger(1, &models.LedgerEntry{ID: 1, AccountID: 1, Sequence: 1, BalanceAfter: 100, Hash: "h"})
	m.achievements.On("Unlock", ctx, mock.AnythingOfType("*models.Achievement")).Return(false, nil)

	awarded, err := NewAchievementService(m.factory).Evaluate(ctx, events.GameSettledEvent{AccountID: 1, Game: models.GameSlots})
	require.NoError(t, err)
	assert.Nil(t, awarded)
	m.uow.AssertNotCalled(t, "Commit")
}

type recordingAchievementService struct {
	mu      sync.Mutex
	settled []events.GameSettledEvent
}

func (r *recordingAchievementService) Evaluate(ctx context.Context, settled events.GameSettledEvent) ([]*models.Achievement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, settled)
	return nil, nil
}

func (r *recordingAchievementService) ListAchievements(ctx context.Context, accountID int64) ([]*models.Achievement, error) {
	return nil, nil
}

func TestSubscribeAchievements(t *testing.T) {
	bus := events.NewBus()
	svc := &recordingAchievementService{}
	SubscribeAchievements(bus, svc)

	bus.Emit(context.Background(), events.GameSettledEvent{AccountID: 3, Game: models.GameRoulette})
	bus.Emit(context.Background(), events.BalanceChangeEvent{AccountID: 3})
	bus.Emit(context.Background(), events.GameSettledEvent{AccountID: 3, Game: models.GameBlackjack, Outcome: events.OutcomeForfeit, Staked: 10})
	bus.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.settled, 1)
	assert.Equal(t, int64(3), svc.settled[0].AccountID)
}
