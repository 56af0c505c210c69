package memstore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"casino/events"
	"casino/games/blackjack"
	"casino/games/cards"
	"casino/models"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryAfter(prev *models.LedgerEntry, accountID int64, amount int64) *models.LedgerEntry {
	e := &models.LedgerEntry{
		AccountID: accountID,
		Sequence:  1,
		Kind:      models.EntryKindAdjustment,
		Amount:    amount,
		Game:      models.GameNone,
	}
	if prev != nil {
		e.Sequence = prev.Sequence + 1
		e.BalanceBefore = prev.BalanceAfter
		e.PrevHash = prev.Hash
	}
	e.BalanceAfter = e.BalanceBefore + amount
	e.Hash = e.ComputeHash()
	return e
}

func TestUnitOfWork_StagesUntilCommit(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	bus := events.NewBus()
	factory := NewFactory(bus, clock)

	var flushed atomic.Int32
	bus.Subscribe(events.EventTypeAccountOpened, func(ctx context.Context, e events.Event) {
		flushed.Add(1)
	})

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	account, err := uow.AccountRepository().Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, uow.AccountRepository().UpdateBalance(ctx, account.ID, 40))
	require.NoError(t, uow.LedgerRepository().Append(ctx, entryAfter(nil, account.ID, 40)))
	uow.EventBus().Publish(events.AccountOpenedEvent{AccountID: account.ID})

	// Own writes are visible inside the unit of work
	seen, err := uow.AccountRepository().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(40), seen.Balance)

	// but not outside it
	other := factory.Create()
	require.NoError(t, other.Begin(ctx))
	missing, err := other.AccountRepository().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
	require.NoError(t, other.Rollback())

	require.NoError(t, uow.Commit())
	bus.Wait()
	assert.Equal(t, int32(1), flushed.Load())

	reader := factory.Create()
	require.NoError(t, reader.Begin(ctx))
	defer reader.Rollback()
	committed, err := reader.AccountRepository().GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, committed)
	assert.Equal(t, int64(40), committed.Balance)

	latest, err := reader.LedgerRepository().GetLatest(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, clock.Now(), latest.CreatedAt)
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	ctx := context.Background()
	bus := events.NewBus()
	factory := NewFactory(bus, quartz.NewMock(t))

	var flushed atomic.Int32
	bus.Subscribe(events.EventTypeAccountOpened, func(ctx context.Context, e events.Event) {
		flushed.Add(1)
	})

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	account, err := uow.AccountRepository().Create(ctx, "ghost")
	require.NoError(t, err)
	uow.EventBus().Publish(events.AccountOpenedEvent{AccountID: account.ID})
	require.NoError(t, uow.Rollback())
	bus.Wait()

	assert.Zero(t, flushed.Load())

	again := factory.Create()
	require.NoError(t, again.Begin(ctx))
	defer again.Rollback()
	found, err := again.AccountRepository().GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, found)

	// the lock taken by Create was released
	locked, err := again.AccountRepository().GetForUpdate(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, locked)
}

func TestUnitOfWork_RepositoriesRequireBegin(t *testing.T) {
	uow := NewFactory(events.NewBus(), quartz.NewMock(t)).Create()
	assert.Panics(t, func() { uow.AccountRepository() })
	assert.Panics(t, func() { uow.AchievementRepository() })
	assert.Error(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}

func TestGetForUpdate_BlocksSecondWriter(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(events.NewBus(), quartz.NewMock(t))

	setup := factory.Create()
	require.NoError(t, setup.Begin(ctx))
	account, err := setup.AccountRepository().Create(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, setup.Commit())

	first := factory.Create()
	require.NoError(t, first.Begin(ctx))
	_, err = first.AccountRepository().GetForUpdate(ctx, account.ID)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	second := factory.Create()
	require.NoError(t, second.Begin(waitCtx))
	_, err = second.AccountRepository().GetForUpdate(waitCtx, account.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, second.Rollback())

	require.NoError(t, first.Rollback())

	third := factory.Create()
	require.NoError(t, third.Begin(ctx))
	defer third.Rollback()
	locked, err := third.AccountRepository().GetForUpdate(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", locked.Username)
}

func TestLedgerRepository_Rules(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	factory := NewFactory(events.NewBus(), clock)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	account, err := uow.AccountRepository().Create(ctx, "carol")
	require.NoError(t, err)
	ledger := uow.LedgerRepository()

	first := entryAfter(nil, account.ID, 100)
	require.NoError(t, ledger.Append(ctx, first))
	clock.Advance(time.Second).MustWait(ctx)

	second := entryAfter(first, account.ID, -30)
	second.Kind = models.EntryKindBet
	second.Game = models.GameRoulette
	require.NoError(t, ledger.Append(ctx, second))

	t.Run("sequence gap rejected", func(t *testing.T) {
		gap := entryAfter(second, account.ID, 5)
		gap.Sequence = 5
		assert.Error(t, ledger.Append(ctx, gap))
	})

	t.Run("balance equation rejected", func(t *testing.T) {
		bad := entryAfter(second, account.ID, 5)
		bad.BalanceAfter++
		assert.Error(t, ledger.Append(ctx, bad))
	})

	t.Run("list newest first with filters", func(t *testing.T) {
		all, err := ledger.List(ctx, models.LedgerFilter{AccountID: account.ID})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
		assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

		bets, err := ledger.List(ctx, models.LedgerFilter{AccountID: account.ID, Game: models.GameRoulette})
		require.NoError(t, err)
		assert.Len(t, bets, 1)

		paged, err := ledger.List(ctx, models.LedgerFilter{AccountID: account.ID, Offset: 5})
		require.NoError(t, err)
		assert.Empty(t, paged)
	})

	t.Run("aggregates", func(t *testing.T) {
		aggregates, err := ledger.GetAggregates(ctx, account.ID)
		require.NoError(t, err)
		stats := models.BuildLedgerStatistics(account.ID, aggregates)
		assert.Equal(t, int64(30), stats.TotalBetsAmount)
		assert.Equal(t, int64(100), stats.TotalAdjusted)
	})

	t.Run("returned entries are copies", func(t *testing.T) {
		latest, err := ledger.GetLatest(ctx, account.ID)
		require.NoError(t, err)
		latest.Amount = 999

		again, err := ledger.GetLatest(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(-30), again.Amount)
	})
}

func TestBlackjackRepository_OneOpenGame(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(events.NewBus(), quartz.NewMock(t))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	account, err := uow.AccountRepository().Create(ctx, "dave")
	require.NoError(t, err)

	shoe := cards.StackedShoe(
		cards.MustCard("10", cards.Hearts), cards.MustCard("9", cards.Spades),
		cards.MustCard("7", cards.Clubs), cards.MustCard("8", cards.Diamonds),
	)
	game, err := blackjack.Deal(account.ID, shoe, 10, uuid.New())
	require.NoError(t, err)
	require.NoError(t, uow.BlackjackRepository().Create(ctx, game))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	repo := uow.BlackjackRepository()

	duplicate, err := blackjack.Deal(account.ID, cards.StackedShoe(
		cards.MustCard("2", cards.Hearts), cards.MustCard("3", cards.Spades),
		cards.MustCard("4", cards.Clubs), cards.MustCard("5", cards.Diamonds),
	), 10, uuid.New())
	require.NoError(t, err)
	assert.Error(t, repo.Create(ctx, duplicate))

	open, err := repo.GetOpenByAccount(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, game.PlayerHand, open.PlayerHand)

	open.Forfeit()
	require.NoError(t, repo.Update(ctx, open))

	none, err := repo.GetOpenByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	latest, err := repo.GetLatestByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, latest.GameOver)
}

func TestAchievementRepository_UnlockOnce(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(events.NewBus(), quartz.NewMock(t))

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	account, err := uow.AccountRepository().Create(ctx, "erin")
	require.NoError(t, err)

	repo := uow.AchievementRepository()
	created, err := repo.Unlock(ctx, &models.Achievement{AccountID: account.ID, Code: models.AchievementFirstWin, Reward: 25})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Unlock(ctx, &models.Achievement{AccountID: account.ID, Code: models.AchievementFirstWin, Reward: 25})
	require.NoError(t, err)
	assert.False(t, created)

	list, err := repo.ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSpinHistory(t *testing.T) {
	ctx := context.Background()
	history := NewSpinHistory(3)

	for _, n := range []int{1, 2, 3, 4} {
		require.NoError(t, history.Push(ctx, 7, n))
	}

	recent, err := history.Recent(ctx, 7, 10)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2}, recent)

	recent, err = history.Recent(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, recent)

	empty, err := history.Recent(ctx, 8, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
