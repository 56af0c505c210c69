package repository

import (
	"context"
	"testing"

	"casino/models"
	"casino/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		account, err := repo.Create(ctx, "alice")
		require.NoError(t, err)
		assert.NotZero(t, account.ID)
		assert.Zero(t, account.Balance)

		byID, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Username)

		byName, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byName.ID)
	})

	t.Run("missing account is nil", func(t *testing.T) {
		account, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)

		account, err = repo.GetForUpdate(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := repo.Create(ctx, "dup")
		require.NoError(t, err)
		_, err = repo.Create(ctx, "dup")
		assert.Error(t, err)
	})

	t.Run("balance cannot go negative", func(t *testing.T) {
		account := testutil.CreateTestAccount(t, testDB.DB, "bob", 10)
		err := repo.UpdateBalance(ctx, account.ID, -1)
		assert.Error(t, err)

		err = repo.UpdateBalance(ctx, account.ID, 25)
		require.NoError(t, err)
		updated, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), updated.Balance)
	})

	t.Run("update unknown account", func(t *testing.T) {
		err := repo.UpdateBalance(ctx, 999999, 1)
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestLedgerRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewLedgerRepository(testDB.DB)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, testDB.DB, "ledger", 0)

	first := testutil.CreateTestLedgerEntry(account.ID, nil, models.EntryKindAdjustment, 100, models.GameNone)
	require.NoError(t, repo.Append(ctx, first))
	second := testutil.CreateTestLedgerEntry(account.ID, first, models.EntryKindBet, -10, models.GameSlots)
	require.NoError(t, repo.Append(ctx, second))
	third := testutil.CreateTestLedgerEntry(account.ID, second, models.EntryKindWin, 50, models.GameSlots)
	third.ReferenceID = second.ReferenceID
	third.Hash = third.ComputeHash()
	require.NoError(t, repo.Append(ctx, third))

	t.Run("append fills id and timestamp", func(t *testing.T) {
		assert.NotZero(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())
	})

	t.Run("latest", func(t *testing.T) {
		latest, err := repo.GetLatest(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, third.ID, latest.ID)
		assert.Equal(t, int64(140), latest.BalanceAfter)
		assert.Equal(t, third.Hash, latest.Hash)
		assert.Equal(t, *third.ReferenceID, *latest.ReferenceID)
		assert.Equal(t, true, latest.Metadata["test"])

		none, err := repo.GetLatest(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("chain round trips hashes", func(t *testing.T) {
		chain, err := repo.ListChain(ctx, account.ID)
		require.NoError(t, err)
		require.Len(t, chain, 3)
		for i, e := range chain {
			assert.Equal(t, int64(i+1), e.Sequence)
			assert.Equal(t, e.Hash, e.ComputeHash(), "entry %d", e.Sequence)
		}
		assert.Equal(t, "", chain[0].PrevHash)
		assert.Equal(t, chain[1].Hash, chain[2].PrevHash)
	})

	t.Run("list filters newest first", func(t *testing.T) {
		all, err := repo.List(ctx, models.LedgerFilter{AccountID: account.ID})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, third.ID, all[0].ID)

		slots, err := repo.List(ctx, models.LedgerFilter{AccountID: account.ID, Game: models.GameSlots})
		require.NoError(t, err)
		assert.Len(t, slots, 2)

		bets, err := repo.List(ctx, models.LedgerFilter{AccountID: account.ID, Kind: models.EntryKindBet})
		require.NoError(t, err)
		require.Len(t, bets, 1)
		assert.Equal(t, second.ID, bets[0].ID)

		byRef, err := repo.List(ctx, models.LedgerFilter{AccountID: account.ID, ReferenceID: second.ReferenceID})
		require.NoError(t, err)
		assert.Len(t, byRef, 2)

		page, err := repo.List(ctx, models.LedgerFilter{AccountID: account.ID, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, second.ID, page[0].ID)
	})

	t.Run("aggregates", func(t *testing.T) {
		aggregates, err := repo.GetAggregates(ctx, account.ID)
		require.NoError(t, err)

		stats := models.BuildLedgerStatistics(account.ID, aggregates)
		assert.Equal(t, int64(3), stats.EntryCount)
		assert.Equal(t, int64(10), stats.TotalBetsAmount)
		assert.Equal(t, int64(50), stats.TotalWinsAmount)
		assert.Equal(t, int64(100), stats.TotalAdjusted)
		assert.Equal(t, int64(40), stats.NetProfit)
	})

	t.Run("duplicate sequence rejected", func(t *testing.T) {
		dup := testutil.CreateTestLedgerEntry(account.ID, second, models.EntryKindWin, 1, models.GameSlots)
		assert.Error(t, repo.Append(ctx, dup))
	})

	t.Run("balance equation enforced", func(t *testing.T) {
		bad := testutil.CreateTestLedgerEntry(account.ID, third, models.EntryKindWin, 5, models.GameSlots)
		bad.BalanceAfter = bad.BalanceBefore + 6
		assert.Error(t, repo.Append(ctx, bad))
	})

	t.Run("entries are append-only", func(t *testing.T) {
		_, err := testDB.DB.Exec(ctx, `UPDATE ledger_entries SET amount = 0 WHERE id = $1`, first.ID)
		assert.ErrorContains(t, err, "append-only")

		_, err = testDB.DB.Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, first.ID)
		assert.ErrorContains(t, err, "append-only")
	})
}
