package testutil

import (
	"context"
	"testing"

	"casino/database"
	"casino/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateTestAccount inserts an account with the given balance directly, bypassing the ledger
func CreateTestAccount(t *testing.T, db *database.DB, username string, balance int64) *models.Account {
	t.Helper()

	var account models.Account
	err := db.QueryRow(context.Background(), `
		INSERT INTO accounts (username, balance)
		VALUES ($1, $2)
		RETURNING id, username, balance, created_at, updated_at
	`, username, balance).Scan(&account.ID, &account.Username, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)
	return &account
}

// CreateTestLedgerEntry builds an entry chained after prev (nil for the first
// entry of an account) with its hash filled in
func CreateTestLedgerEntry(accountID int64, prev *models.LedgerEntry, kind models.EntryKind, amount int64, game models.GameKind) *models.LedgerEntry {
	ref := uuid.New()
	entry := &models.LedgerEntry{
		AccountID:   accountID,
		Sequence:    1,
		Kind:        kind,
		Amount:      amount,
		Game:        game,
		Description: string(kind),
		Metadata:    map[string]any{"test": true},
		ReferenceID: &ref,
	}
	if prev != nil {
		entry.Sequence = prev.Sequence + 1
		entry.BalanceBefore = prev.BalanceAfter
		entry.PrevHash = prev.Hash
	}
	entry.BalanceAfter = entry.BalanceBefore + amount
	entry.Hash = entry.ComputeHash()
	return entry
}
