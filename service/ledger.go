package service

import (
	"context"
	"fmt"
	"math"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
)

// lockAccount loads an account and holds its lock for the rest of the unit of work
func lockAccount(ctx context.Context, uow UnitOfWork, accountID int64) (*models.Account, error) {
	account, err := uow.AccountRepository().GetForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrAccountNotFound, accountID)
	}
	return account, nil
}

// Reserve debits a stake from a locked account as a BET entry. A nil ref
// starts a new reference; passing one links the stake to an existing round.
// The account's Balance is updated in place.
func Reserve(ctx context.Context, uow UnitOfWork, account *models.Account, amount int64, game models.GameKind, description string, ref *uuid.UUID, metadata map[string]any) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive", models.ErrInvalidWager)
	}
	if account.Balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, account.Balance, amount)
	}
	if ref == nil {
		id := uuid.New()
		ref = &id
	}

	return postEntry(ctx, uow, account, &models.LedgerEntry{
		Kind:        models.EntryKindBet,
		Amount:      -amount,
		Game:        game,
		Description: description,
		Metadata:    metadata,
		ReferenceID: ref,
	})
}

// Settle credits or debits a locked account for a round that was reserved
// under ref. A BET settle is an extra stake on that round and must be
// negative. Settling never takes the balance below zero.
func Settle(ctx context.Context, uow UnitOfWork, account *models.Account, amount int64, kind models.EntryKind, game models.GameKind, description string, ref uuid.UUID, metadata map[string]any) (*models.LedgerEntry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: cannot settle with kind %q", models.ErrLedgerInvariantViolation, kind)
	}
	if kind == models.EntryKindBet {
		if amount >= 0 {
			return nil, fmt.Errorf("%w: a BET settle must debit", models.ErrInvalidWager)
		}
		if account.Balance+amount < 0 {
			return nil, fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, account.Balance, -amount)
		}
	}
	return postEntry(ctx, uow, account, &models.LedgerEntry{
		Kind:        kind,
		Amount:      amount,
		Game:        game,
		Description: description,
		Metadata:    metadata,
		ReferenceID: &ref,
	})
}

// postEntry is the single path by which balances change. It chains the entry
// onto the account's latest one, writes the entry and the new balance, and
// queues a balance change event for after commit.
func postEntry(ctx context.Context, uow UnitOfWork, account *models.Account, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	if !entry.Game.Valid() {
		return nil, fmt.Errorf("%w: unknown game %q", models.ErrLedgerInvariantViolation, entry.Game)
	}
	if entry.Amount > 0 && account.Balance > math.MaxInt64-entry.Amount {
		return nil, fmt.Errorf("%w: balance overflow", models.ErrLedgerInvariantViolation)
	}
	if account.Balance+entry.Amount < 0 {
		return nil, fmt.Errorf("%w: balance would become %d", models.ErrLedgerInvariantViolation, account.Balance+entry.Amount)
	}

	latest, err := uow.LedgerRepository().GetLatest(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest ledger entry: %w", err)
	}

	var sequence int64 = 1
	var prevHash string
	var ledgerBalance int64
	if latest != nil {
		sequence = latest.Sequence + 1
		prevHash = latest.Hash
		ledgerBalance = latest.BalanceAfter
	}
	if ledgerBalance != account.Balance {
		return nil, fmt.Errorf("%w: account %d balance %d does not match ledger %d",
			models.ErrLedgerInvariantViolation, account.ID, account.Balance, ledgerBalance)
	}

	entry.AccountID = account.ID
	entry.Sequence = sequence
	entry.BalanceBefore = account.Balance
	entry.BalanceAfter = account.Balance + entry.Amount
	entry.PrevHash = prevHash
	entry.Hash = entry.ComputeHash()

	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := uow.AccountRepository().UpdateBalance(ctx, account.ID, entry.BalanceAfter); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	account.Balance = entry.BalanceAfter

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:   account.ID,
		EntryID:     entry.ID,
		Kind:        entry.Kind,
		Game:        entry.Game,
		OldBalance:  entry.BalanceBefore,
		NewBalance:  entry.BalanceAfter,
		Amount:      entry.Amount,
		ReferenceID: entry.ReferenceID,
	})

	return entry, nil
}
