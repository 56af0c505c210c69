package service

import (
	"context"
	"fmt"
	"strings"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

func (s *ledgerService) OpenAccount(ctx context.Context, username string, initialBalance int64) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}
	if initialBalance < 0 {
		return nil, fmt.Errorf("initial balance cannot be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.AccountRepository().GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username %q is already taken", username)
	}

	account, err := uow.AccountRepository().Create(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if initialBalance > 0 {
		_, err := postEntry(ctx, uow, account, &models.LedgerEntry{
			Kind:        models.EntryKindAdjustment,
			Amount:      initialBalance,
			Game:        models.GameNone,
			Description: "Opening balance",
			Metadata:    map[string]any{"username": username},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to record opening balance: %w", err)
		}
	}

	uow.EventBus().Publish(events.AccountOpenedEvent{
		AccountID:      account.ID,
		Username:       account.Username,
		InitialBalance: initialBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"accountID":      account.ID,
		"username":       account.Username,
		"initialBalance": initialBalance,
	}).Info("Opened account")

	return account, nil
}

func (s *ledgerService) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrAccountNotFound, accountID)
	}
	return account, nil
}

func (s *ledgerService) Adjust(ctx context.Context, accountID int64, amount int64, description string) (*models.LedgerEntry, error) {
	if amount == 0 {
		return nil, fmt.Errorf("adjustment amount cannot be zero")
	}
	if description == "" {
		description = "Manual adjustment"
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance+amount < 0 {
		return nil, fmt.Errorf("%w: have %d, adjustment %d", models.ErrInsufficientFunds, account.Balance, amount)
	}

	entry, err := postEntry(ctx, uow, account, &models.LedgerEntry{
		Kind:        models.EntryKindAdjustment,
		Amount:      amount,
		Game:        models.GameNone,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

func (s *ledgerService) Reserve(ctx context.Context, accountID int64, amount int64, game models.GameKind, description string) (*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}

	entry, err := Reserve(ctx, uow, account, amount, game, description, nil, nil)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

func (s *ledgerService) Settle(ctx context.Context, accountID int64, amount int64, kind models.EntryKind, game models.GameKind, description string, referenceID uuid.UUID, metadata map[string]any) (*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}

	entry, err := Settle(ctx, uow, account, amount, kind, game, description, referenceID, metadata)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

func (s *ledgerService) GetStatistics(ctx context.Context, accountID int64) (*models.LedgerStatistics, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %d", models.ErrAccountNotFound, accountID)
	}

	aggregates, err := uow.LedgerRepository().GetAggregates(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	return models.BuildLedgerStatistics(accountID, aggregates), nil
}

func (s *ledgerService) History(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	if filter.AccountID == 0 {
		return nil, fmt.Errorf("account is required")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.LedgerRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// Verify replays the whole chain under the account lock so no settlement can
// land between reading the balance and reading the entries.
func (s *ledgerService) Verify(ctx context.Context, accountID int64) (*models.LedgerAudit, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}

	entries, err := uow.LedgerRepository().ListChain(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	audit := AuditChain(account, entries)
	if !audit.Valid {
		log.WithFields(log.Fields{
			"accountID": accountID,
			"problem":   audit.Problem,
		}).Warn("Ledger verification failed")
		return audit, fmt.Errorf("%w: %s", models.ErrLedgerInvariantViolation, audit.Problem)
	}
	return audit, nil
}

// AuditChain checks entries, given in sequence order, against each other and
// against the account balance. It stops at the first problem.
func AuditChain(account *models.Account, entries []*models.LedgerEntry) *models.LedgerAudit {
	audit := &models.LedgerAudit{
		AccountID:      account.ID,
		AccountBalance: account.Balance,
	}

	fail := func(format string, args ...any) *models.LedgerAudit {
		audit.Problem = fmt.Sprintf(format, args...)
		return audit
	}

	var prev *models.LedgerEntry
	for i, e := range entries {
		var wantBefore int64
		var wantPrevHash string
		if prev != nil {
			wantBefore = prev.BalanceAfter
			wantPrevHash = prev.Hash
		}

		switch {
		case e.AccountID != account.ID:
			return fail("entry %d belongs to account %d", e.ID, e.AccountID)
		case e.Sequence != int64(i+1):
			return fail("entry %d has sequence %d, expected %d", e.ID, e.Sequence, i+1)
		case e.BalanceAfter != e.BalanceBefore+e.Amount:
			return fail("entry %d: %d + %d != %d", e.ID, e.BalanceBefore, e.Amount, e.BalanceAfter)
		case e.BalanceAfter < 0:
			return fail("entry %d leaves a negative balance", e.ID)
		case e.BalanceBefore != wantBefore:
			return fail("entry %d starts at %d, previous entry ended at %d", e.ID, e.BalanceBefore, wantBefore)
		case e.PrevHash != wantPrevHash:
			return fail("entry %d does not link to the previous hash", e.ID)
		case e.ComputeHash() != e.Hash:
			return fail("entry %d hash does not match its contents", e.ID)
		}

		audit.EntriesChecked++
		audit.LedgerBalance = e.BalanceAfter
		audit.HeadHash = e.Hash
		prev = e
	}

	if audit.LedgerBalance != account.Balance {
		return fail("account balance %d does not match ledger balance %d", account.Balance, audit.LedgerBalance)
	}

	audit.Valid = true
	return audit
}
