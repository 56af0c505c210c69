package repository

import (
	"context"
	"errors"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `id, username, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %q: %w", username, err)
	}
	return account, nil
}

// GetForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}
	return account, nil
}

// Create creates a new account with a zero balance
func (r *AccountRepository) Create(ctx context.Context, username string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (username, balance)
		VALUES ($1, 0)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %q: %w", username, err)
	}
	return account, nil
}

// UpdateBalance sets an account's balance
func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance for account %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", models.ErrAccountNotFound, id)
	}
	return nil
}
