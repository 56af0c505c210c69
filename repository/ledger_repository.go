package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"casino/database"
	"casino/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// LedgerRepository implements the LedgerRepository interface. It only ever
// inserts; the table rejects updates and deletes.
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

const ledgerColumns = `id, account_id, sequence, kind, amount, balance_before, balance_after,
	game, description, metadata, reference_id, prev_hash, hash, created_at`

func scanLedgerEntry(row pgx.Row) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var metadataJSON []byte
	var ref pgtype.UUID

	err := row.Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Sequence,
		&entry.Kind,
		&entry.Amount,
		&entry.BalanceBefore,
		&entry.BalanceAfter,
		&entry.Game,
		&entry.Description,
		&metadataJSON,
		&ref,
		&entry.PrevHash,
		&entry.Hash,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if ref.Valid {
		id := uuid.UUID(ref.Bytes)
		entry.ReferenceID = &id
	}
	return &entry, nil
}

func collectLedgerEntries(rows pgx.Rows) ([]*models.LedgerEntry, error) {
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Append inserts a new entry and fills in its ID and CreatedAt
func (r *LedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	var ref pgtype.UUID
	if entry.ReferenceID != nil {
		ref = pgtype.UUID{Bytes: *entry.ReferenceID, Valid: true}
	}

	query := `
		INSERT INTO ledger_entries
		(account_id, sequence, kind, amount, balance_before, balance_after, game,
		 description, metadata, reference_id, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.Sequence,
		entry.Kind,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.Game,
		entry.Description,
		metadataJSON,
		ref,
		entry.PrevHash,
		entry.Hash,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for account %d: %w", entry.AccountID, err)
	}
	return nil
}

// GetLatest returns the account's entry with the highest sequence
func (r *LedgerRepository) GetLatest(ctx context.Context, accountID int64) (*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY sequence DESC
		LIMIT 1`

	entry, err := scanLedgerEntry(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest ledger entry for account %d: %w", accountID, err)
	}
	return entry, nil
}

// List returns entries matching the filter, newest first
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]*models.LedgerEntry, error) {
	var conditions []string
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.AccountID != 0 {
		add("account_id = $%d", filter.AccountID)
	}
	if filter.Game != "" {
		add("game = $%d", filter.Game)
	}
	if filter.Kind != "" {
		add("kind = $%d", filter.Kind)
	}
	if filter.ReferenceID != nil {
		add("reference_id = $%d", pgtype.UUID{Bytes: *filter.ReferenceID, Valid: true})
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return collectLedgerEntries(rows)
}

// ListChain returns every entry for an account in sequence order
func (r *LedgerRepository) ListChain(ctx context.Context, accountID int64) ([]*models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY sequence ASC`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger for account %d: %w", accountID, err)
	}
	return collectLedgerEntries(rows)
}

// GetAggregates returns count and sum per kind and game
func (r *LedgerRepository) GetAggregates(ctx context.Context, accountID int64) ([]models.LedgerAggregate, error) {
	query := `
		SELECT kind, game, COUNT(*), COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
		GROUP BY kind, game
		ORDER BY kind, game
	`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var aggregates []models.LedgerAggregate
	for rows.Next() {
		var agg models.LedgerAggregate
		if err := rows.Scan(&agg.Kind, &agg.Game, &agg.Count, &agg.Sum); err != nil {
			return nil, fmt.Errorf("failed to scan ledger aggregate: %w", err)
		}
		aggregates = append(aggregates, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger aggregates: %w", err)
	}
	return aggregates, nil
}
