package repository

import (
	"context"
	"errors"
	"fmt"

	"casino/database"
	"casino/models"

	"github.com/jackc/pgx/v5"
)

// AchievementRepository implements the AchievementRepository interface
type AchievementRepository struct {
	q queryable
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.DB) *AchievementRepository {
	return &AchievementRepository{q: db.Pool}
}

// newAchievementRepositoryWithTx creates a new achievement repository with a transaction
func newAchievementRepositoryWithTx(tx queryable) *AchievementRepository {
	return &AchievementRepository{q: tx}
}

// ListByAccount returns the account's achievements in unlock order
func (r *AchievementRepository) ListByAccount(ctx context.Context, accountID int64) ([]*models.Achievement, error) {
	query := `
		SELECT id, account_id, code, reward, ledger_entry_id, unlocked_at
		FROM account_achievements
		WHERE account_id = $1
		ORDER BY unlocked_at, id
	`

	rows, err := r.q.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Code, &a.Reward, &a.LedgerEntry, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}
	return achievements, nil
}

// Unlock records an achievement. The unique (account_id, code) key makes a
// second unlock a no-op that reports false.
func (r *AchievementRepository) Unlock(ctx context.Context, achievement *models.Achievement) (bool, error) {
	query := `
		INSERT INTO account_achievements (account_id, code, reward, ledger_entry_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, code) DO NOTHING
		RETURNING id, unlocked_at
	`

	err := r.q.QueryRow(ctx, query,
		achievement.AccountID,
		achievement.Code,
		achievement.Reward,
		achievement.LedgerEntry,
	).Scan(&achievement.ID, &achievement.UnlockedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to unlock %s for account %d: %w", achievement.Code, achievement.AccountID, err)
	}
	return true, nil
}
