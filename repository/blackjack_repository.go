package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"casino/database"
	"casino/games/blackjack"
	"casino/games/cards"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// BlackjackRepository implements the BlackjackRepository interface. Cards are
// stored as JSONB, including the undealt shoe so a round resumes exactly.
type BlackjackRepository struct {
	q queryable
}

// NewBlackjackRepository creates a new blackjack repository
func NewBlackjackRepository(db *database.DB) *BlackjackRepository {
	return &BlackjackRepository{q: db.Pool}
}

// newBlackjackRepositoryWithTx creates a new blackjack repository with a transaction
func newBlackjackRepositoryWithTx(tx queryable) *BlackjackRepository {
	return &BlackjackRepository{q: tx}
}

const blackjackColumns = `id, account_id, shoe, dealer_hand, player_hand, second_hand, wager, second_wager,
	first_ref, second_ref, game_over, player_stood, doubled_down, current_hand, dealer_value,
	message, results, created_at, updated_at`

// gameRow holds the JSON encoded parts of a game
type gameRow struct {
	shoe       []byte
	dealerHand []byte
	playerHand []byte
	secondHand []byte
	results    []byte
	secondRef  pgtype.UUID
}

func encodeGame(g *blackjack.Game) (*gameRow, error) {
	var row gameRow
	var err error

	if row.shoe, err = json.Marshal(g.Shoe); err != nil {
		return nil, fmt.Errorf("failed to marshal shoe: %w", err)
	}
	if row.dealerHand, err = json.Marshal(g.DealerHand); err != nil {
		return nil, fmt.Errorf("failed to marshal dealer hand: %w", err)
	}
	if row.playerHand, err = json.Marshal(g.PlayerHand); err != nil {
		return nil, fmt.Errorf("failed to marshal player hand: %w", err)
	}
	if g.SecondHand != nil {
		if row.secondHand, err = json.Marshal(g.SecondHand); err != nil {
			return nil, fmt.Errorf("failed to marshal second hand: %w", err)
		}
		row.secondRef = pgtype.UUID{Bytes: g.SecondRef, Valid: true}
	}
	if g.Results != nil {
		if row.results, err = json.Marshal(g.Results); err != nil {
			return nil, fmt.Errorf("failed to marshal results: %w", err)
		}
	}
	return &row, nil
}

func scanGame(row pgx.Row) (*blackjack.Game, error) {
	var g blackjack.Game
	var enc gameRow
	var firstRef pgtype.UUID

	err := row.Scan(
		&g.ID,
		&g.AccountID,
		&enc.shoe,
		&enc.dealerHand,
		&enc.playerHand,
		&enc.secondHand,
		&g.Wager,
		&g.SecondWager,
		&firstRef,
		&enc.secondRef,
		&g.GameOver,
		&g.PlayerStood,
		&g.DoubledDown,
		&g.CurrentHand,
		&g.DealerValue,
		&g.Message,
		&enc.results,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(enc.shoe, &g.Shoe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shoe: %w", err)
	}
	if err := json.Unmarshal(enc.dealerHand, &g.DealerHand); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dealer hand: %w", err)
	}
	if err := json.Unmarshal(enc.playerHand, &g.PlayerHand); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player hand: %w", err)
	}
	if len(enc.secondHand) > 0 {
		var second cards.Hand
		if err := json.Unmarshal(enc.secondHand, &second); err != nil {
			return nil, fmt.Errorf("failed to unmarshal second hand: %w", err)
		}
		g.SecondHand = &second
	}
	if len(enc.results) > 0 {
		if err := json.Unmarshal(enc.results, &g.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	g.FirstRef = uuid.UUID(firstRef.Bytes)
	if enc.secondRef.Valid {
		g.SecondRef = uuid.UUID(enc.secondRef.Bytes)
	}
	return &g, nil
}

// GetOpenByAccount returns the game that is still in play, if any
func (r *BlackjackRepository) GetOpenByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	query := `SELECT ` + blackjackColumns + `
		FROM blackjack_games
		WHERE account_id = $1 AND NOT game_over`

	game, err := scanGame(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open game for account %d: %w", accountID, err)
	}
	return game, nil
}

// GetLatestByAccount returns the most recently dealt game
func (r *BlackjackRepository) GetLatestByAccount(ctx context.Context, accountID int64) (*blackjack.Game, error) {
	query := `SELECT ` + blackjackColumns + `
		FROM blackjack_games
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT 1`

	game, err := scanGame(r.q.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest game for account %d: %w", accountID, err)
	}
	return game, nil
}

// Create inserts a new game
func (r *BlackjackRepository) Create(ctx context.Context, game *blackjack.Game) error {
	enc, err := encodeGame(game)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO blackjack_games
		(account_id, shoe, dealer_hand, player_hand, second_hand, wager, second_wager,
		 first_ref, second_ref, game_over, player_stood, doubled_down, current_hand,
		 dealer_value, message, results)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		game.AccountID,
		enc.shoe,
		enc.dealerHand,
		enc.playerHand,
		enc.secondHand,
		game.Wager,
		game.SecondWager,
		pgtype.UUID{Bytes: game.FirstRef, Valid: true},
		enc.secondRef,
		game.GameOver,
		game.PlayerStood,
		game.DoubledDown,
		game.CurrentHand,
		game.DealerValue,
		game.Message,
		enc.results,
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game for account %d: %w", game.AccountID, err)
	}
	return nil
}

// Update persists a game's current state
func (r *BlackjackRepository) Update(ctx context.Context, game *blackjack.Game) error {
	enc, err := encodeGame(game)
	if err != nil {
		return err
	}

	query := `
		UPDATE blackjack_games
		SET shoe = $1, dealer_hand = $2, player_hand = $3, second_hand = $4,
		    wager = $5, second_wager = $6, second_ref = $7, game_over = $8,
		    player_stood = $9, doubled_down = $10, current_hand = $11,
		    dealer_value = $12, message = $13, results = $14
		WHERE id = $15
		RETURNING updated_at
	`

	err = r.q.QueryRow(ctx, query,
		enc.shoe,
		enc.dealerHand,
		enc.playerHand,
		enc.secondHand,
		game.Wager,
		game.SecondWager,
		enc.secondRef,
		game.GameOver,
		game.PlayerStood,
		game.DoubledDown,
		game.CurrentHand,
		game.DealerValue,
		game.Message,
		enc.results,
		game.ID,
	).Scan(&game.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("game %d not found", game.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update game %d: %w", game.ID, err)
	}
	return nil
}
