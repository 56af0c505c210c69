package service

import (
	"context"
	"fmt"

	"casino/config"
	"casino/events"
	"casino/games/randutil"
	"casino/games/roulette"
	"casino/models"

	log "github.com/sirupsen/logrus"
)

type rouletteService struct {
	uowFactory UnitOfWorkFactory
	rng        randutil.Source
	history    SpinHistory
}

// NewRouletteService creates a new roulette service. history may be nil, in
// which case only the current spin is reported back.
func NewRouletteService(uowFactory UnitOfWorkFactory, rng randutil.Source, history SpinHistory) RouletteService {
	return &rouletteService{
		uowFactory: uowFactory,
		rng:        rng,
		history:    history,
	}
}

func (s *rouletteService) SettleBets(ctx context.Context, accountID int64, bets []roulette.Bet) (*models.RouletteResult, error) {
	totalBet, err := roulette.Validate(bets)
	if err != nil {
		return nil, err
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

	entry, err := Reserve(ctx, uow, account, totalBet, models.GameRoulette,
		fmt.Sprintf("Roulette: %d bet(s)", len(bets)), nil, map[string]any{"bets": len(bets)})
	if err != nil {
		return nil, err
	}
	ref := *entry.ReferenceID

	winning := roulette.Spin(s.rng)
	totalWin, winners := roulette.Evaluate(bets, winning)

	if totalWin > 0 {
		metadata := map[string]any{
			"winning_number": winning,
			"winning_bets":   winners,
		}
		if _, err := Settle(ctx, uow, account, totalWin, models.EntryKindWin, models.GameRoulette,
			fmt.Sprintf("Roulette win on %d", winning), ref, metadata); err != nil {
			return nil, err
		}
	}

	outcome := "lose"
	if totalWin > 0 {
		outcome = "win"
	}
	uow.EventBus().Publish(events.GameSettledEvent{
		AccountID:   accountID,
		Game:        models.GameRoulette,
		ReferenceID: ref,
		Outcome:     outcome,
		Staked:      totalBet,
		Won:         totalWin,
		NewBalance:  account.Balance,
		Details: map[string]any{
			"winning_number": winning,
			"winning_bets":   winners,
		},
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.RouletteResult{
		WinningNumber: winning,
		TotalBet:      totalBet,
		TotalWin:      totalWin,
		NewBalance:    account.Balance,
		WinningBets:   winners,
		PreviousSpins: s.recordSpin(ctx, accountID, winning),
		ReferenceID:   ref,
	}, nil
}

// recordSpin stores the winning number and returns the recent spins, newest
// first. History is a convenience: failures are logged and never undo a spin.
func (s *rouletteService) recordSpin(ctx context.Context, accountID int64, winning int) []int {
	if s.history == nil {
		return []int{winning}
	}

	if err := s.history.Push(ctx, accountID, winning); err != nil {
		log.WithError(err).WithField("accountID", accountID).Warn("Failed to record roulette spin")
		return []int{winning}
	}

	recent, err := s.history.Recent(ctx, accountID, config.Get().RouletteHistorySize)
	if err != nil {
		log.WithError(err).WithField("accountID", accountID).Warn("Failed to read roulette history")
		return []int{winning}
	}
	return recent
}
