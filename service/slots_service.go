package service

import (
	"context"
	"fmt"

	"casino/config"
	"casino/events"
	"casino/games/randutil"
	"casino/games/slots"
	"casino/models"
)

type slotsService struct {
	uowFactory UnitOfWorkFactory
	rng        randutil.Source
}

// NewSlotsService creates a new slot machine service
func NewSlotsService(uowFactory UnitOfWorkFactory, rng randutil.Source) SlotsService {
	return &slotsService{
		uowFactory: uowFactory,
		rng:        rng,
	}
}

// Spin charges the configured stake and pays the fixed paytable amount on a win
func (s *slotsService) Spin(ctx context.Context, accountID int64) (*models.SlotResult, error) {
	stake := config.Get().SlotStake

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}

	entry, err := Reserve(ctx, uow, account, stake, models.GameSlots, "Slots spin", nil, nil)
	if err != nil {
		return nil, err
	}
	ref := *entry.ReferenceID

	spin := slots.Pull(s.rng)
	symbols := spin.Strings()
	stops := spin.Stops[:]
	segments := spin.Segments[:]

	if spin.Payout > 0 {
		metadata := map[string]any{
			"fruits":        symbols,
			"stop_segments": segments,
			"payout":        spin.Payout,
		}
		if _, err := Settle(ctx, uow, account, spin.Payout, models.EntryKindWin, models.GameSlots,
			fmt.Sprintf("Slots win: %s", symbols[0]), ref, metadata); err != nil {
			return nil, err
		}
	}

	outcome := "lose"
	if spin.Payout > 0 {
		outcome = "win"
	}
	uow.EventBus().Publish(events.GameSettledEvent{
		AccountID:   accountID,
		Game:        models.GameSlots,
		ReferenceID: ref,
		Outcome:     outcome,
		Staked:      stake,
		Won:         spin.Payout,
		NewBalance:  account.Balance,
		Details: map[string]any{
			"fruits":        symbols,
			"stop_segments": segments,
		},
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.SlotResult{
		Symbols:      symbols,
		Stops:        stops,
		StopSegments: segments,
		Stake:        stake,
		Payout:       spin.Payout,
		NewBalance:   account.Balance,
		ReferenceID:  ref,
	}, nil
}
