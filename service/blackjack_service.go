package service

import (
	"context"
	"fmt"

	"casino/config"
	"casino/events"
	"casino/games/blackjack"
	"casino/games/cards"
	"casino/games/randutil"
	"casino/models"

	log "github.com/sirupsen/logrus"
)

type blackjackService struct {
	uowFactory UnitOfWorkFactory
	rng        randutil.Source
}

// NewBlackjackService creates a new blackjack service. Shoes are shuffled from rng.
func NewBlackjackService(uowFactory UnitOfWorkFactory, rng randutil.Source) BlackjackService {
	return &blackjackService{
		uowFactory: uowFactory,
		rng:        rng,
	}
}

func (s *blackjackService) StartGame(ctx context.Context, accountID int64, wager int64) (*blackjack.View, error) {
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", models.ErrInvalidWager)
	}
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}
	if account.Balance < wager {
		return nil, fmt.Errorf("%w: have %d, need %d", models.ErrInsufficientFunds, account.Balance, wager)
	}

	// Only one round may be open per account; a new deal closes the old one
	open, err := uow.BlackjackRepository().GetOpenByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to check open game: %w", err)
	}
	if open != nil {
		open.Forfeit()
		if err := uow.BlackjackRepository().Update(ctx, open); err != nil {
			return nil, fmt.Errorf("failed to close open game: %w", err)
		}
		uow.EventBus().Publish(events.GameSettledEvent{
			AccountID:   accountID,
			Game:        models.GameBlackjack,
			ReferenceID: open.FirstRef,
			Outcome:     events.OutcomeForfeit,
			Staked:      open.Wager + open.SecondWager,
			NewBalance:  account.Balance,
		})
		log.WithFields(log.Fields{
			"accountID": accountID,
			"gameID":    open.ID,
		}).Info("Forfeited open blackjack game for new deal")
	}

	entry, err := Reserve(ctx, uow, account, wager, models.GameBlackjack, "Blackjack wager", nil, nil)
	if err != nil {
		return nil, err
	}

	game, err := blackjack.Deal(accountID, cards.BuildShoe(cfg.BlackjackDecks, s.rng), wager, *entry.ReferenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to deal: %w", err)
	}
	if err := uow.BlackjackRepository().Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	view := game.View(cfg.RevealDealerHoleCard)
	view.Balance = account.Balance
	return view, nil
}

func (s *blackjackService) ApplyAction(ctx context.Context, accountID int64, action blackjack.Action) (*blackjack.View, error) {
	cfg := config.Get()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, accountID)
	if err != nil {
		return nil, err
	}

	game, err := uow.BlackjackRepository().GetOpenByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open game: %w", err)
	}
	if game == nil {
		return nil, models.ErrNoActiveGame
	}

	switch action {
	case blackjack.ActionHit:
		err = game.Hit()
	case blackjack.ActionStand:
		err = game.Stand()
	case blackjack.ActionDoubleDown:
		err = s.doubleDown(ctx, uow, account, game)
	case blackjack.ActionSplit:
		err = s.split(ctx, uow, account, game)
	default:
		err = fmt.Errorf("%w: %q", models.ErrInvalidAction, action)
	}
	if err != nil {
		return nil, err
	}

	if game.GameOver {
		if err := s.settle(ctx, uow, account, game); err != nil {
			return nil, err
		}
	}

	if err := uow.BlackjackRepository().Update(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	view := game.View(cfg.RevealDealerHoleCard)
	view.Balance = account.Balance
	return view, nil
}

func (s *blackjackService) GetGame(ctx context.Context, accountID int64) (*blackjack.View, error) {
	cfg := config.Get()

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

	game, err := uow.BlackjackRepository().GetLatestByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, models.ErrNoActiveGame
	}

	view := game.View(cfg.RevealDealerHoleCard)
	view.Balance = account.Balance
	return view, nil
}

// doubleDown reserves a second stake equal to the wager under the round's
// first reference before the card is drawn
func (s *blackjackService) doubleDown(ctx context.Context, uow UnitOfWork, account *models.Account, game *blackjack.Game) error {
	if err := game.CanDoubleDown(); err != nil {
		return err
	}
	if account.Balance < game.Wager {
		return fmt.Errorf("%w: have %d, need %d to double down", models.ErrInsufficientFunds, account.Balance, game.Wager)
	}

	ref := game.FirstRef
	metadata := map[string]any{"action": string(blackjack.ActionDoubleDown)}
	if _, err := Reserve(ctx, uow, account, game.Wager, models.GameBlackjack, "Blackjack double down", &ref, metadata); err != nil {
		return err
	}
	return game.DoubleDown()
}

// split stakes the second hand under a reference of its own
func (s *blackjackService) split(ctx context.Context, uow UnitOfWork, account *models.Account, game *blackjack.Game) error {
	if err := game.CanSplit(); err != nil {
		return err
	}
	if account.Balance < game.Wager {
		return fmt.Errorf("%w: have %d, need %d to split", models.ErrInsufficientFunds, account.Balance, game.Wager)
	}

	metadata := map[string]any{"action": string(blackjack.ActionSplit), "first_ref": game.FirstRef.String()}
	entry, err := Reserve(ctx, uow, account, game.Wager, models.GameBlackjack, "Blackjack split", nil, metadata)
	if err != nil {
		return err
	}
	return game.Split(*entry.ReferenceID)
}

// settle credits each hand's payout under that hand's reference and queues
// the settlement for hooks
func (s *blackjackService) settle(ctx context.Context, uow UnitOfWork, account *models.Account, game *blackjack.Game) error {
	var staked, won int64
	outcomes := make([]string, 0, len(game.Results))

	for _, r := range game.Results {
		staked += r.Wager
		won += r.Payout
		outcomes = append(outcomes, string(r.Outcome))

		if r.Payout == 0 {
			continue
		}
		kind := models.EntryKindWin
		description := fmt.Sprintf("Blackjack %s hand won", r.Hand)
		if r.Outcome == blackjack.OutcomeTie {
			kind = models.EntryKindRefund
			description = fmt.Sprintf("Blackjack %s hand pushed", r.Hand)
		}
		metadata := map[string]any{
			"hand":         string(r.Hand),
			"outcome":      string(r.Outcome),
			"player_value": r.Value,
			"dealer_value": game.DealerValue,
		}
		if _, err := Settle(ctx, uow, account, r.Payout, kind, models.GameBlackjack, description, r.ReferenceID, metadata); err != nil {
			return err
		}
	}

	outcome := outcomes[0]
	if len(outcomes) > 1 {
		outcome = fmt.Sprintf("%s/%s", outcomes[0], outcomes[1])
	}

	uow.EventBus().Publish(events.GameSettledEvent{
		AccountID:   account.ID,
		Game:        models.GameBlackjack,
		ReferenceID: game.FirstRef,
		Outcome:     outcome,
		Staked:      staked,
		Won:         won,
		NewBalance:  account.Balance,
		Details: map[string]any{
			"dealer_value": game.DealerValue,
			"message":      game.Message,
			"results":      game.Results,
		},
	})

	log.WithFields(log.Fields{
		"accountID": account.ID,
		"gameID":    game.ID,
		"outcome":   outcome,
		"staked":    staked,
		"won":       won,
	}).Info("Settled blackjack game")

	return nil
}
