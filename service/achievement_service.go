package service

import (
	"context"
	"fmt"

	"casino/events"
	"casino/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// achievementRule is one achievement and the condition that unlocks it
type achievementRule struct {
	Code   models.AchievementCode
	Reward int64
	Check  func(settled events.GameSettledEvent, stats *models.LedgerStatistics) bool
}

func spinCount(stats *models.LedgerStatistics) int64 {
	var n int64
	for _, game := range []models.GameKind{models.GameSlots, models.GameRoulette} {
		if g := stats.ByGame[game]; g != nil {
			n += g.Bets.Count
		}
	}
	return n
}

func gameWins(stats *models.LedgerStatistics, game models.GameKind) int64 {
	if g := stats.ByGame[game]; g != nil {
		return g.Wins.Count
	}
	return 0
}

var achievementRules = []achievementRule{
	{models.AchievementFirstSpin, 10, func(events.GameSettledEvent, *models.LedgerStatistics) bool { return true }},
	{models.AchievementFirstWin, 25, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return s.TotalWinsCount > 0 }},
	{models.AchievementTotalSpins10, 50, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return spinCount(s) >= 10 }},
	{models.AchievementTotalSpins100, 200, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return spinCount(s) >= 100 }},
	{models.AchievementTotalSpins1000, 1000, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return spinCount(s) >= 1000 }},
	{models.AchievementBigWin100, 100, func(e events.GameSettledEvent, _ *models.LedgerStatistics) bool { return e.Won >= 100 }},
	{models.AchievementBigWin500, 500, func(e events.GameSettledEvent, _ *models.LedgerStatistics) bool { return e.Won >= 500 }},
	{models.AchievementNetProfit1000, 250, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return s.NetProfit >= 1000 }},
	{models.AchievementNetProfit5000, 1000, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool { return s.NetProfit >= 5000 }},
	{models.AchievementBlackjackMaster, 200, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool {
		return gameWins(s, models.GameBlackjack) >= 10
	}},
	{models.AchievementRouletteMaster, 200, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool {
		return gameWins(s, models.GameRoulette) >= 10
	}},
	{models.AchievementSlotsMaster, 200, func(_ events.GameSettledEvent, s *models.LedgerStatistics) bool {
		return gameWins(s, models.GameSlots) >= 10
	}},
	{models.AchievementHighRoller, 500, func(e events.GameSettledEvent, _ *models.LedgerStatistics) bool { return e.Staked >= 1000 }},
}

type achievementService struct {
	uowFactory UnitOfWorkFactory
}

// NewAchievementService creates a new achievement service
func NewAchievementService(uowFactory UnitOfWorkFactory) AchievementService {
	return &achievementService{
		uowFactory: uowFactory,
	}
}

// SubscribeAchievements evaluates achievements after every committed settlement.
// Forfeited rounds were never played and earn nothing.
func SubscribeAchievements(bus *events.Bus, svc AchievementService) {
	bus.Subscribe(events.EventTypeGameSettled, func(ctx context.Context, event events.Event) {
		settled, ok := event.(events.GameSettledEvent)
		if !ok || settled.Outcome == events.OutcomeForfeit {
			return
		}
		if _, err := svc.Evaluate(ctx, settled); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"accountID": settled.AccountID,
				"game":      settled.Game,
			}).Error("Failed to evaluate achievements")
		}
	})
}

// Evaluate unlocks every rule the settlement satisfies that the account does
// not already hold. Rewards are posted as BONUS entries in one unit of work.
func (s *achievementService) Evaluate(ctx context.Context, settled events.GameSettledEvent) ([]*models.Achievement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := lockAccount(ctx, uow, settled.AccountID)
	if err != nil {
		return nil, err
	}

	unlocked, err := uow.AchievementRepository().ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	held := make(map[models.AchievementCode]bool, len(unlocked))
	for _, a := range unlocked {
		held[a.Code] = true
	}
	if len(held) == len(achievementRules) {
		return nil, nil
	}

	aggregates, err := uow.LedgerRepository().GetAggregates(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	stats := models.BuildLedgerStatistics(account.ID, aggregates)

	var awarded []*models.Achievement
	for _, rule := range achievementRules {
		if held[rule.Code] || !rule.Check(settled, stats) {
			continue
		}

		entry, err := Settle(ctx, uow, account, rule.Reward, models.EntryKindBonus, models.GameNone,
			fmt.Sprintf("Achievement unlocked: %s", rule.Code), uuid.New(),
			map[string]any{"achievement": string(rule.Code)})
		if err != nil {
			return nil, fmt.Errorf("failed to credit achievement reward: %w", err)
		}

		achievement := &models.Achievement{
			AccountID:   account.ID,
			Code:        rule.Code,
			Reward:      rule.Reward,
			LedgerEntry: &entry.ID,
		}
		created, err := uow.AchievementRepository().Unlock(ctx, achievement)
		if err != nil {
			return nil, fmt.Errorf("failed to unlock achievement: %w", err)
		}
		if !created {
			// Someone else got there first; drop the whole batch with its rewards
			log.WithFields(log.Fields{
				"accountID": account.ID,
				"code":      rule.Code,
			}).Debug("Achievement already unlocked")
			return nil, nil
		}

		uow.EventBus().Publish(events.AchievementUnlockedEvent{
			AccountID: account.ID,
			Code:      rule.Code,
			Reward:    rule.Reward,
		})
		awarded = append(awarded, achievement)
	}

	if len(awarded) == 0 {
		return nil, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, a := range awarded {
		log.WithFields(log.Fields{
			"accountID": a.AccountID,
			"code":      a.Code,
			"reward":    a.Reward,
		}).Info("Achievement unlocked")
	}
	return awarded, nil
}

func (s *achievementService) ListAchievements(ctx context.Context, accountID int64) ([]*models.Achievement, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	achievements, err := uow.AchievementRepository().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}
