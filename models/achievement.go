package models

import "time"

// AchievementCode identifies an achievement
type AchievementCode string

const (
	AchievementFirstSpin       AchievementCode = "FIRST_SPIN"
	AchievementFirstWin        AchievementCode = "FIRST_WIN"
	AchievementTotalSpins10    AchievementCode = "TOTAL_SPINS_10"
	AchievementTotalSpins100   AchievementCode = "TOTAL_SPINS_100"
	AchievementTotalSpins1000  AchievementCode = "TOTAL_SPINS_1000"
	AchievementBigWin100       AchievementCode = "BIG_WIN_100"
	AchievementBigWin500       AchievementCode = "BIG_WIN_500"
	AchievementNetProfit1000   AchievementCode = "NET_PROFIT_1000"
	AchievementNetProfit5000   AchievementCode = "NET_PROFIT_5000"
	AchievementBlackjackMaster AchievementCode = "BLACKJACK_MASTER_10"
	AchievementRouletteMaster  AchievementCode = "ROULETTE_MASTER_10"
	AchievementSlotsMaster     AchievementCode = "SLOTS_MASTER_10"
	AchievementHighRoller      AchievementCode = "HIGH_ROLLER"
)

// Achievement is an unlocked achievement for an account
type Achievement struct {
	ID          int64           `db:"id" json:"id"`
	AccountID   int64           `db:"account_id" json:"account_id"`
	Code        AchievementCode `db:"code" json:"code"`
	Reward      int64           `db:"reward" json:"reward"`
	UnlockedAt  time.Time       `db:"unlocked_at" json:"unlocked_at"`
	LedgerEntry *int64          `db:"ledger_entry_id" json:"ledger_entry_id,omitempty"`
}
