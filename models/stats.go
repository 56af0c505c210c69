package models

// AmountStats is a count of entries and the absolute sum of their amounts
type AmountStats struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
}

func (a *AmountStats) add(count, total int64) {
	a.Count += count
	a.Total += total
}

// GameStats splits one game's activity by entry kind
type GameStats struct {
	Bets    AmountStats `json:"bets"`
	Wins    AmountStats `json:"wins"`
	Refunds AmountStats `json:"refunds"`
}

// LedgerStatistics is derived entirely from the ledger. Nothing here is
// stored; it is recomputed from entry aggregates on every request.
type LedgerStatistics struct {
	AccountID       int64                     `json:"account_id"`
	EntryCount      int64                     `json:"entry_count"`
	TotalBetsCount  int64                     `json:"total_bets_count"`
	TotalBetsAmount int64                     `json:"total_bets_amount"`
	TotalWinsCount  int64                     `json:"total_wins_count"`
	TotalWinsAmount int64                     `json:"total_wins_amount"`
	TotalRefunds    int64                     `json:"total_refunds"`
	TotalBonuses    int64                     `json:"total_bonuses"`
	TotalAdjusted   int64                     `json:"total_adjusted"`
	NetProfit       int64                     `json:"net_profit"`
	ByKind          map[EntryKind]AmountStats `json:"by_kind"`
	ByGame          map[GameKind]*GameStats   `json:"by_game"`
}

// BuildLedgerStatistics folds per kind/game aggregates into the summary.
// Bet sums are stored negative and reported as positive totals.
func BuildLedgerStatistics(accountID int64, aggregates []LedgerAggregate) *LedgerStatistics {
	stats := &LedgerStatistics{
		AccountID: accountID,
		ByKind:    make(map[EntryKind]AmountStats),
		ByGame:    make(map[GameKind]*GameStats),
	}

	for _, agg := range aggregates {
		total := agg.Sum
		if total < 0 {
			total = -total
		}

		k := stats.ByKind[agg.Kind]
		k.add(agg.Count, total)
		stats.ByKind[agg.Kind] = k
		stats.EntryCount += agg.Count

		game := stats.ByGame[agg.Game]
		if game == nil && agg.Game != GameNone {
			game = &GameStats{}
			stats.ByGame[agg.Game] = game
		}

		switch agg.Kind {
		case EntryKindBet:
			stats.TotalBetsCount += agg.Count
			stats.TotalBetsAmount += total
			if game != nil {
				game.Bets.add(agg.Count, total)
			}
		case EntryKindWin:
			stats.TotalWinsCount += agg.Count
			stats.TotalWinsAmount += total
			if game != nil {
				game.Wins.add(agg.Count, total)
			}
		case EntryKindRefund:
			stats.TotalRefunds += total
			if game != nil {
				game.Refunds.add(agg.Count, total)
			}
		case EntryKindBonus:
			stats.TotalBonuses += total
		case EntryKindAdjustment:
			stats.TotalAdjusted += agg.Sum
		}
	}

	stats.NetProfit = stats.TotalWinsAmount + stats.TotalRefunds - stats.TotalBetsAmount
	return stats
}
