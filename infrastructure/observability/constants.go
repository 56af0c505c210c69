package observability

// Metric name prefixes
const (
	MetricPrefix = "casino"
)

// Metric names
const (
	// Settlement metrics
	SettlementsTotal  = MetricPrefix + ".settlements_total"
	CoinsStakedTotal  = MetricPrefix + ".coins.staked_total"
	CoinsWonTotal     = MetricPrefix + ".coins.won_total"
	SettlementNetHist = MetricPrefix + ".settlement.net"

	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"

	// Achievement metrics
	AchievementsUnlockedTotal = MetricPrefix + ".achievements.unlocked_total"
)

// Label keys
const (
	LabelGame    = "game"
	LabelOutcome = "outcome"
	LabelKind    = "kind"
	LabelCode    = "code"
)
