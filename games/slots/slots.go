package slots

import (
	"casino/games/randutil"
)

// Symbol on a reel
type Symbol string

const (
	Cherry Symbol = "CHERRY"
	Lemon  Symbol = "LEMON"
	Banana Symbol = "BANANA"
	Apple  Symbol = "APPLE"
)

// Reel stops are drawn from [MinStop, MaxStop] and folded into segments
// 8 through 15 by halving and rounding up.
const (
	MinStop = 15
	MaxStop = 30
	Reels   = 3
)

// reelTables maps segment to symbol for each reel
var reelTables = [Reels]map[int]Symbol{
	{8: Cherry, 9: Lemon, 10: Lemon, 11: Banana, 12: Banana, 13: Lemon, 14: Apple, 15: Lemon},
	{8: Lemon, 9: Lemon, 10: Banana, 11: Apple, 12: Cherry, 13: Lemon, 14: Lemon, 15: Apple},
	{8: Lemon, 9: Lemon, 10: Banana, 11: Lemon, 12: Cherry, 13: Apple, 14: Lemon, 15: Apple},
}

// payline is one row of the payout table. Rows are checked in order and the
// first match pays. A row with three set to false only looks at the first
// two reels.
type payline struct {
	symbol Symbol
	three  bool
	payout int64
}

var paytable = []payline{
	{Cherry, true, 50},
	{Cherry, false, 40},
	{Apple, true, 20},
	{Apple, false, 10},
	{Banana, true, 15},
	{Banana, false, 5},
	{Lemon, true, 3},
}

// Spin is one pull of the machine
type Spin struct {
	Stops    [Reels]int
	Segments [Reels]int
	Symbols  [Reels]Symbol
	Payout   int64
}

// Pull draws three independent stops and scores them
func Pull(rng randutil.Source) Spin {
	var s Spin
	for i := 0; i < Reels; i++ {
		s.Stops[i] = MinStop + rng.IntN(MaxStop-MinStop+1)
		s.Segments[i] = Segment(s.Stops[i])
		s.Symbols[i] = SymbolAt(i, s.Stops[i])
	}
	s.Payout = Payout(s.Symbols)
	return s
}

// Segment folds a raw stop into its table index
func Segment(stop int) int {
	return (stop + 1) / 2
}

// SymbolAt returns the symbol a reel shows for a raw stop value
func SymbolAt(reel, stop int) Symbol {
	return reelTables[reel][Segment(stop)]
}

// Payout scores a line of symbols against the paytable
func Payout(symbols [Reels]Symbol) int64 {
	for _, line := range paytable {
		if symbols[0] != line.symbol || symbols[1] != line.symbol {
			continue
		}
		if line.three && symbols[2] != line.symbol {
			continue
		}
		return line.payout
	}
	return 0
}

// Strings returns the symbols as plain strings
func (s Spin) Strings() []string {
	out := make([]string, Reels)
	for i, sym := range s.Symbols {
		out[i] = string(sym)
	}
	return out
}
