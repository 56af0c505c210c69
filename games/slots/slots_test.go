package slots

import (
	"testing"

	"casino/games/randutil"

	"github.com/stretchr/testify/assert"
)

func TestPayout(t *testing.T) {
	tests := []struct {
		symbols  [Reels]Symbol
		expected int64
	}{
		{[Reels]Symbol{Cherry, Cherry, Cherry}, 50},
		{[Reels]Symbol{Cherry, Cherry, Lemon}, 40},
		{[Reels]Symbol{Apple, Apple, Apple}, 20},
		{[Reels]Symbol{Apple, Apple, Banana}, 10},
		{[Reels]Symbol{Banana, Banana, Banana}, 15},
		{[Reels]Symbol{Banana, Banana, Cherry}, 5},
		{[Reels]Symbol{Lemon, Lemon, Lemon}, 3},
		{[Reels]Symbol{Lemon, Lemon, Apple}, 0},
		{[Reels]Symbol{Cherry, Lemon, Cherry}, 0},
		{[Reels]Symbol{Lemon, Cherry, Cherry}, 0},
		{[Reels]Symbol{Apple, Banana, Cherry}, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Payout(tt.symbols), "%v", tt.symbols)
	}
}

func TestSegment(t *testing.T) {
	assert.Equal(t, 8, Segment(15))
	assert.Equal(t, 8, Segment(16))
	assert.Equal(t, 9, Segment(17))
	assert.Equal(t, 15, Segment(29))
	assert.Equal(t, 15, Segment(30))
}

func TestSymbolAt(t *testing.T) {
	assert.Equal(t, Cherry, SymbolAt(0, 15))
	assert.Equal(t, Apple, SymbolAt(0, 28))
	assert.Equal(t, Cherry, SymbolAt(1, 24))
	assert.Equal(t, Apple, SymbolAt(2, 30))

	for reel := 0; reel < Reels; reel++ {
		for stop := MinStop; stop <= MaxStop; stop++ {
			assert.NotEmpty(t, SymbolAt(reel, stop), "reel %d stop %d", reel, stop)
		}
	}
}

type fixedSource []int

func (f *fixedSource) IntN(n int) int {
	v := (*f)[0]
	*f = (*f)[1:]
	return v % n
}

func TestPull(t *testing.T) {
	// stops 15, 23, 23 -> segments 8, 12, 12 -> cherry on every reel
	src := fixedSource{0, 8, 8}
	spin := Pull(&src)

	assert.Equal(t, [Reels]int{15, 23, 23}, spin.Stops)
	assert.Equal(t, [Reels]int{8, 12, 12}, spin.Segments)
	assert.Equal(t, [Reels]Symbol{Cherry, Cherry, Cherry}, spin.Symbols)
	assert.Equal(t, int64(50), spin.Payout)
	assert.Equal(t, []string{"CHERRY", "CHERRY", "CHERRY"}, spin.Strings())
}

func TestPull_StaysInRange(t *testing.T) {
	rng := randutil.New(11)
	for i := 0; i < 2000; i++ {
		spin := Pull(rng)
		for _, stop := range spin.Stops {
			assert.GreaterOrEqual(t, stop, MinStop)
			assert.LessOrEqual(t, stop, MaxStop)
		}
	}
}
