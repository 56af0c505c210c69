package cards

import (
	"testing"

	"casino/games/randutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hand(ranks ...string) Hand {
	h := make(Hand, 0, len(ranks))
	for _, r := range ranks {
		h = append(h, MustCard(r, Spades))
	}
	return h
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		name     string
		hand     Hand
		expected int
		soft     bool
	}{
		{"empty", hand(), 0, false},
		{"pair of tens", hand("10", "K"), 20, false},
		{"blackjack", hand("A", "K"), 21, true},
		{"two aces", hand("A", "A"), 12, true},
		{"soft seventeen", hand("A", "6"), 17, true},
		{"soft becomes hard", hand("A", "6", "10"), 17, false},
		{"three aces and nine", hand("A", "A", "A", "9"), 12, false},
		{"four aces", hand("A", "A", "A", "A"), 14, true},
		{"bust", hand("10", "9", "5"), 24, false},
		{"bust with aces as one", hand("A", "A", "K", "Q"), 22, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HandValue(tt.hand))
			assert.Equal(t, tt.soft, tt.hand.IsSoft())
			assert.Equal(t, tt.expected > 21, tt.hand.IsBust())
		})
	}
}

// Every assignment of ace values is tried; HandValue must find a total
// at or under 21 whenever one exists.
func TestHandValue_BestAssignment(t *testing.T) {
	rng := randutil.New(7)
	all := BuildShoe(1, rng)

	for i := 0; i < 2000; i++ {
		size := 2 + rng.IntN(5)
		h := make(Hand, 0, size)
		for j := 0; j < size; j++ {
			h = append(h, all[rng.IntN(len(all))])
		}

		raw := 0
		aces := 0
		for _, c := range h {
			raw += c.Value
			if c.IsAce() {
				aces++
			}
		}
		best := -1
		for k := 0; k <= aces; k++ {
			v := raw - 10*k
			if v <= 21 && v > best {
				best = v
			}
		}

		got := HandValue(h)
		if best >= 0 {
			assert.Equal(t, best, got, "hand %v", h)
		} else {
			assert.Equal(t, raw-10*aces, got, "hand %v", h)
		}
	}
}

func TestBuildShoe(t *testing.T) {
	shoe := BuildShoe(6, randutil.New(42))
	require.Len(t, shoe, 312)

	counts := make(map[string]int)
	for _, c := range shoe {
		counts[c.Rank+string(c.Suit)]++
	}
	assert.Len(t, counts, 52)
	for key, n := range counts {
		assert.Equal(t, 6, n, key)
	}

	t.Run("deterministic for a seed", func(t *testing.T) {
		assert.Equal(t, BuildShoe(2, randutil.New(9)), BuildShoe(2, randutil.New(9)))
		assert.NotEqual(t, BuildShoe(2, randutil.New(9)), BuildShoe(2, randutil.New(10)))
	})

	t.Run("non-positive deck count uses default", func(t *testing.T) {
		assert.Len(t, BuildShoe(0, randutil.New(1)), 52*DefaultDeckCount)
	})
}

func TestShoe_Draw(t *testing.T) {
	shoe := StackedShoe(MustCard("A", Hearts), MustCard("K", Clubs))
	assert.Equal(t, 2, shoe.Remaining())

	first, err := shoe.Draw()
	require.NoError(t, err)
	assert.Equal(t, "A", first.Rank)

	second, err := shoe.Draw()
	require.NoError(t, err)
	assert.Equal(t, "K", second.Rank)

	_, err = shoe.Draw()
	assert.ErrorIs(t, err, ErrShoeExhausted)
}

func TestNewCard_UnknownRank(t *testing.T) {
	_, err := NewCard("1", Hearts)
	assert.Error(t, err)
}
