package blackjack

import (
	"testing"

	"casino/games/cards"
	"casino/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(rank string) cards.Card {
	return cards.MustCard(rank, cards.Hearts)
}

// deal stacks the shoe so the first four cards go player, dealer, player,
// dealer and the rest follow in order.
func deal(t *testing.T, wager int64, order ...string) *Game {
	t.Helper()
	stacked := make([]cards.Card, 0, len(order))
	for _, r := range order {
		stacked = append(stacked, c(r))
	}
	g, err := Deal(1, cards.StackedShoe(stacked...), wager, uuid.New())
	require.NoError(t, err)
	return g
}

func TestDeal(t *testing.T) {
	g := deal(t, 50, "10", "9", "5", "7")

	assert.Equal(t, cards.Hand{c("10"), c("5")}, g.PlayerHand)
	assert.Equal(t, cards.Hand{c("9"), c("7")}, g.DealerHand)
	assert.Equal(t, FirstHand, g.CurrentHand)
	assert.Equal(t, StateAwaitingFirstHand, g.State())
	assert.False(t, g.IsSplit())

	_, err := Deal(1, cards.StackedShoe(), 0, uuid.New())
	assert.ErrorIs(t, err, models.ErrInvalidWager)
}

func TestStand_PlayerWins(t *testing.T) {
	g := deal(t, 50, "10", "10", "9", "7")

	require.NoError(t, g.Stand())

	assert.True(t, g.GameOver)
	assert.Equal(t, 17, g.DealerValue)
	require.Len(t, g.Results, 1)
	assert.Equal(t, OutcomeWin, g.Results[0].Outcome)
	assert.Equal(t, int64(100), g.Results[0].Payout)
	assert.Equal(t, g.FirstRef, g.Results[0].ReferenceID)
	assert.Equal(t, "You win!", g.Message)
}

func TestStand_Tie(t *testing.T) {
	g := deal(t, 50, "10", "10", "7", "7")

	require.NoError(t, g.Stand())
	assert.Equal(t, OutcomeTie, g.Results[0].Outcome)
	assert.Equal(t, int64(50), g.Results[0].Payout)
	assert.Equal(t, "It's a tie.", g.Message)
}

func TestStand_DealerDrawsToSeventeen(t *testing.T) {
	g := deal(t, 20, "10", "10", "8", "2", "3", "4")

	require.NoError(t, g.Stand())
	assert.Equal(t, cards.Hand{c("10"), c("2"), c("3"), c("4")}, g.DealerHand)
	assert.Equal(t, 19, g.DealerValue)
	assert.Equal(t, OutcomeLose, g.Results[0].Outcome)
	assert.Equal(t, int64(0), g.Results[0].Payout)
}

func TestHit(t *testing.T) {
	t.Run("stays open under 21", func(t *testing.T) {
		g := deal(t, 10, "5", "10", "4", "7", "2")
		require.NoError(t, g.Hit())
		assert.False(t, g.GameOver)
		assert.Len(t, g.PlayerHand, 3)
		assert.Equal(t, StateAwaitingFirstHand, g.State())
	})

	t.Run("21 stands automatically", func(t *testing.T) {
		g := deal(t, 10, "5", "10", "6", "7", "K")
		require.NoError(t, g.Hit())
		assert.True(t, g.GameOver)
		assert.True(t, g.PlayerStood)
		assert.Equal(t, 21, g.PlayerHand.Value())
		assert.Equal(t, OutcomeWin, g.Results[0].Outcome)
	})

	t.Run("bust ends the game and dealer plays out", func(t *testing.T) {
		g := deal(t, 10, "10", "10", "6", "5", "K", "2")
		require.NoError(t, g.Hit())
		assert.True(t, g.GameOver)
		assert.Len(t, g.DealerHand, 3)
		assert.Equal(t, 17, g.DealerValue)
		assert.Equal(t, OutcomeLose, g.Results[0].Outcome)
		assert.Equal(t, "Bust! You exceeded 21.", g.Message)
	})
}

func TestFinishedGameRejectsActions(t *testing.T) {
	g := deal(t, 10, "10", "10", "9", "7")
	require.NoError(t, g.Stand())
	before := *g

	assert.ErrorIs(t, g.Hit(), models.ErrNoActiveGame)
	assert.ErrorIs(t, g.Stand(), models.ErrNoActiveGame)
	assert.ErrorIs(t, g.DoubleDown(), models.ErrNoActiveGame)
	assert.ErrorIs(t, g.Split(uuid.New()), models.ErrNoActiveGame)
	assert.Equal(t, before.PlayerHand, g.PlayerHand)
	assert.Equal(t, before.DealerHand, g.DealerHand)
}

func TestDoubleDown(t *testing.T) {
	t.Run("draw to 21 beats dealer", func(t *testing.T) {
		g := deal(t, 50, "5", "10", "6", "6", "10", "4")

		require.NoError(t, g.DoubleDown())
		assert.True(t, g.GameOver)
		assert.True(t, g.DoubledDown)
		assert.Equal(t, int64(100), g.Wager)
		assert.Len(t, g.PlayerHand, 3)
		assert.Equal(t, 21, g.PlayerHand.Value())
		assert.Equal(t, 20, g.DealerValue)
		assert.Equal(t, OutcomeWin, g.Results[0].Outcome)
		assert.Equal(t, int64(200), g.Results[0].Payout)
	})

	t.Run("bust skips dealer play", func(t *testing.T) {
		g := deal(t, 50, "10", "10", "2", "5", "K", "9")

		require.NoError(t, g.DoubleDown())
		assert.True(t, g.GameOver)
		assert.Len(t, g.DealerHand, 2)
		assert.Equal(t, 1, g.Shoe.Remaining())
		assert.Equal(t, OutcomeLose, g.Results[0].Outcome)
		assert.Equal(t, "Bust! You exceeded 21.", g.Message)
	})

	t.Run("not after a hit", func(t *testing.T) {
		g := deal(t, 50, "2", "10", "3", "7", "4")
		require.NoError(t, g.Hit())
		assert.ErrorIs(t, g.CanDoubleDown(), models.ErrInvalidAction)
	})

	t.Run("not after a split", func(t *testing.T) {
		g := deal(t, 50, "8", "10", "8", "7")
		require.NoError(t, g.Split(uuid.New()))
		assert.ErrorIs(t, g.DoubleDown(), models.ErrInvalidAction)
	})
}

func TestSplit(t *testing.T) {
	t.Run("both hands play against one dealer hand", func(t *testing.T) {
		g := deal(t, 30, "8", "10", "8", "7", "10", "3", "10")
		secondRef := uuid.New()

		require.NoError(t, g.Split(secondRef))
		assert.True(t, g.IsSplit())
		assert.Equal(t, cards.Hand{c("8")}, g.PlayerHand)
		assert.Equal(t, cards.Hand{c("8")}, *g.SecondHand)
		assert.Equal(t, int64(30), g.SecondWager)

		require.NoError(t, g.Hit()) // first hand: 18
		assert.Equal(t, FirstHand, g.CurrentHand)
		require.NoError(t, g.Stand())
		assert.Equal(t, SecondHand, g.CurrentHand)
		assert.Equal(t, StateAwaitingSecondHand, g.State())

		require.NoError(t, g.Hit()) // second hand: 11
		require.NoError(t, g.Hit()) // second hand: 21, stands

		assert.True(t, g.GameOver)
		require.Len(t, g.Results, 2)
		assert.Equal(t, OutcomeWin, g.Results[0].Outcome)
		assert.Equal(t, OutcomeWin, g.Results[1].Outcome)
		assert.Equal(t, secondRef, g.Results[1].ReferenceID)
		assert.Equal(t, "First hand: win, Second hand: win", g.Message)
	})

	t.Run("first hand bust moves to second", func(t *testing.T) {
		g := deal(t, 30, "8", "10", "8", "9", "K", "5")
		require.NoError(t, g.Split(uuid.New()))

		require.NoError(t, g.Hit())
		require.NoError(t, g.Hit())
		assert.False(t, g.GameOver)
		assert.Equal(t, SecondHand, g.CurrentHand)

		require.NoError(t, g.Stand())
		assert.Equal(t, "First hand: lose, Second hand: lose", g.Message)
	})

	t.Run("face cards of equal value split", func(t *testing.T) {
		g := deal(t, 10, "J", "9", "Q", "7")
		assert.NoError(t, g.CanSplit())
	})

	t.Run("unequal cards", func(t *testing.T) {
		g := deal(t, 10, "9", "9", "8", "7")
		assert.ErrorIs(t, g.Split(uuid.New()), models.ErrInvalidAction)
		assert.False(t, g.IsSplit())
	})

	t.Run("only once", func(t *testing.T) {
		g := deal(t, 10, "8", "9", "8", "7", "8")
		require.NoError(t, g.Split(uuid.New()))
		require.NoError(t, g.Hit())
		assert.ErrorIs(t, g.CanSplit(), models.ErrInvalidAction)
	})
}

func TestShoeExhaustion(t *testing.T) {
	_, err := Deal(1, cards.StackedShoe(c("2"), c("3")), 10, uuid.New())
	assert.ErrorIs(t, err, cards.ErrShoeExhausted)
}

func TestForfeit(t *testing.T) {
	g := deal(t, 10, "2", "3", "4", "5")
	g.Forfeit()
	assert.True(t, g.GameOver)
	assert.Empty(t, g.Results)
	assert.ErrorIs(t, g.Hit(), models.ErrNoActiveGame)
}

func TestCompare(t *testing.T) {
	assert.Equal(t, OutcomeLose, Compare(22, 22))
	assert.Equal(t, OutcomeWin, Compare(12, 23))
	assert.Equal(t, OutcomeWin, Compare(20, 19))
	assert.Equal(t, OutcomeTie, Compare(18, 18))
	assert.Equal(t, OutcomeLose, Compare(17, 20))
}

func TestView(t *testing.T) {
	g := deal(t, 10, "2", "K", "4", "5")

	hidden := g.View(false)
	assert.True(t, hidden.HoleCardHidden)
	assert.Equal(t, cards.Hand{c("K")}, hidden.DealerHand)
	assert.Equal(t, 10, hidden.DealerValue)

	shown := g.View(true)
	assert.False(t, shown.HoleCardHidden)
	assert.Len(t, shown.DealerHand, 2)
	assert.Equal(t, 15, shown.DealerValue)

	g.Forfeit()
	assert.False(t, g.View(false).HoleCardHidden)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("double")
	require.NoError(t, err)
	assert.Equal(t, ActionDoubleDown, a)

	_, err = ParseAction("surrender")
	assert.ErrorIs(t, err, models.ErrInvalidAction)
}
