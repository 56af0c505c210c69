package cards

import (
	"errors"
	"fmt"

	"casino/games/randutil"
)

// ErrShoeExhausted is returned when drawing from an empty shoe
var ErrShoeExhausted = errors.New("shoe exhausted")

// DefaultDeckCount is the number of 52-card decks in a standard shoe
const DefaultDeckCount = 6

// Suit of a playing card
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

var suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// ranks in deck order with their nominal values. Aces are stored at 11 and
// only reduced when a hand is evaluated.
var ranks = []struct {
	rank  string
	value int
}{
	{"2", 2}, {"3", 3}, {"4", 4}, {"5", 5}, {"6", 6}, {"7", 7}, {"8", 8},
	{"9", 9}, {"10", 10}, {"J", 10}, {"Q", 10}, {"K", 10}, {"A", 11},
}

// Card is a rank with its nominal value
type Card struct {
	Rank  string `json:"rank"`
	Suit  Suit   `json:"suit"`
	Value int    `json:"value"`
}

// NewCard builds a card for the given rank, looking up its nominal value
func NewCard(rank string, suit Suit) (Card, error) {
	for _, r := range ranks {
		if r.rank == rank {
			return Card{Rank: rank, Suit: suit, Value: r.value}, nil
		}
	}
	return Card{}, fmt.Errorf("unknown rank %q", rank)
}

// IsAce reports whether the card can count as 1 or 11
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Hand is an ordered sequence of cards
type Hand []Card

// Value returns the blackjack value of the hand
func (h Hand) Value() int {
	return HandValue(h)
}

// IsBust reports whether the hand is over 21 with every ace counted as 1
func (h Hand) IsBust() bool {
	return HandValue(h) > 21
}

// IsSoft reports whether an ace is still being counted as 11
func (h Hand) IsSoft() bool {
	_, soft := evaluate(h)
	return soft
}

// HandValue sums nominal values, then drops aces from 11 to 1 one at a time
// while the total is over 21. The result is the best total not above 21 when
// one exists, otherwise the busted sum.
func HandValue(hand []Card) int {
	total, _ := evaluate(hand)
	return total
}

func evaluate(hand []Card) (int, bool) {
	total := 0
	aces := 0
	for _, c := range hand {
		total += c.Value
		if c.IsAce() {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total, aces > 0
}

// Shoe is a stack of cards. The next card is the last element.
type Shoe []Card

// BuildShoe returns deckCount full decks shuffled with a Fisher-Yates pass
// over rng, so every ordering is equally likely.
func BuildShoe(deckCount int, rng randutil.Source) Shoe {
	if deckCount <= 0 {
		deckCount = DefaultDeckCount
	}

	shoe := make(Shoe, 0, 52*deckCount)
	for d := 0; d < deckCount; d++ {
		for _, s := range suits {
			for _, r := range ranks {
				shoe = append(shoe, Card{Rank: r.rank, Suit: s, Value: r.value})
			}
		}
	}

	for i := len(shoe) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shoe[i], shoe[j] = shoe[j], shoe[i]
	}
	return shoe
}

// Draw removes and returns the tail card
func (s *Shoe) Draw() (Card, error) {
	n := len(*s)
	if n == 0 {
		return Card{}, ErrShoeExhausted
	}
	card := (*s)[n-1]
	*s = (*s)[:n-1]
	return card, nil
}

// Remaining returns the number of undealt cards
func (s Shoe) Remaining() int {
	return len(s)
}

// StackedShoe builds a shoe that deals the given cards in order, first card
// first. Useful for replaying a known deal.
func StackedShoe(deal ...Card) Shoe {
	shoe := make(Shoe, len(deal))
	for i, c := range deal {
		shoe[len(deal)-1-i] = c
	}
	return shoe
}

// MustCard is NewCard for literal ranks known to be valid
func MustCard(rank string, suit Suit) Card {
	c, err := NewCard(rank, suit)
	if err != nil {
		panic(err)
	}
	return c
}
