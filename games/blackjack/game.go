package blackjack

import (
	"fmt"
	"time"

	"casino/games/cards"
	"casino/models"

	"github.com/google/uuid"
)

// DealerStandsOn is the total at which the dealer stops drawing
const DealerStandsOn = 17

// Action is a player move on an open game
type Action string

const (
	ActionHit        Action = "hit"
	ActionStand      Action = "stand"
	ActionDoubleDown Action = "double_down"
	ActionSplit      Action = "split"
)

// ParseAction accepts the wire names of the player moves
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionHit, ActionStand, ActionDoubleDown, ActionSplit:
		return Action(s), nil
	case "double":
		return ActionDoubleDown, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", models.ErrInvalidAction, s)
}

// HandSelector picks which player hand receives the next action
type HandSelector string

const (
	FirstHand  HandSelector = "first"
	SecondHand HandSelector = "second"
)

// State is where a game sits in its lifecycle
type State string

const (
	StateAwaitingFirstHand  State = "awaiting_first_hand_action"
	StateAwaitingSecondHand State = "awaiting_second_hand_action"
	StateSettled            State = "settled"
)

// Outcome of one player hand against the dealer
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeTie  Outcome = "tie"
)

// HandResult is the settled outcome of one player hand. Payout is what gets
// credited back: twice the wager on a win, the wager on a tie, zero otherwise.
type HandResult struct {
	Hand        HandSelector `json:"hand"`
	Value       int          `json:"value"`
	Wager       int64        `json:"wager"`
	Outcome     Outcome      `json:"outcome"`
	Payout      int64        `json:"payout"`
	ReferenceID uuid.UUID    `json:"reference_id"`
}

// Game is one blackjack round for an account. A split game is exactly one
// with a non-nil SecondHand.
type Game struct {
	ID          int64
	AccountID   int64
	Shoe        cards.Shoe
	DealerHand  cards.Hand
	PlayerHand  cards.Hand
	SecondHand  *cards.Hand
	Wager       int64
	SecondWager int64
	FirstRef    uuid.UUID
	SecondRef   uuid.UUID
	GameOver    bool
	PlayerStood bool
	DoubledDown bool
	CurrentHand HandSelector
	DealerValue int
	Message     string
	Results     []HandResult
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Deal starts a round from the given shoe: player, dealer, player, dealer.
// ref is the reference of the reserved stake.
func Deal(accountID int64, shoe cards.Shoe, wager int64, ref uuid.UUID) (*Game, error) {
	if wager <= 0 {
		return nil, fmt.Errorf("%w: wager must be positive", models.ErrInvalidWager)
	}

	g := &Game{
		AccountID:   accountID,
		Shoe:        shoe,
		Wager:       wager,
		FirstRef:    ref,
		CurrentHand: FirstHand,
	}
	for i := 0; i < 2; i++ {
		if err := g.draw(&g.PlayerHand); err != nil {
			return nil, err
		}
		if err := g.draw(&g.DealerHand); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// IsSplit reports whether the player split into two hands
func (g *Game) IsSplit() bool {
	return g.SecondHand != nil
}

// State reports the lifecycle position derived from the game flags
func (g *Game) State() State {
	switch {
	case g.GameOver:
		return StateSettled
	case g.IsSplit() && g.CurrentHand == SecondHand:
		return StateAwaitingSecondHand
	default:
		return StateAwaitingFirstHand
	}
}

// ActiveHand returns the hand the next action applies to
func (g *Game) ActiveHand() *cards.Hand {
	if g.IsSplit() && g.CurrentHand == SecondHand {
		return g.SecondHand
	}
	return &g.PlayerHand
}

func (g *Game) onFirstOfSplit() bool {
	return g.IsSplit() && g.CurrentHand == FirstHand
}

func (g *Game) draw(hand *cards.Hand) error {
	card, err := g.Shoe.Draw()
	if err != nil {
		return fmt.Errorf("failed to draw card: %w", err)
	}
	*hand = append(*hand, card)
	return nil
}

func (g *Game) ensureOpen() error {
	if g.GameOver {
		return models.ErrNoActiveGame
	}
	return nil
}

// Hit draws one card into the active hand. A bust or 21 ends that hand: the
// first of a split pair hands over to the second, anything else goes to the
// dealer and settles.
func (g *Game) Hit() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}

	hand := g.ActiveHand()
	if err := g.draw(hand); err != nil {
		return err
	}

	if hand.Value() < 21 {
		return nil
	}
	if g.onFirstOfSplit() {
		g.moveToSecondHand()
		return nil
	}
	if hand.Value() == 21 {
		g.PlayerStood = true
	}
	return g.finish(true)
}

// Stand closes the active hand
func (g *Game) Stand() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}

	if g.onFirstOfSplit() {
		g.moveToSecondHand()
		return nil
	}
	g.PlayerStood = true
	return g.finish(true)
}

// CanDoubleDown reports why a double down is not allowed right now
func (g *Game) CanDoubleDown() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}
	switch {
	case len(g.PlayerHand) > 2:
		return fmt.Errorf("%w: cannot double down after hitting", models.ErrInvalidAction)
	case g.DoubledDown:
		return fmt.Errorf("%w: already doubled down", models.ErrInvalidAction)
	case g.IsSplit():
		return fmt.Errorf("%w: cannot double down on a split hand", models.ErrInvalidAction)
	case g.PlayerStood:
		return fmt.Errorf("%w: hand already stood", models.ErrInvalidAction)
	}
	return nil
}

// DoubleDown doubles the wager, deals exactly one card and stands. The extra
// stake must already be reserved. A bust ends the round without dealer play.
func (g *Game) DoubleDown() error {
	if err := g.CanDoubleDown(); err != nil {
		return err
	}

	g.Wager *= 2
	g.DoubledDown = true
	if err := g.draw(&g.PlayerHand); err != nil {
		return err
	}

	if g.PlayerHand.IsBust() {
		return g.finish(false)
	}
	g.PlayerStood = true
	return g.finish(true)
}

// CanSplit reports why a split is not allowed right now
func (g *Game) CanSplit() error {
	if err := g.ensureOpen(); err != nil {
		return err
	}
	hand := g.ActiveHand()
	switch {
	case g.IsSplit():
		return fmt.Errorf("%w: hand already split", models.ErrInvalidAction)
	case g.DoubledDown || g.PlayerStood:
		return fmt.Errorf("%w: hand is closed", models.ErrInvalidAction)
	case len(*hand) != 2:
		return fmt.Errorf("%w: hand does not contain exactly two cards", models.ErrInvalidAction)
	case (*hand)[0].Value != (*hand)[1].Value:
		return fmt.Errorf("%w: cards do not have the same value", models.ErrInvalidAction)
	}
	return nil
}

// Split moves the second card of the primary hand into a new hand staked at
// the current wager under ref. Neither hand is dealt a replacement card.
func (g *Game) Split(ref uuid.UUID) error {
	if err := g.CanSplit(); err != nil {
		return err
	}

	moved := g.PlayerHand[len(g.PlayerHand)-1]
	g.PlayerHand = g.PlayerHand[:len(g.PlayerHand)-1]
	second := cards.Hand{moved}
	g.SecondHand = &second
	g.SecondWager = g.Wager
	g.SecondRef = ref
	return nil
}

// Forfeit closes the round without play. The reserved stake is not returned.
func (g *Game) Forfeit() {
	g.GameOver = true
	g.Message = "Game closed by a new deal."
	g.DealerValue = g.DealerHand.Value()
}

func (g *Game) moveToSecondHand() {
	g.CurrentHand = SecondHand
	g.PlayerStood = false
}

func (g *Game) playDealer() error {
	for g.DealerHand.Value() < DealerStandsOn {
		if err := g.draw(&g.DealerHand); err != nil {
			return err
		}
	}
	return nil
}

// finish runs the dealer (unless skipped) and scores every player hand
func (g *Game) finish(dealerPlays bool) error {
	if dealerPlays {
		if err := g.playDealer(); err != nil {
			return err
		}
	}
	g.DealerValue = g.DealerHand.Value()

	g.Results = []HandResult{g.score(FirstHand, g.PlayerHand, g.Wager, g.FirstRef)}
	if g.IsSplit() {
		g.Results = append(g.Results, g.score(SecondHand, *g.SecondHand, g.SecondWager, g.SecondRef))
		g.Message = fmt.Sprintf("First hand: %s, Second hand: %s", g.Results[0].Outcome, g.Results[1].Outcome)
	} else {
		g.Message = resultMessage(g.Results[0], g.PlayerHand)
	}

	g.GameOver = true
	return nil
}

func (g *Game) score(which HandSelector, hand cards.Hand, wager int64, ref uuid.UUID) HandResult {
	value := hand.Value()
	outcome := Compare(value, g.DealerValue)
	return HandResult{
		Hand:        which,
		Value:       value,
		Wager:       wager,
		Outcome:     outcome,
		Payout:      Payout(outcome, wager),
		ReferenceID: ref,
	}
}

// Compare scores a player total against the dealer total
func Compare(player, dealer int) Outcome {
	switch {
	case player > 21:
		return OutcomeLose
	case dealer > 21:
		return OutcomeWin
	case player > dealer:
		return OutcomeWin
	case player == dealer:
		return OutcomeTie
	default:
		return OutcomeLose
	}
}

// Payout is the amount credited back for an outcome on a given wager
func Payout(outcome Outcome, wager int64) int64 {
	switch outcome {
	case OutcomeWin:
		return 2 * wager
	case OutcomeTie:
		return wager
	default:
		return 0
	}
}

func resultMessage(r HandResult, hand cards.Hand) string {
	switch r.Outcome {
	case OutcomeWin:
		return "You win!"
	case OutcomeTie:
		return "It's a tie."
	}
	if hand.IsBust() {
		return "Bust! You exceeded 21."
	}
	return "You lose."
}
