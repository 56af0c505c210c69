package blackjack

import "casino/games/cards"

// View is the public shape of a game. While the round is open and the hole
// card is hidden, only the dealer's up card is shown.
type View struct {
	GameID         int64        `json:"game_id"`
	State          State        `json:"state"`
	PlayerHand     cards.Hand   `json:"player_hand"`
	PlayerValue    int          `json:"player_value"`
	SecondHand     cards.Hand   `json:"second_hand,omitempty"`
	SecondValue    int          `json:"second_value,omitempty"`
	DealerHand     cards.Hand   `json:"dealer_hand"`
	DealerValue    int          `json:"dealer_value"`
	HoleCardHidden bool         `json:"hole_card_hidden"`
	Wager          int64        `json:"wager"`
	SecondWager    int64        `json:"second_wager,omitempty"`
	GameOver       bool         `json:"game_over"`
	PlayerStood    bool         `json:"player_stood"`
	DoubledDown    bool         `json:"doubled_down"`
	Split          bool         `json:"split"`
	CurrentHand    HandSelector `json:"current_hand"`
	Message        string       `json:"message"`
	Results        []HandResult `json:"results,omitempty"`
	Balance        int64        `json:"balance"`
}

// View renders the game. revealHole controls whether the dealer's second
// card is shown before the round settles.
func (g *Game) View(revealHole bool) *View {
	v := &View{
		GameID:      g.ID,
		State:       g.State(),
		PlayerHand:  append(cards.Hand(nil), g.PlayerHand...),
		PlayerValue: g.PlayerHand.Value(),
		Wager:       g.Wager,
		SecondWager: g.SecondWager,
		GameOver:    g.GameOver,
		PlayerStood: g.PlayerStood,
		DoubledDown: g.DoubledDown,
		Split:       g.IsSplit(),
		CurrentHand: g.CurrentHand,
		Message:     g.Message,
		Results:     g.Results,
	}
	if g.IsSplit() {
		v.SecondHand = append(cards.Hand(nil), (*g.SecondHand)...)
		v.SecondValue = g.SecondHand.Value()
	}

	if revealHole || g.GameOver || len(g.DealerHand) < 2 {
		v.DealerHand = append(cards.Hand(nil), g.DealerHand...)
		v.DealerValue = g.DealerHand.Value()
		return v
	}

	v.HoleCardHidden = true
	v.DealerHand = cards.Hand{g.DealerHand[0]}
	v.DealerValue = v.DealerHand.Value()
	return v
}
