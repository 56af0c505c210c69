package models

import "github.com/google/uuid"

// RouletteResult is the outcome of one roulette spin over a batch of bets
type RouletteResult struct {
	WinningNumber int       `json:"winning_number"`
	TotalBet      int64     `json:"total_bet"`
	TotalWin      int64     `json:"total_win"`
	NewBalance    int64     `json:"new_balance"`
	WinningBets   []int     `json:"winning_bets"` // indexes into the submitted batch
	PreviousSpins []int     `json:"previous_spins"`
	ReferenceID   uuid.UUID `json:"reference_id"`
}

// SlotResult is the outcome of one slot machine spin
type SlotResult struct {
	Symbols      []string  `json:"symbols"`
	Stops        []int     `json:"stops"`
	StopSegments []int     `json:"stop_segments"`
	Stake        int64     `json:"stake"`
	Payout       int64     `json:"payout"`
	NewBalance   int64     `json:"new_balance"`
	ReferenceID  uuid.UUID `json:"reference_id"`
}
