package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EntryKind is the type of a ledger entry
type EntryKind string

const (
	EntryKindBet        EntryKind = "BET"
	EntryKindWin        EntryKind = "WIN"
	EntryKindBonus      EntryKind = "BONUS"
	EntryKindRefund     EntryKind = "REFUND"
	EntryKindAdjustment EntryKind = "ADJUSTMENT"
)

// Valid reports whether k is a known entry kind
func (k EntryKind) Valid() bool {
	switch k {
	case EntryKindBet, EntryKindWin, EntryKindBonus, EntryKindRefund, EntryKindAdjustment:
		return true
	}
	return false
}

// GameKind identifies the game an entry belongs to
type GameKind string

const (
	GameSlots     GameKind = "SLOTS"
	GameBlackjack GameKind = "BLACKJACK"
	GameRoulette  GameKind = "ROULETTE"
	GameNone      GameKind = "NONE"
)

// Valid reports whether g is a known game kind
func (g GameKind) Valid() bool {
	switch g {
	case GameSlots, GameBlackjack, GameRoulette, GameNone:
		return true
	}
	return false
}

// LedgerEntry is one immutable line of an account's audit trail.
// BalanceAfter == BalanceBefore + Amount, and each entry's BalanceBefore
// equals the previous entry's BalanceAfter in Sequence order.
type LedgerEntry struct {
	ID            int64          `db:"id" json:"id"`
	AccountID     int64          `db:"account_id" json:"account_id"`
	Sequence      int64          `db:"sequence" json:"sequence"`
	Kind          EntryKind      `db:"kind" json:"kind"`
	Amount        int64          `db:"amount" json:"amount"`
	BalanceBefore int64          `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64          `db:"balance_after" json:"balance_after"`
	Game          GameKind       `db:"game" json:"game"`
	Description   string         `db:"description" json:"description"`
	Metadata      map[string]any `db:"metadata" json:"metadata,omitempty"`
	ReferenceID   *uuid.UUID     `db:"reference_id" json:"reference_id,omitempty"`
	PrevHash      string         `db:"prev_hash" json:"prev_hash"`
	Hash          string         `db:"hash" json:"hash"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// ComputeHash digests the entry's money fields together with the hash of the
// entry before it. Metadata and timestamps are left out since they do not
// survive a jsonb/timestamptz round trip byte for byte.
func (e *LedgerEntry) ComputeHash() string {
	ref := ""
	if e.ReferenceID != nil {
		ref = e.ReferenceID.String()
	}
	payload := fmt.Sprintf("%s|%d|%d|%s|%d|%d|%d|%s|%s|%s",
		e.PrevHash,
		e.AccountID,
		e.Sequence,
		e.Kind,
		e.Amount,
		e.BalanceBefore,
		e.BalanceAfter,
		e.Game,
		ref,
		e.Description,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// LedgerFilter narrows a history listing. Zero values mean no filter.
type LedgerFilter struct {
	AccountID   int64
	Game        GameKind
	Kind        EntryKind
	ReferenceID *uuid.UUID
	Limit       int
	Offset      int
}

// LedgerAggregate is a count and sum of entries sharing a kind and game
type LedgerAggregate struct {
	Kind  EntryKind
	Game  GameKind
	Count int64
	Sum   int64
}

// LedgerAudit is the outcome of replaying an account's ledger
type LedgerAudit struct {
	AccountID      int64  `json:"account_id"`
	EntriesChecked int    `json:"entries_checked"`
	LedgerBalance  int64  `json:"ledger_balance"`
	AccountBalance int64  `json:"account_balance"`
	HeadHash       string `json:"head_hash"`
	Valid          bool   `json:"valid"`
	Problem        string `json:"problem,omitempty"`
}
