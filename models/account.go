package models

import (
	"time"
)

// Account holds a player's coin balance. Balance is only written while the
// account row is locked and is never negative after a settlement.
type Account struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
