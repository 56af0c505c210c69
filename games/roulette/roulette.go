package roulette

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"casino/games/randutil"
	"casino/models"

	"github.com/go-playground/validator/v10"
)

// Pockets is the number of pockets on a single-zero wheel (0-36)
const Pockets = 37

var validate = validator.New()

// Bet is one stake on a set of numbers. A winning bet pays Amount + Odds*Amount.
// An empty Numbers set is accepted and can never win.
type Bet struct {
	Amount  int64 `json:"amount" validate:"gt=0"`
	Odds    int64 `json:"odds" validate:"gte=0"`
	Numbers []int `json:"numbers" validate:"dive,min=0,max=36"`
}

// Covers reports whether the bet includes n
func (b Bet) Covers(n int) bool {
	for _, x := range b.Numbers {
		if x == n {
			return true
		}
	}
	return false
}

// Validate checks every bet in the batch and returns the total stake. Nothing
// is partially accepted: any bad bet rejects the whole batch. The worst-case
// payout is checked too so settlement arithmetic cannot overflow.
func Validate(bets []Bet) (int64, error) {
	if len(bets) == 0 {
		return 0, fmt.Errorf("%w: no bets placed", models.ErrInvalidBet)
	}

	var total, maxPayout int64
	for i := range bets {
		if err := validate.Struct(&bets[i]); err != nil {
			return 0, fmt.Errorf("%w: bet %d: %s", models.ErrInvalidBet, i, describe(err))
		}
		payout, ok := payoutFor(bets[i])
		if !ok {
			return 0, fmt.Errorf("%w: bet %d: payout overflows", models.ErrInvalidBet, i)
		}
		if total > math.MaxInt64-bets[i].Amount || maxPayout > math.MaxInt64-payout {
			return 0, fmt.Errorf("%w: batch total overflows", models.ErrInvalidBet)
		}
		total += bets[i].Amount
		maxPayout += payout
	}
	return total, nil
}

// Spin draws the winning pocket
func Spin(rng randutil.Source) int {
	return rng.IntN(Pockets)
}

// Evaluate totals the payout of every bet covering winning and returns the
// indexes of the winning bets. Bets must have passed Validate.
func Evaluate(bets []Bet, winning int) (int64, []int) {
	var total int64
	winners := []int{}
	for i, b := range bets {
		if !b.Covers(winning) {
			continue
		}
		payout, _ := payoutFor(b)
		total += payout
		winners = append(winners, i)
	}
	return total, winners
}

func payoutFor(b Bet) (int64, bool) {
	if b.Amount <= 0 || b.Odds < 0 {
		return 0, false
	}
	if b.Odds > (math.MaxInt64-b.Amount)/b.Amount {
		return 0, false
	}
	return b.Amount + b.Odds*b.Amount, true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// ParseBet reads "amount:odds:n1,n2,..." as used on the command line. The
// number list may be empty.
func ParseBet(s string) (Bet, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Bet{}, fmt.Errorf("%w: expected amount:odds:numbers, got %q", models.ErrInvalidBet, s)
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Bet{}, fmt.Errorf("%w: bad amount %q", models.ErrInvalidBet, parts[0])
	}
	odds, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Bet{}, fmt.Errorf("%w: bad odds %q", models.ErrInvalidBet, parts[1])
	}

	bet := Bet{Amount: amount, Odds: odds, Numbers: []int{}}
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		for _, field := range strings.Split(parts[2], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return Bet{}, fmt.Errorf("%w: bad number %q", models.ErrInvalidBet, field)
			}
			bet.Numbers = append(bet.Numbers, n)
		}
	}
	return bet, nil
}
