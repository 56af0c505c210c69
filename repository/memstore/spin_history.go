package memstore

import (
	"context"
	"sync"
)

// SpinHistory keeps the last few roulette numbers per account in process
type SpinHistory struct {
	mu    sync.Mutex
	size  int
	spins map[int64][]int
}

// NewSpinHistory keeps at most size numbers per account
func NewSpinHistory(size int) *SpinHistory {
	return &SpinHistory{
		size:  size,
		spins: make(map[int64][]int),
	}
}

// Push records a number as the newest spin
func (h *SpinHistory) Push(ctx context.Context, accountID int64, number int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	spins := append([]int{number}, h.spins[accountID]...)
	if len(spins) > h.size {
		spins = spins[:h.size]
	}
	h.spins[accountID] = spins
	return nil
}

// Recent returns up to limit numbers, newest first
func (h *SpinHistory) Recent(ctx context.Context, accountID int64, limit int) ([]int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	spins := h.spins[accountID]
	if limit > 0 && len(spins) > limit {
		spins = spins[:limit]
	}
	return append([]int{}, spins...), nil
}
