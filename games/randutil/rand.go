package randutil

import (
	rand "math/rand/v2"
	"sync"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// Source is the randomness every game draws from. Shuffles and number draws
// take it as a parameter so tests can pin outcomes.
type Source interface {
	IntN(n int) int
}

// New returns a *rand.Rand seeded deterministically from the provided int64.
// Not safe for concurrent use; wrap it with NewLocked when shared.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// NewLocked returns a seeded source that can be shared between goroutines.
func NewLocked(seed int64) Source {
	return &lockedSource{r: New(seed)}
}

// Default returns the process-wide source backed by the runtime generator.
func Default() Source {
	return globalSource{}
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
