package circuit

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// RandomSource supplies the uniform integers used to shuffle relays.
// Implementations must be safe for concurrent use.
type RandomSource interface {
	// Intn returns a uniform integer in [0, n). n is always positive.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns a RandomSource backed by crypto/rand. It is the
// default for path selection: a predictable source lets an observer who knows
// the seed link circuits to senders.
func NewCryptoSource() RandomSource { return cryptoSource{} }

func (cryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("circuit: crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic RandomSource. It is meant for tests
// and simulations and is not suitable for production path selection.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}
