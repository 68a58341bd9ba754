package circuit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/opd-ai/onionrelay/onion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource returns a fixed sequence and records the bounds it was asked for.
type scriptedSource struct {
	mu     sync.Mutex
	values []int
	bounds []int
}

func (s *scriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = append(s.bounds, n)
	v := s.values[0]
	s.values = s.values[1:]
	if v < 0 {
		return n - 1
	}
	return v
}

func relays(ids ...uint32) []onion.Relay {
	addressing := onion.DefaultAddressing()
	out := make([]onion.Relay, len(ids))
	for i, id := range ids {
		out[i] = onion.Relay{ID: id, PublicKey: []byte{byte(id)}, Address: addressing.RelayAddress(id)}
	}
	return out
}

func TestSelectReturnsDistinctRelaysFromDirectory(t *testing.T) {
	dir := relays(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	selector := NewSelector(NewSeededSource(42))

	known := make(map[uint32]bool)
	for _, r := range dir {
		known[r.ID] = true
	}

	for i := 0; i < 200; i++ {
		c, err := selector.Select(dir)
		require.NoError(t, err)
		require.Len(t, c, onion.CircuitLength)
		require.NoError(t, c.Validate())
		for _, r := range c {
			assert.True(t, known[r.ID])
			assert.Equal(t, onion.DefaultAddressing().RelayAddress(r.ID), r.Address)
		}
	}
}

func TestSelectInsufficientRelays(t *testing.T) {
	selector := NewSelector(nil)
	for _, dir := range [][]onion.Relay{nil, relays(1), relays(1, 2), relays(1, 2, 2, 1)} {
		_, err := selector.Select(dir)
		assert.ErrorIs(t, err, onion.ErrInsufficientRelays, "directory of %d", len(dir))
	}

	c, err := selector.Select(relays(1, 2, 3))
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint32{1, 2, 3}, c.IDs())
}

func TestSelectCollapsesDuplicates(t *testing.T) {
	selector := NewSelector(NewSeededSource(7))
	for i := 0; i < 100; i++ {
		c, err := selector.Select(relays(1, 1, 2, 2, 3, 3))
		require.NoError(t, err)
		assert.ElementsMatch(t, []uint32{1, 2, 3}, c.IDs())
	}
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	dir := relays(1, 2, 3, 4, 5)
	before := append([]onion.Relay(nil), dir...)

	_, err := NewSelector(NewSeededSource(1)).Select(dir)
	require.NoError(t, err)
	assert.Equal(t, before, dir)
}

func TestShuffleFollowsFisherYates(t *testing.T) {
	// Always choosing j = 0 rotates the list: [a b c d] -> [b c d a].
	src := &scriptedSource{values: []int{0, 0, 0}}
	c, err := NewSelector(src).Select(relays(1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []uint32{2, 3, 4}, c.IDs())
	assert.Equal(t, []int{4, 3, 2}, src.bounds)

	// Always choosing j = i swaps nothing.
	src = &scriptedSource{values: []int{-1, -1, -1}}
	c, err = NewSelector(src).Select(relays(1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, c.IDs())
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a, err := NewSelector(NewSeededSource(99)).Select(relays(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	b, err := NewSelector(NewSeededSource(99)).Select(relays(1, 2, 3, 4, 5, 6))
	require.NoError(t, err)
	assert.Equal(t, a.IDs(), b.IDs())
}

func TestSelectIsUniformOverOrderedCircuits(t *testing.T) {
	// Four relays give 4*3*2 = 24 ordered circuits.
	const rounds = 24000
	dir := relays(1, 2, 3, 4)
	selector := NewSelector(NewSeededSource(2024))

	counts := make(map[string]int)
	for i := 0; i < rounds; i++ {
		c, err := selector.Select(dir)
		require.NoError(t, err)
		counts[fmt.Sprint(c.IDs())]++
	}

	require.Len(t, counts, 24)
	expected := rounds / 24
	for path, n := range counts {
		assert.InDelta(t, expected, n, float64(expected)/4, "circuit %s", path)
	}
}

func TestCryptoSourceBounds(t *testing.T) {
	src := NewCryptoSource()
	for n := 1; n < 50; n++ {
		v := src.Intn(n)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, n)
	}
}

func TestSelectConcurrentUse(t *testing.T) {
	selector := NewSelector(NewSeededSource(5))
	dir := relays(1, 2, 3, 4, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c, err := selector.Select(dir)
				if assert.NoError(t, err) {
					assert.NoError(t, c.Validate())
				}
			}
		}()
	}
	wg.Wait()
}
