package trainer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lengths(samples [][]byte) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = len(s)
	}
	return out
}

func TestSampler_Accumulator(t *testing.T) {
	s, err := NewSampler(2, StrategyAccumulator, 0)
	require.NoError(t, err)

	// acc after each item: 37, 1443, 53502, 1979722, 73249899.
	want := [][]int{{1}, {1, 2}, {3, 2}, {4, 2}, {4, 5}}
	for i, n := range []int{1, 2, 3, 4, 5} {
		s.Add(make([]byte, n))
		assert.Equal(t, want[i], lengths(s.Samples()), "after item %d", i)
	}
	assert.Equal(t, uint64(5), s.Seen())
}

func TestSampler_Reservoir(t *testing.T) {
	collect := func(seed uint64) [][]byte {
		s, err := NewSampler(10, StrategyReservoir, seed)
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			s.Add([]byte(fmt.Sprintf("item-%04d", i)))
		}
		assert.Len(t, s.Samples(), 10)
		assert.Equal(t, uint64(1000), s.Seen())
		return s.Samples()
	}

	a := collect(42)
	assert.Equal(t, a, collect(42), "same seed, same samples")
	assert.NotEqual(t, a, collect(43))

	t.Run("under the limit keeps everything in order", func(t *testing.T) {
		s, err := NewSampler(10, StrategyReservoir, 1)
		require.NoError(t, err)
		s.Add([]byte("a"))
		s.Add([]byte("b"))
		assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, s.Samples())
	})
}

func TestNewSampler_Errors(t *testing.T) {
	_, err := NewSampler(0, StrategyAccumulator, 0)
	assert.Error(t, err)
	_, err = NewSampler(-5, StrategyReservoir, 0)
	assert.Error(t, err)
	_, err = NewSampler(10, Strategy(9), 0)
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{StrategyAccumulator, StrategyReservoir} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAccumulator, got)
	_, err = ParseStrategy("uniform")
	assert.Error(t, err)
}
