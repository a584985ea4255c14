package trainer

import (
	"fmt"
	"math/rand/v2"
)

// Strategy selects how samples are replaced once the sampler is full.
type Strategy uint8

const (
	// StrategyAccumulator replaces slot acc%limit, where acc is updated for
	// every item as (acc+len)*37 with wrapping arithmetic. Deterministic, but
	// items do not have equal inclusion probability.
	StrategyAccumulator Strategy = iota
	// StrategyReservoir is Algorithm R driven by a PCG generator seeded once
	// per run: uniform inclusion, deterministic for a given seed, independent
	// of item content.
	StrategyReservoir
)

// String returns the string representation of the Strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyAccumulator:
		return "accumulator"
	case StrategyReservoir:
		return "reservoir"
	default:
		return "unknown"
	}
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "accumulator", "":
		return StrategyAccumulator, nil
	case "reservoir":
		return StrategyReservoir, nil
	default:
		return 0, fmt.Errorf("unknown sampling strategy %q", s)
	}
}

// Sampler keeps at most limit samples out of a stream of items.
type Sampler struct {
	limit    int
	strategy Strategy
	samples  [][]byte

	acc  uint64     // accumulator strategy state
	seen uint64     // items offered so far
	rng  *rand.Rand // reservoir strategy state
}

// NewSampler returns an empty sampler. seed is only used by StrategyReservoir.
func NewSampler(limit int, strategy Strategy, seed uint64) (*Sampler, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("sample limit must be positive, got %d", limit)
	}
	s := &Sampler{
		limit:    limit,
		strategy: strategy,
		samples:  make([][]byte, 0, min(limit, 1024)),
	}
	switch strategy {
	case StrategyAccumulator:
	case StrategyReservoir:
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	default:
		return nil, fmt.Errorf("unknown sampling strategy %d", strategy)
	}
	return s, nil
}

// Add offers one item. The sampler takes ownership of item.
func (s *Sampler) Add(item []byte) {
	s.seen++
	switch s.strategy {
	case StrategyReservoir:
		if len(s.samples) < s.limit {
			s.samples = append(s.samples, item)
			return
		}
		if j := s.rng.Uint64N(s.seen); j < uint64(s.limit) {
			s.samples[j] = item
		}
	default:
		s.acc = (s.acc + uint64(len(item))) * 37
		if len(s.samples) < s.limit {
			s.samples = append(s.samples, item)
			return
		}
		s.samples[s.acc%uint64(s.limit)] = item
	}
}

// Samples returns the collected samples in slot order.
func (s *Sampler) Samples() [][]byte {
	return s.samples
}

// Seen returns the number of items offered.
func (s *Sampler) Seen() uint64 {
	return s.seen
}
