package farming

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

// PoolValuation converts raw pool shares into the valued shares that weigh a
// deposit inside its yield farm.
type PoolValuation interface {
	ValuedShares(poolID string, shares *uint256.Int) (*uint256.Int, error)
}

// StaticValuation values shares with a fixed per-pool factor. Pools without a
// configured factor are valued one to one.
type StaticValuation struct {
	mu      sync.RWMutex
	factors map[string]Fixed
}

// NewStaticValuation builds a valuation from a pool to factor map.
func NewStaticValuation(factors map[string]Fixed) *StaticValuation {
	v := &StaticValuation{factors: make(map[string]Fixed, len(factors))}
	for pool, factor := range factors {
		v.factors[normalizePoolID(pool)] = factor
	}
	return v
}

// SetFactor updates the valuation factor for a pool.
func (v *StaticValuation) SetFactor(poolID string, factor Fixed) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.factors == nil {
		v.factors = make(map[string]Fixed)
	}
	v.factors[normalizePoolID(poolID)] = factor
}

func (v *StaticValuation) ValuedShares(poolID string, shares *uint256.Int) (*uint256.Int, error) {
	v.mu.RLock()
	factor, ok := v.factors[normalizePoolID(poolID)]
	v.mu.RUnlock()
	if !ok {
		return cloneAmount(shares), nil
	}
	valued, err := factor.MulInt(shares)
	if err != nil {
		return nil, fmt.Errorf("value shares for pool %s: %w", poolID, err)
	}
	return valued, nil
}

// ValuationFunc adapts a function into a PoolValuation.
type ValuationFunc func(poolID string, shares *uint256.Int) (*uint256.Int, error)

func (f ValuationFunc) ValuedShares(poolID string, shares *uint256.Int) (*uint256.Int, error) {
	return f(poolID, shares)
}
