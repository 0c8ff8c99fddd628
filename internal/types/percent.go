// internal/types/percent.go
package types

import (
	"fmt"
	"math"
	"math/big"
)

// Percent is a rational fraction used for slippage tolerances. Keeping the
// numerator/denominator form instead of a float lets amount math stay exact:
// on-chain amounts are integral smallest-unit quantities and repeated quotes
// must not accumulate rounding drift.
type Percent struct {
	Numerator   uint64
	Denominator uint64
}

// NewPercent builds a Percent and validates that it lies in (0, 1].
func NewPercent(numerator, denominator uint64) (Percent, error) {
	if denominator == 0 {
		return Percent{}, fmt.Errorf("percent denominator cannot be zero")
	}
	if numerator == 0 {
		return Percent{}, fmt.Errorf("percent numerator cannot be zero")
	}
	if numerator > denominator {
		return Percent{}, fmt.Errorf("percent %d/%d exceeds 1", numerator, denominator)
	}
	return Percent{Numerator: numerator, Denominator: denominator}, nil
}

// ParsePercent converts a human percentage (e.g. 0.5 meaning 0.5%) into a
// rational fraction of the whole. Fractional inputs are scaled by powers of
// ten until the numerator is integral.
func ParsePercent(value float64) (Percent, error) {
	if value <= 0 || value > 100 {
		return Percent{}, fmt.Errorf("percent value %v out of range (0, 100]", value)
	}

	numerator := value
	denominator := float64(100)
	for numerator != math.Trunc(numerator) {
		numerator *= 10
		denominator *= 10
		if denominator > 1e15 {
			return Percent{}, fmt.Errorf("percent value %v has too many decimal places", value)
		}
	}
	return NewPercent(uint64(numerator), uint64(denominator))
}

// ApplySlippage returns amount reduced by the fraction, floored:
// amount * (denominator - numerator) / denominator. The result is always
// <= amount; the computation goes through big.Int to survive u64 overflow
// in the intermediate product.
func (p Percent) ApplySlippage(amount uint64) uint64 {
	keep := new(big.Int).SetUint64(p.Denominator - p.Numerator)
	out := new(big.Int).SetUint64(amount)
	out.Mul(out, keep)
	out.Quo(out, new(big.Int).SetUint64(p.Denominator))
	return out.Uint64()
}

func (p Percent) String() string {
	return fmt.Sprintf("%d/%d", p.Numerator, p.Denominator)
}
