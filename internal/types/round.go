// internal/types/round.go
package types

import "math"

// BankersRound rounds to the nearest whole number, breaking exact .5 ties
// toward the even neighbour. Always-up rounding would bias amount
// conversions upward across many trades.
func BankersRound(num float64) uint64 {
	rounded := math.Round(num)
	isHalf := num-math.Floor(num) == 0.5
	if isHalf && math.Mod(rounded, 2) != 0 {
		rounded--
	}
	if rounded < 0 {
		return 0
	}
	return uint64(rounded)
}
