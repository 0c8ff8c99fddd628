// internal/types/amount.go
package types

import (
	"github.com/shopspring/decimal"
)

const (
	// LamportsPerSOL is the number of lamports in one SOL.
	LamportsPerSOL = 1_000_000_000
	// MicroLamportsPerLamport converts priority-fee units (micro-lamports
	// per compute unit) into lamports.
	MicroLamportsPerLamport = 1_000_000
)

// SOLToLamports converts a UI SOL amount into lamports using banker's
// rounding on the fractional lamport.
func SOLToLamports(sol float64) uint64 {
	return BankersRound(sol * LamportsPerSOL)
}

// UIToRaw converts a human-decimal token amount into its smallest-unit form.
func UIToRaw(amount float64, decimals uint8) uint64 {
	return BankersRound(amount * pow10(decimals))
}

// RawToUI converts a smallest-unit amount into its human-decimal form.
func RawToUI(amount uint64, decimals uint8) float64 {
	multiplier := decimal.New(1, int32(decimals))
	ui, _ := decimal.NewFromUint64(amount).Div(multiplier).Float64()
	return ui
}

// FormatRaw renders a smallest-unit amount with full decimal precision.
func FormatRaw(amount uint64, decimals uint8) string {
	multiplier := decimal.New(1, int32(decimals))
	return decimal.NewFromUint64(amount).Div(multiplier).StringFixed(int32(decimals))
}

func pow10(decimals uint8) float64 {
	result := 1.0
	for i := uint8(0); i < decimals; i++ {
		result *= 10
	}
	return result
}
