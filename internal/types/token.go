// internal/types/token.go
package types

import (
	"github.com/gagliardetto/solana-go"
)

var (
	// WrappedSolMint is the native SOL mint address.
	WrappedSolMint = solana.MPK("So11111111111111111111111111111111111111112")
	// WrappedSol2022Mint is the token-2022 native mint.
	WrappedSol2022Mint = solana.MPK("9pan9bMn5HatX4EJdBwg9VgCa7Uz5HL8N1m5D3NdXejP")
)

// Token is read-only reference data for a tradeable asset.
type Token struct {
	Mint     solana.PublicKey
	Decimals uint8
	Symbol   string
}

// SOL is the native token reference.
var SOL = Token{Mint: WrappedSolMint, Decimals: 9, Symbol: "SOL"}

// IsNativeMint reports whether the mint is a wrapped-SOL mint.
func IsNativeMint(mint solana.PublicKey) bool {
	return mint.Equals(WrappedSolMint) || mint.Equals(WrappedSol2022Mint)
}

// IsNative reports whether the token is native SOL.
func (t Token) IsNative() bool {
	return IsNativeMint(t.Mint)
}
