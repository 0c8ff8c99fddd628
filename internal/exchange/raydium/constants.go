// internal/exchange/raydium/constants.go
package raydium

import "github.com/gagliardetto/solana-go"

// Program IDs.
var (
	TokenProgramID     = solana.MPK("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	RaydiumV4ProgramID = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	SystemProgramID    = solana.MPK("11111111111111111111111111111111")
	WrappedSolMint     = solana.MPK("So11111111111111111111111111111111111111112")
)

// Compute budget bounds.
const (
	MaxComputeUnitLimit = 300000
	DefaultComputeUnits = 200000
	MinSwapAmount       = 1000
)

// AMM v4 pool account layout.
const (
	PoolAccountSize  = 388
	BaseMintOffset   = 8
	QuoteMintOffset  = 40
	BaseVaultOffset  = 104
	QuoteVaultOffset = 136
	DecimalsOffset   = 168
	BaseReserveOff   = 64
	QuoteReserveOff  = 72
	PoolStatusOff    = 88
)

// Pool status values.
const (
	PoolStatusUninitialized uint8 = 0
	PoolStatusInitialized   uint8 = 1
	PoolStatusDisabled      uint8 = 2
	PoolStatusActive        uint8 = 3
)

// AmmAuthoritySeed derives the pool authority PDA.
const AmmAuthoritySeed = "amm_authority"

// Venue fee: 25 basis points taken from the input amount.
const (
	FeeNumerator   = 25
	FeeDenominator = 10000
)
