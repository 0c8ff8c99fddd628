// internal/exchange/exchange.go
package exchange

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solkit/solkit/internal/fees"
	"github.com/solkit/solkit/internal/types"
	"github.com/solkit/solkit/internal/wallet"
)

// Direction is the trade side relative to the pool's base token.
type Direction int

const (
	// DirectionBuy spends the quote token (SOL) for the base token.
	DirectionBuy Direction = iota
	// DirectionSell spends the base token for the quote token (SOL).
	DirectionSell
)

func (d Direction) String() string {
	if d == DirectionBuy {
		return "buy"
	}
	return "sell"
}

// Pool is the minimal view of a liquidity pool the facade needs. Concrete
// venues carry richer decoded state behind this.
type Pool interface {
	Address() solana.PublicKey
	BaseMint() solana.PublicKey
	QuoteMint() solana.PublicKey
}

// Quote is an immutable snapshot of expected trade terms. MinAmountOut is
// always <= AmountOut; both are smallest-unit integers.
type Quote struct {
	PoolID       solana.PublicKey
	Direction    Direction
	TokenIn      solana.PublicKey
	TokenOut     solana.PublicKey
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	Slippage     types.Percent
}

// BuiltSwap is a fully signed transaction ready for submission, together
// with the expiry bound and the priority fee it commits to.
type BuiltSwap struct {
	Tx                   *solana.Transaction
	Signature            solana.Signature
	LastValidBlockHeight uint64
	// PriorityFeeLamports is the total priority fee the transaction will
	// pay if it lands, already converted from micro-lamports per unit.
	PriorityFeeLamports uint64
	Quote               *Quote
}

// ConfirmationStatus orders cluster commitment levels. The zero value is
// Pending; ordering is meaningful and used for monotonic status retention.
type ConfirmationStatus int

const (
	StatusPending ConfirmationStatus = iota
	StatusProcessed
	StatusConfirmed
	StatusFinalized
	// StatusError means the cluster executed the transaction and it failed.
	StatusError
)

func (s ConfirmationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessed:
		return "processed"
	case StatusConfirmed:
		return "confirmed"
	case StatusFinalized:
		return "finalized"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// AtLeast reports whether the status has reached the given commitment tier.
func (s ConfirmationStatus) AtLeast(other ConfirmationStatus) bool {
	return s >= other && s != StatusError
}

// ExecOptions tunes a single build/execute run. The zero value is not
// usable; callers start from config defaults.
type ExecOptions struct {
	// MaxFeeFraction rejects builds whose priority fee exceeds this
	// fraction of the guaranteed minimum output.
	MaxFeeFraction float64
	// ComputeBudgetMargin is the headroom added on top of simulated
	// compute units.
	ComputeBudgetMargin float64
	// Simulate dry-runs the transaction before committing to a build.
	Simulate bool
	// ReQuote refreshes the quote against live reserves before building.
	ReQuote bool
	// FeeLevel picks a priority-fee tier.
	FeeLevel fees.Level
	// WaitForBlock bounds the confirmation wait by the transaction's
	// blockhash expiry height, waiting out the full validity window.
	// When false the watch gives up after the initial poll window and
	// reports an ambiguous outcome instead of a proven one.
	WaitForBlock bool
	// SendOnly returns after submission without awaiting confirmation.
	SendOnly bool
	// Finalize runs the extended finalization watch after confirmation.
	Finalize bool
}

// SwapResult is the settled outcome of an executed swap.
type SwapResult struct {
	Signature    solana.Signature
	Status       ConfirmationStatus
	AmountOut    uint64
	MinAmountOut uint64
	// RealizedAmountOut is the actual inbound transfer parsed from the
	// landed transaction, zero when settlement could not be read.
	RealizedAmountOut uint64
	// FeePaid is the base transaction fee plus the priority fee, lamports.
	FeePaid uint64
}

// Exchange is the venue capability surface. Implementations are stateless
// with respect to wallets; all signing material is passed per call.
type Exchange interface {
	// GetPool fetches and decodes current pool state.
	GetPool(ctx context.Context, poolID solana.PublicKey) (Pool, error)
	// GetQuote computes expected trade terms against live reserves.
	GetQuote(ctx context.Context, poolID solana.PublicKey, direction Direction, amountIn uint64, slippage types.Percent) (*Quote, error)
	// BuildSwap produces a signed, fee-guarded transaction or fails with
	// no partial result.
	BuildSwap(ctx context.Context, w *wallet.Wallet, quote *Quote, opts ExecOptions) (*BuiltSwap, error)
	// ExecuteSwap submits the transaction and drives it to a terminal
	// outcome per opts.
	ExecuteSwap(ctx context.Context, w *wallet.Wallet, swap *BuiltSwap, opts ExecOptions) (*SwapResult, error)
	// ConfirmTransaction awaits confirmation of an already-sent signature.
	ConfirmTransaction(ctx context.Context, signature solana.Signature, lastValidBlockHeight uint64) (ConfirmationStatus, error)
}
