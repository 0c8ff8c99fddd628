// internal/exchange/raydium/quote.go
package raydium

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/types"
)

// GetQuote computes expected trade terms against live pool reserves using
// the constant-product formula with the venue fee taken from the input.
func (d *DEX) GetQuote(ctx context.Context, poolID solana.PublicKey, direction exchange.Direction, amountIn uint64, slippage types.Percent) (*exchange.Quote, error) {
	pool, err := d.fetchPool(ctx, poolID)
	if err != nil {
		d.quoteErrors.Add(1)
		return nil, &exchange.QuoteError{PoolID: poolID, Err: err}
	}

	quote, err := computeQuote(pool, direction, amountIn, slippage)
	if err != nil {
		d.quoteErrors.Add(1)
		return nil, &exchange.QuoteError{PoolID: poolID, Err: err}
	}
	d.quoteErrors.Store(0)

	d.logger.Debug("quote",
		zap.String("pool_id", poolID.String()),
		zap.String("direction", direction.String()),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("amount_out", quote.AmountOut),
		zap.Uint64("min_amount_out", quote.MinAmountOut))

	return quote, nil
}

// computeQuote is the pure constant-product step. Buying spends the quote
// (SOL) side; selling spends the base side. All arithmetic is integral.
func computeQuote(pool *Pool, direction exchange.Direction, amountIn uint64, slippage types.Percent) (*exchange.Quote, error) {
	if amountIn < MinSwapAmount {
		return nil, fmt.Errorf("amount %d below minimum swap size %d", amountIn, MinSwapAmount)
	}

	var reserveIn, reserveOut uint64
	var tokenIn, tokenOut solana.PublicKey
	switch direction {
	case exchange.DirectionBuy:
		reserveIn, reserveOut = pool.QuoteReserve, pool.BaseReserve
		tokenIn, tokenOut = pool.QuoteMintAddr, pool.BaseMintAddr
	case exchange.DirectionSell:
		reserveIn, reserveOut = pool.BaseReserve, pool.QuoteReserve
		tokenIn, tokenOut = pool.BaseMintAddr, pool.QuoteMintAddr
	default:
		return nil, fmt.Errorf("invalid direction %d", direction)
	}

	amountOut := constantProductOut(amountIn, reserveIn, reserveOut)
	if amountOut == 0 {
		return nil, fmt.Errorf("amount %d yields zero output against reserves %d/%d", amountIn, reserveIn, reserveOut)
	}

	return &exchange.Quote{
		PoolID:       pool.ID,
		Direction:    direction,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		MinAmountOut: slippage.ApplySlippage(amountOut),
		Slippage:     slippage,
	}, nil
}

// constantProductOut computes the output amount for x*y=k with the venue
// fee deducted from the input. The intermediate products exceed u64, so the
// whole computation runs in big.Int:
//
//	inWithFee = in * (feeDen - feeNum)
//	out       = inWithFee * reserveOut / (reserveIn * feeDen + inWithFee)
func constantProductOut(amountIn, reserveIn, reserveOut uint64) uint64 {
	inWithFee := new(big.Int).SetUint64(amountIn)
	inWithFee.Mul(inWithFee, big.NewInt(FeeDenominator-FeeNumerator))

	numerator := new(big.Int).Mul(inWithFee, new(big.Int).SetUint64(reserveOut))

	denominator := new(big.Int).SetUint64(reserveIn)
	denominator.Mul(denominator, big.NewInt(FeeDenominator))
	denominator.Add(denominator, inWithFee)

	return new(big.Int).Quo(numerator, denominator).Uint64()
}
