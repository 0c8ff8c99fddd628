// internal/exchange/raydium/pool.go
package raydium

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/exchange"
)

// Pool is a decoded AMM v4 pool account snapshot. Reserves are point-in-time
// values; quotes derived from them are estimates, not guarantees.
type Pool struct {
	ID            solana.PublicKey
	Authority     solana.PublicKey
	BaseMintAddr  solana.PublicKey
	QuoteMintAddr solana.PublicKey
	BaseVault     solana.PublicKey
	QuoteVault    solana.PublicKey
	BaseDecimals  uint8
	QuoteDecimals uint8
	BaseReserve   uint64
	QuoteReserve  uint64
	Status        uint8
}

func (p *Pool) Address() solana.PublicKey   { return p.ID }
func (p *Pool) BaseMint() solana.PublicKey  { return p.BaseMintAddr }
func (p *Pool) QuoteMint() solana.PublicKey { return p.QuoteMintAddr }

// IsNative reports whether one side of the pool is wrapped SOL.
func (p *Pool) IsNative() bool {
	return p.BaseMintAddr.Equals(WrappedSolMint) || p.QuoteMintAddr.Equals(WrappedSolMint)
}

// GetPool fetches and decodes the pool account, validating its status and
// liquidity.
func (d *DEX) GetPool(ctx context.Context, poolID solana.PublicKey) (exchange.Pool, error) {
	return d.fetchPool(ctx, poolID)
}

func (d *DEX) fetchPool(ctx context.Context, poolID solana.PublicKey) (*Pool, error) {
	account, err := d.client.GetAccountInfo(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account: %w", err)
	}
	if account == nil || account.Value == nil {
		return nil, fmt.Errorf("pool account %s not found", poolID)
	}

	data := account.Value.Data.GetBinary()
	if len(data) < PoolAccountSize {
		return nil, fmt.Errorf("invalid pool account data: %d bytes", len(data))
	}

	authority, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(AmmAuthoritySeed)},
		RaydiumV4ProgramID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive authority: %w", err)
	}

	pool := &Pool{
		ID:            poolID,
		Authority:     authority,
		BaseMintAddr:  solana.PublicKeyFromBytes(data[BaseMintOffset : BaseMintOffset+32]),
		QuoteMintAddr: solana.PublicKeyFromBytes(data[QuoteMintOffset : QuoteMintOffset+32]),
		BaseVault:     solana.PublicKeyFromBytes(data[BaseVaultOffset : BaseVaultOffset+32]),
		QuoteVault:    solana.PublicKeyFromBytes(data[QuoteVaultOffset : QuoteVaultOffset+32]),
		BaseDecimals:  data[DecimalsOffset],
		QuoteDecimals: data[DecimalsOffset+1],
		BaseReserve:   binary.LittleEndian.Uint64(data[BaseReserveOff : BaseReserveOff+8]),
		QuoteReserve:  binary.LittleEndian.Uint64(data[QuoteReserveOff : QuoteReserveOff+8]),
		Status:        data[PoolStatusOff],
	}

	if err := validatePool(pool); err != nil {
		return nil, err
	}

	d.logger.Debug("pool decoded",
		zap.String("pool_id", poolID.String()),
		zap.String("base_mint", pool.BaseMintAddr.String()),
		zap.String("quote_mint", pool.QuoteMintAddr.String()),
		zap.Uint64("base_reserve", pool.BaseReserve),
		zap.Uint64("quote_reserve", pool.QuoteReserve))

	return pool, nil
}

func validatePool(pool *Pool) error {
	if pool.Status != PoolStatusActive {
		return fmt.Errorf("pool %s is not active: status=%d", pool.ID, pool.Status)
	}
	if pool.BaseReserve == 0 || pool.QuoteReserve == 0 {
		return fmt.Errorf("pool %s has no liquidity", pool.ID)
	}
	return nil
}
