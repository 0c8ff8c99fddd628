// internal/exchange/raydium/raydium.go
package raydium

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/blockchain"
	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/fees"
)

// DEX implements the venue capability surface against Raydium AMM v4 pools.
type DEX struct {
	client      blockchain.Client
	estimator   *fees.Estimator
	logger      *zap.Logger
	pollEvery   time.Duration
	settleEvery time.Duration

	// consecutive quote failures; reset on any successful quote
	quoteErrors atomic.Int64
}

// New creates a Raydium venue bound to a ledger client and a fee source.
func New(client blockchain.Client, estimator *fees.Estimator, logger *zap.Logger) *DEX {
	return &DEX{
		client:      client,
		estimator:   estimator,
		logger:      logger.Named("raydium"),
		pollEvery:   pollInterval,
		settleEvery: finalizeBackoff,
	}
}

// QuoteErrors returns the number of consecutive quote failures. The counter
// is diagnostic only; no policy hangs off it.
func (d *DEX) QuoteErrors() int64 {
	return d.quoteErrors.Load()
}

var _ exchange.Exchange = (*DEX)(nil)
