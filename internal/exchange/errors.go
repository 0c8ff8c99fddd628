// internal/exchange/errors.go
package exchange

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// QuoteError means a quote could not be produced from current pool state.
type QuoteError struct {
	PoolID solana.PublicKey
	Err    error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("quote failed for pool %s: %v", e.PoolID, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// FeeTooHighError rejects a build whose priority fee would eat more than
// the configured fraction of the guaranteed minimum output. Nothing was
// submitted.
type FeeTooHighError struct {
	FeeLamports uint64
	MaxLamports uint64
}

func (e *FeeTooHighError) Error() string {
	return fmt.Sprintf("priority fee %d lamports exceeds cap %d lamports", e.FeeLamports, e.MaxLamports)
}

// SimulationError carries a classified on-chain error from a dry run. The
// build is aborted before submission.
type SimulationError struct {
	Classification string
	Detail         string
	Logs           []string
}

func (e *SimulationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("simulation failed: %s (%s)", e.Classification, e.Detail)
	}
	return fmt.Sprintf("simulation failed: %s", e.Classification)
}

// SubmissionError means every send attempt was rejected by the RPC node.
// Non-fatal to the overall run: the transaction may still have reached the
// cluster through an earlier attempt.
type SubmissionError struct {
	Attempts int
	LastErr  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("all %d send attempts failed: %v", e.Attempts, e.LastErr)
}

func (e *SubmissionError) Unwrap() error { return e.LastErr }

// DefinitelyFailedError is a proven negative outcome: either the cluster
// executed the transaction and reported an error, or its blockhash expired
// past the finalized height without the transaction landing.
type DefinitelyFailedError struct {
	Signature solana.Signature
	Detail    string
}

func (e *DefinitelyFailedError) Error() string {
	return fmt.Sprintf("transaction %s definitely failed: %s", e.Signature, e.Detail)
}

// AmbiguousError means the outcome could not be proven either way before
// the watch ended. Callers must not treat this as failure; the transaction
// may still land, or may have landed with an unreadable settlement.
type AmbiguousError struct {
	Signature  solana.Signature
	LastStatus ConfirmationStatus
	// Err carries the underlying cause when one exists, such as a
	// settlement that could not be read back from the ledger.
	Err error
}

func (e *AmbiguousError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction %s outcome unknown, last status %s: %v", e.Signature, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("transaction %s outcome unknown, last status %s", e.Signature, e.LastStatus)
}

func (e *AmbiguousError) Unwrap() error { return e.Err }
