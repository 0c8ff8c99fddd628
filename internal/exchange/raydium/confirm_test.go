// internal/exchange/raydium/confirm_test.go
package raydium

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/exchange"
	"github.com/solkit/solkit/internal/wallet"
)

func testBuiltSwap(lastValidBlockHeight uint64) *exchange.BuiltSwap {
	sig := solana.Signature{1, 2, 3}
	return &exchange.BuiltSwap{
		Tx:                   &solana.Transaction{},
		Signature:            sig,
		LastValidBlockHeight: lastValidBlockHeight,
		Quote:                &exchange.Quote{AmountOut: 100, MinAmountOut: 99},
	}
}

func stubSends(client *MockClient) {
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{1, 2, 3}, nil)
}

func TestSendAndConfirm_PendingThenConfirmed(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil).Times(3)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil).Once()

	status, err := dex.sendAndConfirm(context.Background(), swap, swap.LastValidBlockHeight, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusConfirmed, status)
}

func TestSendAndConfirm_ExpiryProvesFailure(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	swap := testBuiltSwap(100)

	stubSends(client)
	// Never lands; the finalized height then passes the expiry bound.
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil)
	client.On("GetBlockHeight", mock.Anything, rpc.CommitmentFinalized).
		Return(uint64(101), nil)

	status, err := dex.sendAndConfirm(context.Background(), swap, swap.LastValidBlockHeight, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, exchange.StatusError, status)

	var failedErr *exchange.DefinitelyFailedError
	require.ErrorAs(t, err, &failedErr)
	assert.Contains(t, failedErr.Detail, "expired")
}

func TestSendAndConfirm_OnChainErrorFailsImmediately(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	swap := testBuiltSwap(1000)

	stubSends(client)
	txErr := map[string]interface{}{
		"InstructionError": []interface{}{float64(1), map[string]interface{}{"Custom": float64(40)}},
	}
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult("", txErr), nil)

	status, err := dex.sendAndConfirm(context.Background(), swap, swap.LastValidBlockHeight, zap.NewNop())
	require.Error(t, err)
	assert.Equal(t, exchange.StatusError, status)

	var failedErr *exchange.DefinitelyFailedError
	require.ErrorAs(t, err, &failedErr)
	assert.Contains(t, failedErr.Detail, "insufficient_funds")
}

func TestSendAndConfirm_UnknownExpiryBoundIsAmbiguous(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	// No expiry bound: failure can never be proven.
	swap := testBuiltSwap(0)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil)

	_, err := dex.sendAndConfirm(context.Background(), swap, swap.LastValidBlockHeight, zap.NewNop())
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	require.ErrorAs(t, err, &ambiguousErr)
	assert.Equal(t, exchange.StatusPending, ambiguousErr.LastStatus)
}

func TestAwaitFinalized_StatusRegressionIgnored(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	sig := solana.Signature{7}

	// A lagging node reports processed after confirmed was already seen.
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusProcessed, nil), nil).Times(2)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusFinalized, nil), nil).Once()

	status, err := dex.awaitFinalized(context.Background(), sig, 1000, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFinalized, status)
}

func TestSendAndConfirm_CancellationIsAmbiguous(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil)
	client.On("GetBlockHeight", mock.Anything, rpc.CommitmentFinalized).
		Return(uint64(50), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := dex.sendAndConfirm(ctx, swap, swap.LastValidBlockHeight, zap.NewNop())
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	assert.ErrorAs(t, err, &ambiguousErr)
}

// settledTxResult wraps a real encoded transaction plus its meta the way
// the RPC layer returns them.
func settledTxResult(t *testing.T, w *wallet.Wallet, meta *rpc.TransactionMeta) *rpc.GetTransactionResult {
	t.Helper()
	ix := system.NewTransferInstruction(1, w.PublicKey, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1}, solana.TransactionPayer(w.PublicKey))
	require.NoError(t, err)
	require.NoError(t, w.SignTransaction(tx))
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	payload := fmt.Sprintf(`["%s","base64"]`, base64.StdEncoding.EncodeToString(raw))
	var envelope rpc.TransactionResultEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))
	return &rpc.GetTransactionResult{Transaction: &envelope, Meta: meta}
}

// swapMeta builds transaction meta whose token accounts arrive through an
// address lookup table: writable [ownerATA, vault] then readonly [token
// program], appended after the three static transfer keys.
func swapMeta(inner ...solana.CompiledInstruction) *rpc.TransactionMeta {
	return &rpc.TransactionMeta{
		Fee: 5000,
		LoadedAddresses: rpc.LoadedAddresses{
			Writable: []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()},
			ReadOnly: []solana.PublicKey{TokenProgramID},
		},
		InnerInstructions: []rpc.InnerInstruction{{Instructions: inner}},
	}
}

func TestExecuteSwap_NoInboundTransferIsAmbiguous(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	w := testWallet()
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)
	// Only the outbound leg is present: the wallet paid but nothing came
	// back. Status polling said confirmed, so no verdict can be given.
	client.On("GetTransaction", mock.Anything, swap.Signature, rpc.CommitmentConfirmed).
		Return(settledTxResult(t, w, swapMeta(transferIx(5, 3, 4, 0, 1_000_000))), nil)

	result, err := dex.ExecuteSwap(context.Background(), w, swap, exchange.ExecOptions{WaitForBlock: true})
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	require.ErrorAs(t, err, &ambiguousErr)
	assert.Equal(t, exchange.StatusConfirmed, ambiguousErr.LastStatus)
	assert.ErrorIs(t, err, ErrNoInboundTransfer)
	require.NotNil(t, result)
	assert.Zero(t, result.RealizedAmountOut)
}

func TestExecuteSwap_UnreadableSettlementIsAmbiguous(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	w := testWallet()
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)
	client.On("GetTransaction", mock.Anything, swap.Signature, rpc.CommitmentConfirmed).
		Return(nil, assert.AnError)

	result, err := dex.ExecuteSwap(context.Background(), w, swap, exchange.ExecOptions{WaitForBlock: true})
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	require.ErrorAs(t, err, &ambiguousErr)
	require.NotNil(t, result)
	assert.Zero(t, result.RealizedAmountOut)
}

func TestExecuteSwap_NoWaitGivesUpAmbiguous(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	w := testWallet()
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil)

	// Not waiting out the expiry window: the watch gives up without ever
	// consulting the height oracle.
	_, err := dex.ExecuteSwap(context.Background(), w, swap, exchange.ExecOptions{WaitForBlock: false})
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	require.ErrorAs(t, err, &ambiguousErr)
	client.AssertNotCalled(t, "GetBlockHeight", mock.Anything, mock.Anything)
}

func TestExecuteSwap_FinalizeRetriesSettlementRead(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	w := testWallet()
	swap := testBuiltSwap(1000)

	stubSends(client)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusFinalized, nil), nil)
	// The queried node lags once before serving the finalized trace.
	client.On("GetTransaction", mock.Anything, swap.Signature, rpc.CommitmentConfirmed).
		Return(nil, assert.AnError).Once()
	client.On("GetTransaction", mock.Anything, swap.Signature, rpc.CommitmentConfirmed).
		Return(settledTxResult(t, w, swapMeta(
			transferIx(5, 3, 4, 0, 1_000_000),
			transferIx(5, 4, 3, 1, 42_000),
		)), nil).Once()

	result, err := dex.ExecuteSwap(context.Background(), w, swap, exchange.ExecOptions{WaitForBlock: true, Finalize: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(42_000), result.RealizedAmountOut)
	assert.Equal(t, uint64(5000), result.FeePaid)
	client.AssertNumberOfCalls(t, "GetTransaction", 2)
}

func TestConfirmTransaction_Success(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	sig := solana.Signature{9}

	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(pendingResult(), nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusFinalized, nil), nil).Once()

	status, err := dex.ConfirmTransaction(context.Background(), sig, 1000)
	require.NoError(t, err)
	assert.Equal(t, exchange.StatusFinalized, status)
	client.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything)
}

func TestAwaitFinalized_ExpiryIsAmbiguousNotFailed(t *testing.T) {
	client := new(MockClient)
	dex := newTestDEX(client, nil)
	sig := solana.Signature{7}

	// Stuck at confirmed while the chain moves past the expiry bound.
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).
		Return(statusResult(rpc.ConfirmationStatusConfirmed, nil), nil)
	client.On("GetBlockHeight", mock.Anything, rpc.CommitmentFinalized).
		Return(uint64(200), nil)

	_, err := dex.awaitFinalized(context.Background(), sig, 100, zap.NewNop())
	require.Error(t, err)

	var ambiguousErr *exchange.AmbiguousError
	require.ErrorAs(t, err, &ambiguousErr)
	assert.Equal(t, exchange.StatusConfirmed, ambiguousErr.LastStatus)
}
