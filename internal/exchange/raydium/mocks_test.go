// internal/exchange/raydium/mocks_test.go
package raydium

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/solkit/solkit/internal/blockchain"
	"github.com/solkit/solkit/internal/fees"
	"github.com/solkit/solkit/internal/wallet"
)

// MockClient implements blockchain.Client for tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Get(1).(uint64), args.Error(2)
}

func (m *MockClient) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetAccountInfoResult), args.Error(1)
}

func (m *MockClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blockchain.SimulationResult), args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetSignatureStatusesResult), args.Error(1)
}

func (m *MockClient) GetTransaction(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) (*rpc.GetTransactionResult, error) {
	args := m.Called(ctx, signature, commitment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetTransactionResult), args.Error(1)
}

func (m *MockClient) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) (*rpc.GetTokenAccountsResult, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetTokenAccountsResult), args.Error(1)
}

func (m *MockClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetTokenAccountBalanceResult), args.Error(1)
}

var _ blockchain.Client = (*MockClient)(nil)

// newTestDEX builds a venue with a fast poll cadence for tests.
func newTestDEX(client blockchain.Client, estimator *fees.Estimator) *DEX {
	return &DEX{
		client:      client,
		estimator:   estimator,
		logger:      zap.NewNop(),
		pollEvery:   time.Millisecond,
		settleEvery: time.Millisecond,
	}
}

func testWallet() *wallet.Wallet {
	return wallet.Generate()
}

// testPoolData assembles a minimal AMM v4 account image.
func testPoolData(baseMint, quoteMint solana.PublicKey, baseReserve, quoteReserve uint64, status uint8) []byte {
	data := make([]byte, PoolAccountSize)
	copy(data[BaseMintOffset:], baseMint.Bytes())
	copy(data[QuoteMintOffset:], quoteMint.Bytes())
	copy(data[BaseVaultOffset:], solana.NewWallet().PublicKey().Bytes())
	copy(data[QuoteVaultOffset:], solana.NewWallet().PublicKey().Bytes())
	data[DecimalsOffset] = 6
	data[DecimalsOffset+1] = 9
	binary.LittleEndian.PutUint64(data[BaseReserveOff:], baseReserve)
	binary.LittleEndian.PutUint64(data[QuoteReserveOff:], quoteReserve)
	data[PoolStatusOff] = status
	return data
}

func accountInfoResult(data []byte) *rpc.GetAccountInfoResult {
	wrapped := rpc.DataBytesOrJSONFromBytes(data)
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: wrapped},
	}
}

// statusResult wraps a single signature status.
func statusResult(status rpc.ConfirmationStatusType, txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: status, Err: txErr},
		},
	}
}

func pendingResult() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
}
