package ethereum

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

type fakeTxBackend struct {
	mu          sync.Mutex
	nonce       uint64
	sent        []*types.Transaction
	receiptAt   int // poll count at which the receipt appears
	receiptPoll int
}

func (f *fakeTxBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeTxBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeTxBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeTxBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptPoll++
	if f.receiptPoll < f.receiptAt {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(77), GasUsed: 210000}, nil
}

type fixedFees struct{ fd *domain.FeeData }

func (f fixedFees) FeeData(context.Context) (*domain.FeeData, error) { return f.fd, nil }

func TestSigner_SendsDynamicFeeTx(t *testing.T) {
	backend := &fakeTxBackend{nonce: 5}
	fees := fixedFees{fd: domain.NewFeeData(big.NewInt(30e9), big.NewInt(20e9), big.NewInt(1e9), time.Now())}

	s, err := NewSigner("0x"+testKey, backend, fees, logger.NewNop())
	require.NoError(t, err)

	key, err := crypto.HexToECDSA(testKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())

	to := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	hash, err := s.Send(context.Background(), domain.TxRequest{To: to, Data: []byte{0xde, 0xad}, GasLimit: 600000})
	require.NoError(t, err)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, "41000000000", tx.GasFeeCap().String())
	assert.Equal(t, "1000000000", tx.GasTipCap().String())
	assert.Equal(t, &to, tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)

	_, err = s.Send(context.Background(), domain.TxRequest{To: to, GasLimit: 21000})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), backend.sent[1].Nonce())
}

func TestSigner_LegacyWithoutBaseFee(t *testing.T) {
	backend := &fakeTxBackend{}
	fees := fixedFees{fd: domain.NewFeeData(big.NewInt(5e9), nil, nil, time.Now())}

	s, err := NewSigner(testKey, backend, fees, logger.NewNop())
	require.NoError(t, err)

	_, err = s.Send(context.Background(), domain.TxRequest{To: common.Address{1}, GasLimit: 21000})
	require.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), backend.sent[0].Type())
	assert.Equal(t, "5000000000", backend.sent[0].GasPrice().String())
}

func TestSigner_InvalidKey(t *testing.T) {
	_, err := NewSigner("not-a-key", &fakeTxBackend{}, fixedFees{}, logger.NewNop())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSignerError))
}

func TestSigner_WaitReceipt(t *testing.T) {
	backend := &fakeTxBackend{receiptAt: 3}
	s, err := NewSigner(testKey, backend, fixedFees{}, logger.NewNop())
	require.NoError(t, err)
	s.pollInterval = 5 * time.Millisecond

	r, err := s.WaitReceipt(context.Background(), common.HexToHash("0xabc"))
	require.NoError(t, err)
	assert.True(t, r.Succeeded())
	assert.Equal(t, uint64(77), r.BlockNumber)
	assert.Equal(t, 3, backend.receiptPoll)
}

func TestSigner_WaitReceiptTimeout(t *testing.T) {
	backend := &fakeTxBackend{receiptAt: 1 << 30}
	s, err := NewSigner(testKey, backend, fixedFees{}, logger.NewNop())
	require.NoError(t, err)
	s.pollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = s.WaitReceipt(ctx, common.HexToHash("0xabc"))
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeServiceTimeout))
}
