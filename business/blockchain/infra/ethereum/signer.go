package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// TxBackend is the RPC surface the signer needs.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

type feeProvider interface {
	FeeData(ctx context.Context) (*domain.FeeData, error)
}

// Signer signs and broadcasts transactions for a single key and implements app.TxSender.
type Signer struct {
	key          *ecdsa.PrivateKey
	address      common.Address
	backend      TxBackend
	fees         feeProvider
	logger       logger.LoggerInterface
	pollInterval time.Duration

	mu      sync.Mutex // serialises nonce assignment
	chainID *big.Int
}

// NewSigner parses a hex private key (with or without 0x).
func NewSigner(hexKey string, backend TxBackend, fees feeProvider, log logger.LoggerInterface) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeSignerError,
			apperror.WithCause(err),
			apperror.WithContext("invalid private key"))
	}

	return &Signer{
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		backend:      backend,
		fees:         fees,
		logger:       log,
		pollInterval: 2 * time.Second,
	}, nil
}

// Address returns the signer account.
func (s *Signer) Address() common.Address {
	return s.address
}

// Send builds an EIP-1559 transaction (legacy when the chain has no base fee),
// signs it with the pending nonce and broadcasts it.
func (s *Signer) Send(ctx context.Context, req domain.TxRequest) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chainID, err := s.chainIDLocked(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	fd, err := s.fees.FeeData(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("pending nonce"))
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To

	var tx *types.Transaction
	if fd.IsEIP1559() {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: fd.MaxPriorityFeePerGas,
			GasFeeCap: fd.MaxFeePerGas,
			Gas:       req.GasLimit,
			To:        &to,
			Value:     value,
			Data:      req.Data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fd.GasPrice,
			Gas:      req.GasLimit,
			To:       &to,
			Value:    value,
			Data:     req.Data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return common.Hash{}, apperror.New(apperror.CodeSignerError, apperror.WithCause(err))
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("send transaction"))
	}

	s.logger.Debug(ctx, "transaction signed", "hash", signed.Hash().Hex(), "nonce", nonce, "type", signed.Type())

	return signed.Hash(), nil
}

func (s *Signer) chainIDLocked(ctx context.Context) (*big.Int, error) {
	if s.chainID != nil {
		return s.chainID, nil
	}
	id, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("chain id"))
	}
	s.chainID = id
	return id, nil
}

// WaitReceipt polls until the transaction is mined or ctx ends.
func (s *Signer) WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			return toDomainReceipt(receipt), nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			return nil, apperror.New(apperror.CodeEthereumRPCError,
				apperror.WithCause(err),
				apperror.WithContext("receipt "+hash.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeServiceTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext("waiting for "+hash.Hex()))
		case <-ticker.C:
		}
	}
}

func toDomainReceipt(r *types.Receipt) *domain.Receipt {
	out := &domain.Receipt{
		TxHash:            r.TxHash,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: r.EffectiveGasPrice,
		Status:            r.Status,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
