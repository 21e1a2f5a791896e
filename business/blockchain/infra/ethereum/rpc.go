package ethereum

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Backend is the subset of ethclient.Client used by RPCClient.
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// RPCClient runs every JSON-RPC call inside a span and a circuit breaker.
type RPCClient struct {
	backend Backend
	logger  logger.LoggerInterface
	cb      *circuitbreaker.CircuitBreaker[any]
	tracer  trace.Tracer
}

// Dial connects to url and wraps the client.
func Dial(ctx context.Context, url string, log logger.LoggerInterface) (*RPCClient, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("dial "+url))
	}
	return NewRPCClient(client, log), client, nil
}

// NewRPCClient wraps backend.
func NewRPCClient(backend Backend, log logger.LoggerInterface) *RPCClient {
	cfg := circuitbreaker.DefaultConfig("eth-rpc")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	// Reverts and missing receipts are answers, not node failures.
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ethereum.NotFound) || isRevert(err)
	}

	return &RPCClient{
		backend: backend,
		logger:  log,
		cb:      circuitbreaker.New[any](cfg),
		tracer:  otel.Tracer(tracerName),
	}
}

func execute[T any](ctx context.Context, c *RPCClient, method string, fn func(ctx context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := c.tracer.Start(ctx, "eth."+method,
		trace.WithAttributes(append(attrs, attribute.String("rpc.method", method))...),
	)
	defer span.End()

	res, err := c.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, method+" failed")
		var zero T
		return zero, err
	}

	span.SetStatus(codes.Ok, "")
	return res.(T), nil
}

func (c *RPCClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return execute(ctx, c, "eth_getBalance", func(ctx context.Context) (*big.Int, error) {
		return c.backend.BalanceAt(ctx, account, nil)
	}, attribute.String("account", account.Hex()))
}

func (c *RPCClient) CallContract(ctx context.Context, to common.Address, data []byte, blockNumber *big.Int) ([]byte, error) {
	attrs := []attribute.KeyValue{attribute.String("to", to.Hex())}
	if blockNumber != nil {
		attrs = append(attrs, attribute.Int64("block_number", blockNumber.Int64()))
	}
	return execute(ctx, c, "eth_call", func(ctx context.Context) ([]byte, error) {
		return c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, blockNumber)
	}, attrs...)
}

func (c *RPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	return execute(ctx, c, "eth_blockNumber", c.backend.BlockNumber)
}

func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	return execute(ctx, c, "eth_chainId", c.backend.ChainID)
}

func (c *RPCClient) LatestHeader(ctx context.Context) (*types.Header, error) {
	return execute(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*types.Header, error) {
		return c.backend.HeaderByNumber(ctx, nil)
	})
}

func (c *RPCClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return execute(ctx, c, "eth_gasPrice", c.backend.SuggestGasPrice)
}

func (c *RPCClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return execute(ctx, c, "eth_maxPriorityFeePerGas", c.backend.SuggestGasTipCap)
}

func (c *RPCClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return execute(ctx, c, "eth_getTransactionCount", func(ctx context.Context) (uint64, error) {
		return c.backend.PendingNonceAt(ctx, account)
	})
}

func (c *RPCClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := execute(ctx, c, "eth_sendRawTransaction", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.backend.SendTransaction(ctx, tx)
	}, attribute.String("tx_hash", tx.Hash().Hex()))
	return err
}

func (c *RPCClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return execute(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context) (*types.Receipt, error) {
		return c.backend.TransactionReceipt(ctx, hash)
	}, attribute.String("tx_hash", hash.Hex()))
}

// isRevert matches the JSON-RPC execution-reverted error shape.
func isRevert(err error) bool {
	var de interface{ ErrorData() interface{} }
	return errors.As(err, &de)
}
