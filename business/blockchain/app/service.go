package app

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const streamBuffer = 16

// ChainService is the chain data client used by the other contexts.
type ChainService struct {
	subscriber BlockSubscriber
	fees       FeeOracle
	reader     ChainReader
	sender     TxSender // nil in read-only mode
	log        logger.LoggerInterface
	tracer     apm.Tracer

	mu            sync.Mutex
	streams       map[*BlockStream]struct{}
	pumpCancel    context.CancelFunc
	pumpDone      chan struct{}
	lastDelivered uint64
}

// NewChainService creates a ChainService. sender may be nil.
func NewChainService(sub BlockSubscriber, fees FeeOracle, reader ChainReader, sender TxSender, log logger.LoggerInterface) *ChainService {
	return &ChainService{
		subscriber: sub,
		fees:       fees,
		reader:     reader,
		sender:     sender,
		log:        log,
		tracer:     apm.NewTracer("blockchain"),
		streams:    make(map[*BlockStream]struct{}),
	}
}

// BlockStream delivers blocks in strictly increasing number order.
type BlockStream struct {
	svc    *ChainService
	blocks chan *domain.Block
	once   sync.Once
}

// Blocks returns the delivery channel. It is closed after Unsubscribe.
func (b *BlockStream) Blocks() <-chan *domain.Block {
	return b.blocks
}

// Unsubscribe stops delivery to this stream.
func (b *BlockStream) Unsubscribe() {
	b.once.Do(func() {
		b.svc.removeStream(b)
	})
}

// SubscribeBlocks opens a new block stream. The underlying subscription is
// started on first use and shared by every stream.
func (s *ChainService) SubscribeBlocks(ctx context.Context) (*BlockStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pumpCancel == nil {
		pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		heads, err := s.subscriber.Subscribe(pumpCtx)
		if err != nil {
			cancel()
			return nil, apperror.New(apperror.CodeEthereumSubscribeFailed, apperror.WithCause(err))
		}
		s.pumpCancel = cancel
		s.pumpDone = make(chan struct{})
		go s.pump(pumpCtx, heads, s.pumpDone)
	}

	stream := &BlockStream{svc: s, blocks: make(chan *domain.Block, streamBuffer)}
	s.streams[stream] = struct{}{}
	return stream, nil
}

func (s *ChainService) pump(ctx context.Context, heads <-chan *domain.Block, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-heads:
			if !ok {
				return
			}
			if block != nil {
				s.deliver(ctx, block)
			}
		}
	}
}

// deliver fans a block out to every stream unless it is not newer than the last one delivered.
func (s *ChainService) deliver(ctx context.Context, block *domain.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if block.Number <= s.lastDelivered {
		s.log.Debug(ctx, "dropping replayed block", "number", block.Number, "last", s.lastDelivered)
		return
	}
	s.lastDelivered = block.Number

	for stream := range s.streams {
		select {
		case stream.blocks <- block:
		default:
			s.log.Warn(ctx, "block stream full, dropping block", "number", block.Number)
		}
	}
}

func (s *ChainService) removeStream(b *BlockStream) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.streams[b]; ok {
		delete(s.streams, b)
		close(b.blocks)
	}
}

// Balance returns the latest balance of account in wei.
func (s *ChainService) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, span := s.tracer.Start(ctx, "chain.balance", attribute.String("account", account.Hex()))
	defer span.End()

	bal, err := s.reader.BalanceAt(ctx, account)
	if err != nil {
		span.Fail(err)
		return nil, rpcError(err, "eth_getBalance")
	}
	return bal, nil
}

// FeeData returns the current fee snapshot.
func (s *ChainService) FeeData(ctx context.Context) (*domain.FeeData, error) {
	fd, err := s.fees.FeeData(ctx)
	if err != nil {
		return nil, rpcError(err, "fee data")
	}
	return fd, nil
}

// Call packs the method arguments, runs eth_call and unpacks the outputs.
func (s *ChainService) Call(ctx context.Context, req domain.CallRequest) ([]any, error) {
	ctx, span := s.tracer.Start(ctx, "chain.call",
		attribute.String("to", req.To.Hex()),
		attribute.String("method", req.Method),
	)
	defer span.End()

	if req.ABI == nil {
		err := apperror.New(apperror.CodeABIEncodingFailed, apperror.WithContext("nil abi for "+req.Method))
		span.Fail(err)
		return nil, err
	}

	data, err := req.ABI.Pack(req.Method, req.Args...)
	if err != nil {
		span.Fail(err)
		return nil, apperror.New(apperror.CodeABIEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(req.Method))
	}

	var block *big.Int
	if req.BlockNumber != nil {
		block = new(big.Int).SetUint64(*req.BlockNumber)
	}

	out, err := s.reader.CallContract(ctx, req.To, data, block)
	if err != nil {
		span.Fail(err)
		return nil, rpcError(err, "eth_call "+req.Method)
	}

	values, err := req.ABI.Unpack(req.Method, out)
	if err != nil {
		span.Fail(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("unpack "+req.Method))
	}
	return values, nil
}

// PendingTransaction is a broadcast transaction awaiting inclusion.
type PendingTransaction struct {
	Hash   common.Hash
	sender TxSender
}

// Wait blocks until the transaction has one confirmation or ctx ends.
func (p *PendingTransaction) Wait(ctx context.Context) (*domain.Receipt, error) {
	r, err := p.sender.WaitReceipt(ctx, p.Hash)
	if err != nil {
		return nil, rpcError(err, "wait receipt "+p.Hash.Hex())
	}
	return r, nil
}

// SendTransaction signs and broadcasts req with the configured signer.
func (s *ChainService) SendTransaction(ctx context.Context, req domain.TxRequest) (*PendingTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "chain.send_transaction", attribute.String("to", req.To.Hex()))
	defer span.End()

	if s.sender == nil {
		err := apperror.New(apperror.CodeSignerError, apperror.WithContext("no signer configured"))
		span.Fail(err)
		return nil, err
	}

	hash, err := s.sender.Send(ctx, req)
	if err != nil {
		span.Fail(err)
		return nil, rpcError(err, "eth_sendRawTransaction")
	}

	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))
	s.log.Info(ctx, "transaction sent", "hash", hash.Hex(), "to", req.To.Hex())

	return &PendingTransaction{Hash: hash, sender: s.sender}, nil
}

// SignerAddress returns the signer account, or the zero address in read-only mode.
func (s *ChainService) SignerAddress() common.Address {
	if s.sender == nil {
		return common.Address{}
	}
	return s.sender.Address()
}

// HeadBlock returns the latest block number.
func (s *ChainService) HeadBlock(ctx context.Context) (uint64, error) {
	n, err := s.reader.BlockNumber(ctx)
	if err != nil {
		return 0, rpcError(err, "eth_blockNumber")
	}
	return n, nil
}

// ChainID returns the connected chain id.
func (s *ChainService) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := s.reader.ChainID(ctx)
	if err != nil {
		return nil, rpcError(err, "eth_chainId")
	}
	return id, nil
}

// ConnectionState returns the subscription connection state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Close stops the subscription and closes every open stream.
func (s *ChainService) Close() error {
	s.mu.Lock()
	cancel, done := s.pumpCancel, s.pumpDone
	s.pumpCancel = nil
	for stream := range s.streams {
		delete(s.streams, stream)
		close(stream.blocks)
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return s.subscriber.Close()
}

// rpcError keeps existing app errors and wraps everything else as an RPC error.
func rpcError(err error, op string) error {
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err), apperror.WithContext(op))
}
