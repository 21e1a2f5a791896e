package app

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	dexA = pricingDomain.DEX{Name: "BuyDexA", Router: common.HexToAddress("0x00000000000000000000000000000000000000a1")}
	dexB = pricingDomain.DEX{Name: "SellDexB", Router: common.HexToAddress("0x00000000000000000000000000000000000000b2")}
	dexC = pricingDomain.DEX{Name: "BrokenDexC", Router: common.HexToAddress("0x00000000000000000000000000000000000000c3")}

	wethUSDC = pricingDomain.NewPair(asset.WETH, asset.USDC)
)

// quoteAt quotes one WETH for usdc USDC on dex.
func quoteAt(dex pricingDomain.DEX, usdc int64, block uint64) pricingDomain.TokenPriceQuote {
	in := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	out := asset.NewAmount(asset.USDC, new(big.Int).Mul(big.NewInt(usdc), big.NewInt(1e6)))
	return pricingDomain.NewTokenPriceQuote(dex.Name, in, out, block)
}

type fakeSizer struct {
	amount    decimal.Decimal
	requested *decimal.Decimal
}

func (f *fakeSizer) GetOptimalAmount(_ string, requested *decimal.Decimal) decimal.Decimal {
	f.requested = requested
	return f.amount
}

type fakePrices map[string]decimal.Decimal

func (f fakePrices) PriceUSD(_ context.Context, token *asset.Asset, _ uint64) (decimal.Decimal, bool) {
	v, ok := f[token.Symbol()]
	return v, ok
}

// chain fakes for a real ChainService

type fakeSubscriber struct {
	heads chan *chainDomain.Block
}

func (f *fakeSubscriber) Subscribe(context.Context) (<-chan *chainDomain.Block, error) {
	return f.heads, nil
}
func (f *fakeSubscriber) State() chainDomain.ConnectionState { return chainDomain.StateConnected }
func (f *fakeSubscriber) Close() error                       { return nil }

type fakeFees struct {
	mu  sync.Mutex
	fd  *chainDomain.FeeData
	err error
}

func (f *fakeFees) FeeData(context.Context) (*chainDomain.FeeData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fd, f.err
}

type fakeReader struct {
	balance *big.Int
	balErr  error
	head    uint64
	headErr error
}

func (f *fakeReader) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return f.balance, f.balErr
}
func (f *fakeReader) CallContract(context.Context, common.Address, []byte, *big.Int) ([]byte, error) {
	return nil, nil
}
func (f *fakeReader) BlockNumber(context.Context) (uint64, error) { return f.head, f.headErr }
func (f *fakeReader) ChainID(context.Context) (*big.Int, error)   { return big.NewInt(1), nil }

type fakeSender struct {
	mu      sync.Mutex
	sent    []chainDomain.TxRequest
	sendErr error
	receipt *chainDomain.Receipt
	block   bool // WaitReceipt blocks until ctx ends
}

func (f *fakeSender) Address() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func (f *fakeSender) Send(_ context.Context, req chainDomain.TxRequest) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sent = append(f.sent, req)
	return common.HexToHash("0xfeed"), nil
}

func (f *fakeSender) WaitReceipt(ctx context.Context, _ common.Hash) (*chainDomain.Receipt, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.receipt, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type chainFixture struct {
	sub    *fakeSubscriber
	fees   *fakeFees
	reader *fakeReader
	sender *fakeSender
	svc    *chainApp.ChainService
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	f := &chainFixture{
		sub:    &fakeSubscriber{heads: make(chan *chainDomain.Block, 8)},
		fees:   &fakeFees{fd: chainDomain.NewFeeData(gwei(5), nil, nil, time.Now())},
		reader: &fakeReader{balance: big.NewInt(1e18), head: 100},
		sender: &fakeSender{receipt: &chainDomain.Receipt{
			TxHash:      common.HexToHash("0xfeed"),
			BlockNumber: 101,
			GasUsed:     250_000,
			Status:      chainDomain.ReceiptStatusSuccessful,
		}},
	}
	f.svc = chainApp.NewChainService(f.sub, f.fees, f.reader, f.sender, logger.NewNop())
	t.Cleanup(func() { _ = f.svc.Close() })
	return f
}

type fakeEncoder struct {
	params []domain.TradeParams
}

func (f *fakeEncoder) EncodeExecuteArbitrage(p domain.TradeParams) ([]byte, error) {
	f.params = append(f.params, p)
	return []byte{0xde, 0xad, 0xbe, 0xef}, nil
}

type publishedEvent struct {
	typ     eventsDomain.EventType
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Broadcast(_ context.Context, t eventsDomain.EventType, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{typ: t, payload: payload})
}

func (f *fakePublisher) ofType(t eventsDomain.EventType) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.events {
		if e.typ == t {
			out = append(out, e.payload)
		}
	}
	return out
}

func newTestDetector(t *testing.T, cfg DetectorConfig, sizer LoanSizer, prices PriceOracle, fees FeeSource) *Detector {
	t.Helper()
	if cfg.Native == nil {
		cfg.Native = asset.WETH
	}
	d, err := NewDetector(cfg, NewProfitCalculator(350_000, decimal.NewFromInt(9)), sizer, prices, fees,
		[]pricingDomain.DEX{dexA, dexB, dexC}, logger.NewNop())
	require.NoError(t, err)
	return d
}

func defaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinSpreadPercent: decimal.RequireFromString("0.5"),
		MinNetProfitUSD:  decimal.NewFromInt(10),
		MinTradeAmount:   decimal.RequireFromString("0.1"),
		MaxTradeAmount:   decimal.NewFromInt(100),
	}
}

func defaultPrices() fakePrices {
	return fakePrices{"USDC": decimal.NewFromInt(1), "WETH": decimal.NewFromInt(1000)}
}
