package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// spreadQuotes quotes every pair at 1000 on dexA and 1010 on dexB.
type spreadQuotes struct{}

func (spreadQuotes) QuotePair(_ context.Context, _ pricingDomain.Pair, block uint64) []pricingDomain.TokenPriceQuote {
	return []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, block), quoteAt(dexB, 1010, block)}
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []*domain.ArbitrageOpportunity
	release chan struct{} // nil executes immediately
}

func (f *fakeExecutor) Execute(_ context.Context, opp *domain.ArbitrageOpportunity) domain.ExecutionResult {
	f.mu.Lock()
	f.calls = append(f.calls, opp)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return domain.Succeeded(opp, [32]byte{1}, opp.BlockNumber+1, 21_000, time.Now())
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type automationFixture struct {
	chain  *chainFixture
	exec   *fakeExecutor
	events *fakePublisher
	state  *State
	auto   *Automation
}

func newAutomationFixture(t *testing.T) *automationFixture {
	t.Helper()
	chain := newChainFixture(t)
	det := newTestDetector(t, defaultDetectorConfig(), &fakeSizer{amount: decimal.NewFromInt(5)}, defaultPrices(), chain.fees)

	f := &automationFixture{
		chain:  chain,
		exec:   &fakeExecutor{},
		events: &fakePublisher{},
		state:  NewState(nil),
	}
	auto, err := NewAutomation(
		AutomationConfig{Pairs: []pricingDomain.Pair{wethUSDC}, ScanTimeout: time.Second},
		f.state, chain.svc, spreadQuotes{}, det, f.exec, f.events, logger.NewNop(),
	)
	require.NoError(t, err)
	f.auto = auto
	t.Cleanup(func() {
		auto.Stop()
		auto.Wait()
	})
	return f
}

func (f *automationFixture) push(numbers ...uint64) {
	for _, n := range numbers {
		f.chain.sub.heads <- &chainDomain.Block{Number: n}
	}
}

func TestAutomation_ScanDetectsAndExecutes(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auto.Start(ctx))
	require.NoError(t, f.auto.Start(ctx), "second start is a no-op")
	assert.True(t, f.auto.IsRunning())

	f.push(100)

	require.Eventually(t, func() bool {
		return len(f.events.ofType(eventsDomain.EventExecution)) == 1
	}, time.Second, 5*time.Millisecond)

	opps := f.events.ofType(eventsDomain.EventOpportunity)
	require.Len(t, opps, 1)
	opp := opps[0].(*domain.ArbitrageOpportunity)
	assert.Equal(t, "WETH/USDC|BuyDexA|SellDexB|100", opp.Key())

	res := f.events.ofType(eventsDomain.EventExecution)[0].(domain.ExecutionResult)
	assert.True(t, res.Success)
	assert.Equal(t, opp.ID, res.OpportunityID)

	_, inFlight := f.state.InFlight()
	assert.False(t, inFlight)

	has, err := f.state.Executed().Has(ctx, opp.Key())
	require.NoError(t, err)
	assert.True(t, has)

	stats := f.auto.Stats()
	assert.Equal(t, uint64(1), stats.Blocks)
	assert.Equal(t, uint64(100), stats.LastBlock)
	assert.Equal(t, uint64(1), stats.Opportunities)
	assert.Equal(t, uint64(1), stats.Executions)
	assert.Equal(t, uint64(1), stats.Succeeded)

	f.auto.Stop()
	assert.False(t, f.auto.IsRunning())
}

func TestAutomation_DefersWhileInFlight(t *testing.T) {
	f := newAutomationFixture(t)
	f.exec.release = make(chan struct{})

	require.NoError(t, f.auto.Start(context.Background()))

	f.push(100)
	require.Eventually(t, func() bool { return f.exec.count() == 1 }, time.Second, 5*time.Millisecond)

	f.push(101)
	require.Eventually(t, func() bool { return f.auto.Stats().SkippedInFlight == 1 }, time.Second, 5*time.Millisecond)

	key, ok := f.state.InFlight()
	assert.True(t, ok)
	assert.Equal(t, "WETH/USDC|BuyDexA|SellDexB|100", key)
	assert.Len(t, f.events.ofType(eventsDomain.EventOpportunity), 2)

	close(f.exec.release)
	f.auto.Wait()

	assert.Equal(t, 1, f.exec.count())
	_, ok = f.state.InFlight()
	assert.False(t, ok)

	// the deferred block is not retried; the next block executes
	f.push(102)
	require.Eventually(t, func() bool { return f.exec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestAutomation_ExecutedKeyNotResubmitted(t *testing.T) {
	f := newAutomationFixture(t)
	ctx := context.Background()
	opp := testOpportunity(100)

	f.auto.maybeExecute(ctx, opp)
	f.auto.Wait()
	f.auto.maybeExecute(ctx, opp)
	f.auto.Wait()

	assert.Equal(t, 1, f.exec.count())
	assert.Equal(t, uint64(1), f.auto.Stats().SkippedExecuted)
}

func TestAutomation_StoppedLoopIgnoresBlocks(t *testing.T) {
	f := newAutomationFixture(t)

	require.NoError(t, f.auto.Start(context.Background()))
	f.auto.Stop()
	f.auto.Stop()

	assert.False(t, f.auto.IsRunning())
	assert.Zero(t, f.auto.Stats().Blocks)
}

func TestNewAutomation_RequiresState(t *testing.T) {
	_, err := NewAutomation(AutomationConfig{}, nil, nil, nil, nil, nil, nil, logger.NewNop())
	assert.Error(t, err)
}
