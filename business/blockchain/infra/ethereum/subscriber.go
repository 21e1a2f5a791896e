// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
)

// SubscriberConfig holds configuration for the Ethereum subscriber.
type SubscriberConfig struct {
	WSURL          string        // newHeads subscription endpoint
	HTTPURL        string        // polled while the websocket is down
	PollInterval   time.Duration // HTTP poll period
	InitialBackoff time.Duration // first delay before redialing the websocket
	MaxBackoff     time.Duration
	BufferSize     int
}

// SubscriberConfigFrom maps the ethereum config section.
func SubscriberConfigFrom(cfg config.EthereumConfig) SubscriberConfig {
	sc := SubscriberConfig{
		WSURL:          cfg.WebSocketURL,
		HTTPURL:        cfg.HTTPURL,
		PollInterval:   cfg.PollInterval,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		BufferSize:     16,
	}
	if sc.PollInterval <= 0 {
		sc.PollInterval = 12 * time.Second // ~1 block time
	}
	if sc.InitialBackoff <= 0 {
		sc.InitialBackoff = time.Second
	}
	if sc.MaxBackoff < sc.InitialBackoff {
		sc.MaxBackoff = 30 * time.Second
	}
	return sc
}

type subscriberMetrics struct {
	received  metric.Int64Counter
	stale     metric.Int64Counter
	errors    metric.Int64Counter
	fallbacks metric.Int64Counter
	state     metric.Int64Gauge
	latency   metric.Float64Histogram
}

// Subscriber implements app.BlockSubscriber. One supervisor goroutine holds a
// newHeads websocket subscription and, while it is down, polls the HTTP
// endpoint between redial attempts. Emitted block numbers strictly increase.
type Subscriber struct {
	cfg SubscriberConfig
	log logger.LoggerInterface

	mu    sync.Mutex
	ws    *ethclient.Client
	http  *ethclient.Client
	state domain.ConnectionState

	lastBlock  atomic.Uint64
	reconnects atomic.Int32
	polling    atomic.Bool

	blocks    chan *domain.Block
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	pollCB  *circuitbreaker.CircuitBreaker[*types.Header]
	tracer  apm.Tracer
	metrics subscriberMetrics
}

// NewSubscriber creates a new Ethereum block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	s := &Subscriber{
		cfg:    cfg,
		log:    log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		done:   make(chan struct{}),
		tracer: apm.NewTracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-http-poll")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.pollCB = circuitbreaker.New[*types.Header](cbCfg)
	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&s.metrics.received, "eth_blocks_received_total", "Blocks emitted to the consumer"},
		{&s.metrics.stale, "eth_blocks_duplicate_total", "Headers dropped because they were not newer than the last emitted"},
		{&s.metrics.errors, "eth_subscribe_errors_total", "Subscription and poll failures"},
		{&s.metrics.fallbacks, "eth_http_fallback_total", "Times polling replaced the websocket"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return err
		}
		*c.dst = counter
	}

	var err error
	if s.metrics.state, err = meter.Int64Gauge("eth_connection_state",
		metric.WithDescription("0=disconnected 1=connecting 2=connected 3=reconnecting")); err != nil {
		return err
	}
	s.metrics.latency, err = meter.Float64Histogram("eth_block_latency_ms",
		metric.WithDescription("Delay between block timestamp and receipt"),
		metric.WithUnit("ms"))
	return err
}

// Subscribe connects and returns the block channel. It fails only when
// neither endpoint can be dialed.
func (s *Subscriber) Subscribe(runCtx context.Context) (<-chan *domain.Block, error) {
	ctx, span := s.tracer.Start(runCtx, "eth.subscribe",
		attribute.Bool("ws", s.cfg.WSURL != ""),
		attribute.Bool("http", s.cfg.HTTPURL != ""))
	defer span.End()

	if s.closed.Load() {
		err := errors.New("subscriber is closed")
		span.Fail(err)
		return nil, err
	}
	s.setState(domain.StateConnecting)

	wsErr := s.dial(ctx, &s.ws, s.cfg.WSURL)
	if wsErr != nil {
		s.log.Warn(ctx, "ws connection failed, trying http fallback", "error", wsErr)
		if err := s.dial(ctx, &s.http, s.cfg.HTTPURL); err != nil {
			s.setState(domain.StateDisconnected)
			err = apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(errors.Join(wsErr, err)),
				apperror.WithContext("failed to connect via WS and HTTP"))
			span.Fail(err)
			return nil, err
		}
	}

	s.setState(domain.StateConnected)
	go s.supervise(runCtx, wsErr == nil)
	return s.blocks, nil
}

// dial opens url into *slot, replacing any previous client.
func (s *Subscriber) dial(ctx context.Context, slot **ethclient.Client, url string) error {
	if url == "" {
		return errors.New("endpoint not configured")
	}
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		client.Close()
		return errors.New("subscriber is closed")
	}
	if *slot != nil {
		(*slot).Close()
	}
	*slot = client
	return nil
}

func (s *Subscriber) client(slot **ethclient.Client) *ethclient.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *slot
}

// supervise alternates between the websocket stream and backoff windows
// spent polling over HTTP until the subscriber closes.
func (s *Subscriber) supervise(ctx context.Context, wsReady bool) {
	attempt := 0
	for {
		if wsReady {
			if s.streamWS(ctx) {
				attempt = 0
				s.reconnects.Store(0)
			}
		}
		if s.stopped(ctx) {
			return
		}

		attempt++
		s.reconnects.Add(1)
		s.setState(domain.StateReconnecting)
		if !s.pollFor(ctx, s.backoff(attempt)) {
			return
		}

		err := s.dial(ctx, &s.ws, s.cfg.WSURL)
		wsReady = err == nil
		if err != nil {
			s.log.Warn(ctx, "ws reconnect failed", "error", err, "attempt", attempt)
		}
	}
}

// streamWS consumes newHeads until the subscription ends. It reports whether
// at least one header arrived.
func (s *Subscriber) streamWS(ctx context.Context) bool {
	client := s.client(&s.ws)
	if client == nil {
		return false
	}

	headers := make(chan *types.Header, s.cfg.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		s.log.Error(ctx, "subscribe new head failed", "error", err)
		s.metrics.errors.Add(ctx, 1)
		return false
	}
	defer sub.Unsubscribe()

	s.polling.Store(false)
	s.setState(domain.StateConnected)
	s.log.Info(ctx, "subscribed to new heads via ws")

	received := false
	for {
		select {
		case <-s.done:
			return received
		case <-ctx.Done():
			return received
		case err := <-sub.Err():
			if err != nil {
				s.log.Error(ctx, "subscription error", "error", err)
				s.metrics.errors.Add(ctx, 1)
			}
			return received
		case h := <-headers:
			if h != nil {
				received = true
				s.processHeader(ctx, h, false)
			}
		}
	}
}

// pollFor waits d, polling the latest header over HTTP meanwhile when an
// endpoint is configured. It returns false once the subscriber stops.
func (s *Subscriber) pollFor(ctx context.Context, d time.Duration) bool {
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	var tick <-chan time.Time
	if s.cfg.HTTPURL != "" {
		if s.client(&s.http) == nil {
			if err := s.dial(ctx, &s.http, s.cfg.HTTPURL); err != nil {
				s.log.Error(ctx, "http fallback connection failed", "error", err)
			}
		}
		if s.client(&s.http) != nil {
			if s.polling.CompareAndSwap(false, true) {
				s.metrics.fallbacks.Add(ctx, 1)
				s.log.Info(ctx, "polling blocks over http", "interval", s.cfg.PollInterval)
			}
			s.setState(domain.StateConnected)
			ticker := time.NewTicker(s.cfg.PollInterval)
			defer ticker.Stop()
			tick = ticker.C
			s.pollLatest(ctx)
		}
	}

	for {
		select {
		case <-s.done:
			return false
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return true
		case <-tick:
			s.pollLatest(ctx)
		}
	}
}

func (s *Subscriber) pollLatest(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	client := s.client(&s.http)
	if client == nil {
		return
	}
	h, err := s.pollCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.Fail(err)
		s.log.Error(ctx, "http poll failed", "error", err)
		s.metrics.errors.Add(ctx, 1)
		return
	}
	s.processHeader(ctx, h, true)
}

func (s *Subscriber) backoff(attempt int) time.Duration {
	d := s.cfg.InitialBackoff
	for i := 1; i < attempt && d < s.cfg.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, s.cfg.MaxBackoff)
}

func (s *Subscriber) stopped(ctx context.Context) bool {
	return s.closed.Load() || ctx.Err() != nil
}

// processHeader emits h unless its number is not above the last emitted one.
// A full buffer drops the block.
func (s *Subscriber) processHeader(ctx context.Context, h *types.Header, fromHTTP bool) {
	block := headerToBlock(h)

	for {
		last := s.lastBlock.Load()
		if block.Number <= last {
			s.metrics.stale.Add(ctx, 1)
			return
		}
		if s.lastBlock.CompareAndSwap(last, block.Number) {
			break
		}
	}

	latency := time.Since(block.Timestamp)
	s.metrics.latency.Record(ctx, float64(latency.Milliseconds()))

	select {
	case s.blocks <- block:
		s.metrics.received.Add(ctx, 1)
		s.log.Debug(ctx, "block received",
			"number", block.Number,
			"from_http", fromHTTP,
			"latency_ms", latency.Milliseconds())
	case <-s.done:
	default:
		s.log.Warn(ctx, "block dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(h *types.Header) *domain.Block {
	return &domain.Block{
		Number:     h.Number.Uint64(),
		Hash:       h.Hash(),
		ParentHash: h.ParentHash,
		Timestamp:  time.Unix(int64(h.Time), 0),
		GasLimit:   h.GasLimit,
		GasUsed:    h.GasUsed,
		BaseFee:    h.BaseFee,
	}
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		Reconnects: int(s.reconnects.Load()),
		UsingHTTP:  s.polling.Load(),
	}
}

// Close stops the supervisor and closes both clients. The block channel is
// left open; consumers stop on their own context.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		s.log.Info(context.Background(), "closing ethereum subscriber")
		s.closed.Store(true)
		close(s.done)

		s.mu.Lock()
		for _, c := range []**ethclient.Client{&s.ws, &s.http} {
			if *c != nil {
				(*c).Close()
				*c = nil
			}
		}
		s.mu.Unlock()

		s.setState(domain.StateDisconnected)
	})
	return nil
}

var stateGauge = map[domain.ConnectionState]int64{
	domain.StateDisconnected: 0,
	domain.StateConnecting:   1,
	domain.StateConnected:    2,
	domain.StateReconnecting: 3,
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.metrics.state.Record(context.Background(), stateGauge[state])
}
