// Package wsconn provides a server-side WebSocket peer with a bounded outbound queue.
package wsconn

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateConnected State = "connected"
	StateClosed    State = "closed"
)

// Config holds peer configuration.
type Config struct {
	Name         string
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration // 0 disables keepalive pings
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		SendBuffer:   64,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Peer is one accepted WebSocket connection. Send never blocks; a full queue is an error.
type Peer struct {
	config Config
	conn   *websocket.Conn
	out    chan []byte

	mu     sync.RWMutex
	state  State
	done   chan struct{}
	closed sync.Once
}

// Accept upgrades the request and returns a peer. Call Run to start writing.
func Accept(w http.ResponseWriter, r *http.Request, cfg Config) (*Peer, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return nil, apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext(cfg.Name))
	}
	return newPeer(conn, cfg), nil
}

func newPeer(conn *websocket.Conn, cfg Config) *Peer {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 1
	}
	return &Peer{
		config: cfg,
		conn:   conn,
		out:    make(chan []byte, cfg.SendBuffer),
		state:  StateConnected,
		done:   make(chan struct{}),
	}
}

// Send queues msg for delivery.
func (p *Peer) Send(msg []byte) error {
	select {
	case <-p.done:
		return apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(p.config.Name))
	default:
	}

	select {
	case p.out <- msg:
		return nil
	default:
		return apperror.New(apperror.CodeWebSocketSendError,
			apperror.WithContext(p.config.Name+": send buffer full"))
	}
}

// Run writes queued messages until ctx is cancelled, the peer goes away or Close is called.
// Inbound messages are discarded.
func (p *Peer) Run(ctx context.Context) error {
	defer p.Close()

	ctx = p.conn.CloseRead(ctx)

	var pings <-chan time.Time
	if p.config.PingInterval > 0 {
		ticker := time.NewTicker(p.config.PingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil
		case msg := <-p.out:
			if err := p.write(ctx, msg); err != nil {
				return err
			}
		case <-pings:
			pingCtx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
			err := p.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return apperror.New(apperror.CodeWebSocketClosed, apperror.WithCause(err))
			}
		}
	}
}

func (p *Peer) write(ctx context.Context, msg []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.config.WriteTimeout)
	defer cancel()

	if err := p.conn.Write(writeCtx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeWebSocketSendError, apperror.WithCause(err))
	}
	return nil
}

// Done is closed once the peer is closed.
func (p *Peer) Done() <-chan struct{} {
	return p.done
}

// State returns the current connection state.
func (p *Peer) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Close gracefully closes the WebSocket connection. Safe to call more than once.
func (p *Peer) Close() error {
	var err error
	p.closed.Do(func() {
		close(p.done)
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()
		if p.conn != nil {
			err = p.conn.Close(websocket.StatusNormalClosure, "")
		}
	})
	return err
}
