// Package websocket streams events to WebSocket clients connected on /events.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/wsconn"
)

// Path is the endpoint clients connect to.
const Path = "/events"

// Registry is where each accepted connection is registered as a subscriber.
type Registry interface {
	Register(name string, sub domain.Subscriber) string
	Unregister(id string) bool
}

// Server accepts WebSocket clients and registers one subscriber per connection.
type Server struct {
	addr     string
	buffer   int
	registry Registry
	log      logger.LoggerInterface
	server   *http.Server
}

// NewServer creates a server listening on addr. buffer bounds each client's queue.
func NewServer(addr string, buffer int, registry Registry, log logger.LoggerInterface) *Server {
	return &Server{
		addr:     addr,
		buffer:   buffer,
		registry: registry,
		log:      log,
	}
}

// Handler serves Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleEvents)
	return mux
}

// Start listens in the background.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "events server failed", "addr", s.addr, "error", err)
		}
	}()
}

// Stop shuts the listener down. Open connections close with their request context.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Close implements io.Closer.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(ctx)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	cfg := wsconn.DefaultConfig("events:" + r.RemoteAddr)
	if s.buffer > 0 {
		cfg.SendBuffer = s.buffer
	}

	peer, err := wsconn.Accept(w, r, cfg)
	if err != nil {
		s.log.Warn(r.Context(), "websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := s.registry.Register(cfg.Name, &peerSubscriber{peer: peer})
	s.log.Info(r.Context(), "events client connected", "id", id, "remote", r.RemoteAddr)

	err = peer.Run(r.Context())
	s.registry.Unregister(id)
	if err != nil {
		s.log.Debug(r.Context(), "events client dropped", "id", id, "error", err)
		return
	}
	s.log.Info(r.Context(), "events client disconnected", "id", id)
}

// peerSubscriber queues JSON events on one connection. A full queue or closed
// socket is returned as an error so the broadcaster drops it.
type peerSubscriber struct {
	peer *wsconn.Peer
}

func (p *peerSubscriber) Send(_ context.Context, e domain.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return apperror.New(apperror.CodeSubscriberSendFailed, apperror.WithCause(err))
	}
	if err := p.peer.Send(msg); err != nil {
		p.peer.Close()
		return err
	}
	return nil
}
