// Package ws is the WebSocket transport. Every text frame a client sends is
// one protocol envelope; every frame the server writes is one notification.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/config"
	"github.com/cory-johannsen/roomcoord/internal/game/session"
	"github.com/cory-johannsen/roomcoord/internal/protocol"
)

// Dispatcher consumes decoded events and connection loss.
type Dispatcher interface {
	Handle(ctx context.Context, connID string, ev protocol.Event)
	Disconnect(connID string)
}

// Server accepts WebSocket upgrades on the configured path.
type Server struct {
	cfg        config.GatewayConfig
	dispatcher Dispatcher
	hub        *session.Hub
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	http       *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a WebSocket Server.
//
// Precondition: dispatcher, hub, and logger must be non-nil.
func NewServer(cfg config.GatewayConfig, dispatcher Dispatcher, hub *session.Hub, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		hub:        hub,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, s.handleUpgrade)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler that performs upgrades.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Addr returns the bound address, or "" before Start has listened.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	s.logger.Info("websocket gateway listening",
		zap.String("addr", lis.Addr().String()),
		zap.String("path", s.cfg.Path),
	)
	if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket: %w", err)
	}
	return nil
}

// Stop closes the listener, ends every open connection, and waits for
// their handlers to finish.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("websocket gateway shutdown", zap.Error(err))
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("websocket gateway stopped")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	connID := uuid.NewString()
	outbox, err := s.hub.Attach(connID)
	if err != nil {
		s.logger.Error("attaching connection", zap.String("conn_id", connID), zap.Error(err))
		_ = ws.Close()
		return
	}

	c := newClient(connID, ws, outbox, s.cfg, s.logger)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve(c)
	}()
}

// serve runs one connection to completion and then releases it.
func (s *Server) serve(c *client) {
	start := time.Now()
	s.logger.Info("client connected",
		zap.String("conn_id", c.id),
		zap.String("remote_addr", c.ws.RemoteAddr().String()),
	)

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		c.closeSocket()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	err := c.readPump(ctx, s.dispatcher)

	s.dispatcher.Disconnect(c.id)
	s.hub.Detach(c.id)
	<-writerDone

	s.logger.Info("client disconnected",
		zap.String("conn_id", c.id),
		zap.Duration("duration", time.Since(start)),
		zap.NamedError("reason", err),
	)
}
