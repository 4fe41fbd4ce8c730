package telnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomcoord/internal/config"
)

// SessionHandler runs one connection until it ends or ctx is cancelled.
type SessionHandler interface {
	HandleSession(ctx context.Context, connID string, conn *Conn) error
}

// Acceptor listens on TCP and runs a SessionHandler per connection.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	conns    map[string]*Conn
	running  bool
}

// NewAcceptor creates an Acceptor.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[string]*Conn),
	}
}

// Start listens and accepts connections until Stop.
//
// Postcondition: The listener is closed when Start returns.
func (a *Acceptor) Start() error {
	start := time.Now()
	lis, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	a.mu.Lock()
	a.listener = lis
	a.running = true
	a.mu.Unlock()

	a.logger.Info("line transport listening",
		zap.String("addr", lis.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	for {
		raw, err := lis.Accept()
		if err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		a.wg.Add(1)
		go a.serve(raw)
	}
}

func (a *Acceptor) serve(raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()
	connID := uuid.NewString()
	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)

	a.mu.Lock()
	a.conns[connID] = conn
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.conns, connID)
		a.mu.Unlock()
		_ = conn.Close()
	}()

	log := a.logger.With(
		zap.String("conn_id", connID),
		zap.String("remote_addr", raw.RemoteAddr().String()),
	)
	log.Info("client connected")

	if err := conn.Negotiate(); err != nil {
		log.Warn("telnet negotiation failed", zap.Error(err))
		return
	}

	if err := a.handler.HandleSession(a.ctx, connID, conn); err != nil {
		log.Debug("session ended", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	log.Info("session ended cleanly", zap.Duration("duration", time.Since(start)))
}

// Stop closes the listener and every open connection, then waits for their
// sessions to finish.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.cancel()
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for _, conn := range a.conns {
		_ = conn.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("line transport stopped")
}

// Addr returns the bound address, or "" before Start has listened.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// IsRunning reports whether the acceptor is accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
