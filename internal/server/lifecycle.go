// Package server runs the coordinator's long-lived services: it starts them
// in order, waits for a signal or a failure, and stops them in reverse.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds how long one service may take to stop.
const DefaultStopTimeout = 10 * time.Second

// Service is a long-running component. Start blocks until the service is
// stopped or fails; Stop makes a running Start return.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn.
func (f *FuncService) Stop() { f.StopFn() }

type namedService struct {
	name    string
	service Service
}

// Lifecycle owns a set of named services.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration

	mu       sync.Mutex
	services []namedService
	onReady  []func()
	onStop   []func()
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger, stopTimeout: DefaultStopTimeout}
}

// SetStopTimeout overrides DefaultStopTimeout.
func (l *Lifecycle) SetStopTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimeout = d
}

// Add registers a service. Services start in the order added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnReady registers fn to run once every service has been launched.
func (l *Lifecycle) OnReady(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReady = append(l.onReady, fn)
}

// OnStop registers fn to run before services are stopped.
func (l *Lifecycle) OnStop(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStop = append(l.onStop, fn)
}

// Names returns the registered service names in start order.
func (l *Lifecycle) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.services))
	for _, ns := range l.services {
		names = append(names, ns.name)
	}
	return names
}

// Run starts every service and blocks until SIGINT or SIGTERM, ctx is
// cancelled, or a service fails. Services are then stopped in reverse order.
//
// Postcondition: All services have been asked to stop. The returned error
// wraps the first service failure, or is nil for a signal or cancellation.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	onReady := append([]func(){}, l.onReady...)
	onStop := append([]func(){}, l.onStop...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go l.start(ns, errCh)
	}
	for _, fn := range onReady {
		fn()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	for _, fn := range onStop {
		fn()
	}
	l.shutdown(services)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) start(ns namedService, errCh chan<- error) {
	l.logger.Info("starting service", zap.String("service", ns.name))
	svcStart := time.Now()
	err := ns.service.Start()
	if err == nil {
		return
	}
	l.logger.Error("service failed",
		zap.String("service", ns.name),
		zap.Error(err),
		zap.Duration("uptime", time.Since(svcStart)),
	)
	errCh <- fmt.Errorf("service %s: %w", ns.name, err)
}

// ErrStopTimeout is logged when a service does not stop in time.
var ErrStopTimeout = errors.New("service did not stop in time")

func (l *Lifecycle) shutdown(services []namedService) {
	l.mu.Lock()
	timeout := l.stopTimeout
	l.mu.Unlock()

	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))

		done := make(chan struct{})
		go func() {
			ns.service.Stop()
			close(done)
		}()
		select {
		case <-done:
			l.logger.Info("service stopped",
				zap.String("service", ns.name),
				zap.Duration("elapsed", time.Since(svcStart)),
			)
		case <-time.After(timeout):
			l.logger.Warn("abandoning service",
				zap.String("service", ns.name),
				zap.Error(ErrStopTimeout),
				zap.Duration("timeout", timeout),
			)
		}
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
