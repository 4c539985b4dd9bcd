// Package server runs the daemon's long-lived services and coordinates
// graceful shutdown on signal, context cancellation, or service failure.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the service
// stops or fails; Stop must unblock a concurrent Start.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }
func (f *FuncService) Stop()        { f.StopFn() }

// Lifecycle starts registered services concurrently and stops them in
// reverse registration order once any of them fails or a shutdown signal
// arrives.
type Lifecycle struct {
	logger *zap.Logger

	mu       sync.Mutex
	services []namedService
	stopped  bool
}

type namedService struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a named service. Registration order determines shutdown
// order (reverse).
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, svc: svc})
}

// Run starts every registered service and blocks until SIGINT/SIGTERM,
// context cancellation, or the first service failure, then stops all
// services in reverse order.
//
// Postcondition: All services are stopped on return. Returns the first
// service error, or nil for signal- and context-driven shutdowns.
func (l *Lifecycle) Run(ctx context.Context) error {
	started := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := make([]namedService, len(l.services))
	copy(services, l.services)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		ns := ns
		go func() {
			l.logger.Info("service starting", zap.String("service", ns.name))
			if err := ns.svc.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
				cancel()
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		// A failing service cancels the context itself; prefer its error
		// over reporting a bare cancellation.
		select {
		case runErr = <-errCh:
			l.logger.Error("service failed, shutting down", zap.Error(runErr))
		default:
			l.logger.Info("context cancelled, shutting down")
		}
	}

	l.stopAll(services)
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(started)))
	return runErr
}

func (l *Lifecycle) stopAll(services []namedService) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.mu.Unlock()

	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		begin := time.Now()
		ns.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(begin)),
		)
	}
}
