// Package server manages the simulation server's lifecycle: ordered service
// startup, signal handling, and reverse-order graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the service stops
// or fails; Stop asks it to wind down.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle starts services in registration order and stops them in reverse
// order on SIGINT, SIGTERM, context cancellation, or the first service
// failure. Add all services before calling Run; Lifecycle is not safe for
// concurrent registration.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must be non-nil")
	}
	return &Lifecycle{logger: logger}
}

// Add registers a named service. Services start in Add order and stop in
// reverse.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	if name == "" || svc == nil {
		panic("server.Lifecycle.Add: name must be non-empty and svc non-nil")
	}
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until a termination signal arrives, the
// context is cancelled, or a service fails; it then stops all services in
// reverse order.
//
// Postcondition: Every service's Stop has been called when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(l.services))
	for _, ns := range l.services {
		ns := ns
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			if err := ns.service.Start(); err != nil {
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
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	for i := len(l.services) - 1; i >= 0; i-- {
		ns := l.services[i]
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
	}

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return runErr
}
