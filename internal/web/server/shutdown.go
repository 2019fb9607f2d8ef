package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook releases a resource while the server drains
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// GracefulShutdown serves until its context is cancelled, then drains
// connections and runs the registered hooks in registration order
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []namedHook
}

// NewGracefulShutdown creates a shutdown handler; a zero timeout means 30s
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracefulShutdown{server: server, timeout: timeout, logger: logger}
}

// RegisterHook registers a hook run after the HTTP server stopped accepting requests
func (gs *GracefulShutdown) RegisterHook(name string, hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, namedHook{name: name, fn: hook})
}

// Run serves until ctx is done or the server fails. Callers typically pass a
// context from signal.NotifyContext.
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- gs.server.Serve()
	}()
	gs.logger.Info("server started", zap.String("addr", gs.server.Addr()))

	select {
	case <-ctx.Done():
		gs.logger.Info("shutdown signal received")
		err := gs.Shutdown()
		<-errChan
		return err
	case err := <-errChan:
		if err != nil {
			gs.runHooks(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}

// Shutdown drains the server within the timeout, then runs the hooks.
// Hook failures are logged and do not stop later hooks.
func (gs *GracefulShutdown) Shutdown() error {
	gs.logger.Info("initiating graceful shutdown", zap.Duration("timeout", gs.timeout))

	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	var shutdownErr error
	if err := gs.server.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		gs.logger.Error("server shutdown failed", zap.Error(err))
	}

	gs.runHooks(ctx)

	if shutdownErr == nil {
		gs.logger.Info("server shutdown completed")
	}
	return shutdownErr
}

func (gs *GracefulShutdown) runHooks(ctx context.Context) {
	gs.mu.Lock()
	hooks := append([]namedHook(nil), gs.hooks...)
	gs.mu.Unlock()

	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			gs.logger.Warn("shutdown hook failed", zap.String("hook", h.name), zap.Error(err))
		}
	}
}
