package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
})

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(okHandler)

	assert.Equal(t, ":8080", config.Address)
	assert.Equal(t, 15*time.Second, config.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.WriteTimeout)
	assert.Equal(t, 60*time.Second, config.IdleTimeout)
	assert.Equal(t, 1<<20, config.MaxHeaderBytes)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Address: ":0"})
	assert.EqualError(t, err, "handler cannot be nil")

	config := DefaultConfig(okHandler)
	config.Database = &DatabaseConfig{}
	_, err = New(config)
	assert.ErrorContains(t, err, "database connection cannot be nil")
}

func TestNewConfiguresDatabasePool(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	config := DefaultConfig(okHandler)
	config.Database = DefaultDatabaseConfig(db)
	_, err = New(config)
	require.NoError(t, err)

	assert.Equal(t, 25, db.Stats().MaxOpenConnections)
}

func TestTLSConfig(t *testing.T) {
	config := DefaultConfig(okHandler)
	config.TLSConfig = &TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}

	srv, err := New(config)
	require.NoError(t, err)
	require.NotNil(t, srv.httpServer.TLSConfig)
	assert.Equal(t, uint16(0x0303), srv.httpServer.TLSConfig.MinVersion)
	assert.Contains(t, srv.httpServer.TLSConfig.NextProtos, "h2")
}

func startServer(t *testing.T) *Server {
	t.Helper()
	config := DefaultConfig(okHandler)
	config.Address = "127.0.0.1:0"
	srv, err := New(config)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())
	return srv
}

func TestServeAndShutdown(t *testing.T) {
	srv := startServer(t)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, <-done, "ErrServerClosed is not an error")
}

func TestGracefulShutdownRunsHooksInOrder(t *testing.T) {
	srv := startServer(t)
	core, logs := observer.New(zapcore.InfoLevel)
	gs := NewGracefulShutdown(srv, time.Second, zap.New(core))

	var mu sync.Mutex
	var order []string
	record := func(name string, err error) ShutdownHook {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	gs.RegisterHook("cache", record("cache", errors.New("already closed")))
	gs.RegisterHook("store", record("store", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"cache", "store"}, order)
	assert.Equal(t, 1, logs.FilterMessage("shutdown hook failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("server shutdown completed").Len())
}

func TestGracefulShutdownServeFailure(t *testing.T) {
	first := startServer(t)
	defer first.Close()

	config := DefaultConfig(okHandler)
	config.Address = first.Addr()
	second, err := New(config)
	require.NoError(t, err)

	hookRan := false
	gs := NewGracefulShutdown(second, 0, nil)
	gs.RegisterHook("store", func(ctx context.Context) error {
		hookRan = true
		return nil
	})

	err = gs.Run(context.Background())
	assert.ErrorContains(t, err, "server failed")
	assert.True(t, hookRan)
}
