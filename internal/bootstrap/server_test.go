package bootstrap

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestServers_ShutdownOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Address = "127.0.0.1:0"

	registered := false
	s := newServers(cfg, http.NotFoundHandler(), func(*grpc.Server) { registered = true })
	assert.True(t, registered)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, lis) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("servers did not stop")
	}
}

func TestServers_ListenError(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := config.Default()
	cfg.HTTP.Address = taken.Addr().String()
	s := newServers(cfg, http.NotFoundHandler(), nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	select {
	case err := <-runAsync(s, lis):
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected listen error")
	}
}

func runAsync(s *Servers, lis net.Listener) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.serve(context.Background(), lis) }()
	return done
}
