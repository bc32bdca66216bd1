package netcheck

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateReachable_LocalListener(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	// accept loop so dials complete
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	gate := NewGate(listener.Addr().String(), time.Second)
	assert.True(t, gate.Reachable(context.Background()))
}

func TestGateReachable_ClosedPort(t *testing.T) {
	// grab a free port, then close it so nothing listens there
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	gate := NewGate(addr, 500*time.Millisecond)
	assert.False(t, gate.Reachable(context.Background()))
}

func TestGateReachable_CancelledContext(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := NewGate(listener.Addr().String(), time.Second)
	assert.False(t, gate.Reachable(ctx))
}

func TestGateReachable_NotCached(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	gate := NewGate(addr, 500*time.Millisecond)
	require.True(t, gate.Reachable(context.Background()))

	// once the listener goes away, the very next probe must notice
	require.NoError(t, listener.Close())
	assert.False(t, gate.Reachable(context.Background()))
}

func TestNewGate_Defaults(t *testing.T) {
	gate := NewGate("", 0)
	assert.Equal(t, DefaultProbeAddr, gate.Addr())
	assert.Equal(t, DefaultProbeTimeout, gate.timeout)
}
