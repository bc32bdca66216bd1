// Package netcheck provides the reachability probe consulted before remote calls.
package netcheck

import (
	"context"
	"log/slog"
	"net"
	"time"
)

const (
	// DefaultProbeAddr is a well-known public DNS endpoint. Reaching it is a
	// good proxy for "the uplink works" without depending on the API server.
	DefaultProbeAddr = "8.8.8.8:53"

	DefaultProbeTimeout = 3 * time.Second
)

// Gate answers "is the network reachable right now". Every call dials the
// probe address fresh; results are never cached, so a flapping link is
// observed as it flaps.
type Gate struct {
	addr    string
	timeout time.Duration
}

func NewGate(addr string, timeout time.Duration) *Gate {
	if addr == "" {
		addr = DefaultProbeAddr
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Gate{
		addr:    addr,
		timeout: timeout,
	}
}

// Addr returns the probe address.
func (g *Gate) Addr() string {
	return g.addr
}

// Reachable probes the configured address with a bounded-timeout TCP dial.
// Any dial failure, including context cancellation, reports unreachable.
func (g *Gate) Reachable(ctx context.Context) bool {
	dialer := net.Dialer{Timeout: g.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", g.addr)
	if err != nil {
		slog.Debug("connectivity probe failed", "addr", g.addr, "error", err)
		return false
	}
	conn.Close()
	return true
}
