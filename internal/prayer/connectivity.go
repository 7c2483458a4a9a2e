package prayer

import (
	"context"
	"net"
	"time"
)

// Connectivity reports whether the network is available
type Connectivity interface {
	Online(ctx context.Context) bool
}

// StaticConnectivity always reports the same answer
type StaticConnectivity bool

func (s StaticConnectivity) Online(context.Context) bool { return bool(s) }

// DialProbe reports online when a TCP connection to Addr succeeds within Timeout
type DialProbe struct {
	Addr    string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
