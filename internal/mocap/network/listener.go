// Package network receives landmark payloads over UDP, one JSON document
// per datagram, and replays them from packet captures.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/mocap.render/internal/mocap/ingest"
	"github.com/banshee-data/mocap.render/internal/monitoring"
)

// MaxDatagram is the largest payload the listener accepts. A pose result
// with both views is roughly 6KB of JSON.
const MaxDatagram = 64 * 1024

// UDPListener reads datagrams and hands each one to a payload handler.
type UDPListener struct {
	address       string
	rcvBuf        int
	logInterval   time.Duration
	handler       ingest.Handler
	stats         *Stats
	socketFactory UDPSocketFactory

	connMu sync.RWMutex
	conn   UDPSocket
}

// UDPListenerConfig configures a UDPListener.
type UDPListenerConfig struct {
	Address       string
	RcvBuf        int
	LogInterval   time.Duration
	Handler       ingest.Handler
	Stats         *Stats
	SocketFactory UDPSocketFactory // nil uses real sockets
}

// NewUDPListener applies defaults to config.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	stats := config.Stats
	if stats == nil {
		stats = NewStats()
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	factory := config.SocketFactory
	if factory == nil {
		factory = RealUDPSocketFactory{}
	}
	return &UDPListener{
		address:       config.Address,
		rcvBuf:        config.RcvBuf,
		logInterval:   logInterval,
		handler:       config.Handler,
		stats:         stats,
		socketFactory: factory,
	}
}

// Stats returns the listener's counters.
func (l *UDPListener) Stats() *Stats { return l.stats }

// Start listens until ctx is cancelled or the listener is closed. Payloads
// that fail to decode are logged and dropped; they never stop the loop.
func (l *UDPListener) Start(ctx context.Context) error {
	if l.handler == nil {
		return errors.New("udp listener: no payload handler")
	}
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := l.socketFactory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.setConn(conn)
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("[UDP] failed to set receive buffer to %d: %v", l.rcvBuf, err)
		}
	}
	monitoring.Logf("[UDP] listening on %s", conn.LocalAddr())

	go l.statsLoop(ctx)

	buf := make([]byte, MaxDatagram)
	var deadlineErrLogged bool
	for {
		if ctx.Err() != nil {
			monitoring.Logf("[UDP] listener stopping")
			return ctx.Err()
		}
		// A short deadline lets the loop notice cancellation.
		if err := conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil && !deadlineErrLogged {
			monitoring.Logf("[UDP] failed to set read deadline: %v", err)
			deadlineErrLogged = true
		}

		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			monitoring.Logf("[UDP] read error: %v", err)
			continue
		}

		// The handler may keep the slice; buf is reused.
		payload := append([]byte(nil), buf[:n]...)
		kind, err := l.handler.HandlePayload(payload)
		l.stats.Add(kind, n, err)
		if err != nil {
			monitoring.Logf("[UDP] dropping %s payload from %v: %v", kind, from, err)
		}
	}
}

func (l *UDPListener) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats("UDP")
		}
	}
}

func (l *UDPListener) setConn(conn UDPSocket) {
	l.connMu.Lock()
	defer l.connMu.Unlock()
	l.conn = conn
}

// Addr returns the bound address once Start has opened the socket.
func (l *UDPListener) Addr() net.Addr {
	l.connMu.RLock()
	defer l.connMu.RUnlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (l *UDPListener) Close() error {
	l.connMu.Lock()
	conn := l.conn
	l.conn = nil
	l.connMu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
