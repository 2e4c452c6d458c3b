// Package ingest receives sensor datagrams from the vehicle and folds them
// into the shared telemetry state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultPacketSize is the largest datagram read in one receive
	DefaultPacketSize = 4096

	// DefaultReceiveBuffer is the kernel receive buffer requested for each socket
	DefaultReceiveBuffer = 65536
)

var (
	// ErrNotOpen is returned by Run when the listener socket was never bound
	ErrNotOpen = errors.New("listener is not open")

	// ErrAlreadyRunning is returned by Run when the loop is already active
	ErrAlreadyRunning = errors.New("listener is already running")
)

// Handler consumes the decoded text of one datagram
type Handler interface {
	HandleText(text string)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(text string)

func (f HandlerFunc) HandleText(text string) { f(text) }

// Stats are the counters of a listener
type Stats struct {
	Packets uint64 // Datagrams received
	Bytes   uint64 // Payload bytes received
}

// WithLogger sets the logger for the listener
func WithLogger(logger *slog.Logger) func(*Listener) {
	return func(l *Listener) {
		l.logger = logger.With(slog.String("unit", l.name))
	}
}

// WithPacketSize sets the maximum datagram size read in one receive
func WithPacketSize(size int) func(*Listener) {
	return func(l *Listener) {
		if size > 0 {
			l.packetSize = size
		}
	}
}

// WithReceiveBuffer sets the socket receive buffer size, zero keeps the OS default
func WithReceiveBuffer(size int) func(*Listener) {
	return func(l *Listener) {
		l.receiveBuffer = size
	}
}

// Listener is an ingestion loop bound to one UDP endpoint. Every datagram is
// decoded to text and passed to the handler on the loop's goroutine.
type Listener struct {
	name    string
	addr    string
	handler Handler

	packetSize    int
	receiveBuffer int
	logger        *slog.Logger

	mu   sync.Mutex
	conn net.PacketConn

	running  atomic.Bool
	stopping atomic.Bool

	closeOnce sync.Once
	closeErr  error

	packets atomic.Uint64
	bytes   atomic.Uint64
}

// NewListener creates a listener for addr (host:port). The socket is bound by Open.
func NewListener(name, addr string, h Handler, options ...func(*Listener)) *Listener {
	l := Listener{
		name:          name,
		addr:          addr,
		handler:       h,
		packetSize:    DefaultPacketSize,
		receiveBuffer: DefaultReceiveBuffer,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Name returns the unit name of the listener
func (l *Listener) Name() string {
	return l.name
}

// Open binds the UDP socket
func (l *Listener) Open(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	lc := net.ListenConfig{Control: receiveBufferControl(l.receiveBuffer)}
	conn, err := lc.ListenPacket(ctx, "udp", l.addr)
	if err != nil {
		return fmt.Errorf("binding %s socket on %s: %w", l.name, l.addr, err)
	}

	l.conn = conn
	l.logger.Info("listening for datagrams", slog.String("addr", conn.LocalAddr().String()))
	return nil
}

// Addr returns the bound local address, or nil before Open
func (l *Listener) Addr() net.Addr {
	if conn := l.getConn(); conn != nil {
		return conn.LocalAddr()
	}
	return nil
}

// Run receives datagrams until ctx is cancelled, Wake is called or the socket
// is closed. A stop request is not an error.
func (l *Listener) Run(ctx context.Context) error {
	conn := l.getConn()
	if conn == nil {
		return ErrNotOpen
	}
	if l.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Wake()
		case <-done:
		}
	}()

	buf := make([]byte, l.packetSize)
	for {
		if ctx.Err() != nil || l.stopping.Load() {
			return nil
		}

		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || l.stopping.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("receiving %s datagram: %w", l.name, err)
		}

		l.packets.Add(1)
		l.bytes.Add(uint64(n))

		if n == 0 {
			continue
		}

		l.handler.HandleText(DecodeText(buf[:n]))
	}
}

// Wake asks the loop to stop and unblocks a pending receive without
// releasing the socket.
func (l *Listener) Wake() {
	l.stopping.Store(true)

	if conn := l.getConn(); conn != nil {
		_ = conn.SetReadDeadline(time.Now())
	}
}

// Close releases the socket. It is safe to call more than once and on a
// listener that was never opened.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.stopping.Store(true)

		l.mu.Lock()
		defer l.mu.Unlock()

		if l.conn != nil {
			l.closeErr = l.conn.Close()
		}
	})

	return l.closeErr
}

// IsRunning reports whether the receive loop is active
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

// Stats returns the listener counters
func (l *Listener) Stats() Stats {
	return Stats{
		Packets: l.packets.Load(),
		Bytes:   l.bytes.Load(),
	}
}

// Counters reports the listener counters merged with those of its handler
func (l *Listener) Counters() map[string]uint64 {
	counters := map[string]uint64{
		"packets": l.packets.Load(),
		"bytes":   l.bytes.Load(),
	}

	if c, ok := l.handler.(interface{ Counters() map[string]uint64 }); ok {
		for k, v := range c.Counters() {
			counters[k] = v
		}
	}
	return counters
}

func (l *Listener) getConn() net.PacketConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}
