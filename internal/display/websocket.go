package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout    = 2 * time.Second
	shutdownTimeout = 2 * time.Second
)

const viewerPage = `<!DOCTYPE html>
<html>
<head><title>Ground Station</title>
<style>body{margin:0;background:#000}img{display:block;margin:auto;max-width:100vw;max-height:100vh}</style>
</head>
<body>
<img id="hud" alt="">
<script>
(function connect() {
  const img = document.getElementById("hud");
  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/stream");
  ws.binaryType = "blob";
  ws.onmessage = (e) => {
    const url = URL.createObjectURL(e.data);
    img.onload = () => URL.revokeObjectURL(url);
    img.src = url;
  };
  ws.onclose = () => setTimeout(connect, 1000);
})();
</script>
</body>
</html>
`

// WithWebSocketLogger sets the logger for the websocket sink
func WithWebSocketLogger(logger *slog.Logger) func(*WebSocketSink) {
	return func(s *WebSocketSink) {
		s.logger = logger.With(slog.String("sink", "websocket"))
	}
}

type client struct {
	conn   *websocket.Conn
	frames chan []byte
	done   chan struct{}
}

// WebSocketSink serves a browser viewer and streams JPEG frames to every
// connected client. A client that is slower than the video only receives the
// latest frame.
type WebSocketSink struct {
	addr     string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	clients  map[*client]struct{}

	buf bytes.Buffer

	stopOnce sync.Once
	stopErr  error
}

// NewWebSocketSink creates a sink listening on addr (host:port)
func NewWebSocketSink(addr string, options ...func(*WebSocketSink)) *WebSocketSink {
	s := WebSocketSink{
		addr:     addr,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*client]struct{}),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Start binds the HTTP listener and begins serving
func (s *WebSocketSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding viewer on %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stream", s.handleStream)

	s.listener = ln
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(fmt.Sprintf("serving viewer: %s", err.Error()))
		}
	}(s.server)

	s.logger.Info("viewer listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *WebSocketSink) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Clients returns the number of connected viewers
func (s *WebSocketSink) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Show encodes the frame once and queues it for every client
func (s *WebSocketSink) Show(img *image.RGBA) error {
	if err := checkFrame(img); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) == 0 {
		return nil
	}

	s.buf.Reset()
	if err := encode(&s.buf, img, ImageJPEG); err != nil {
		return err
	}
	frame := bytes.Clone(s.buf.Bytes())

	for c := range s.clients {
		select {
		case c.frames <- frame:
		default:
			// replace the stale queued frame
			select {
			case <-c.frames:
			default:
			}
			select {
			case c.frames <- frame:
			default:
			}
		}
	}

	return nil
}

// Stop shuts the server down and disconnects every client
func (s *WebSocketSink) Stop() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		srv := s.server
		clients := make([]*client, 0, len(s.clients))
		for c := range s.clients {
			clients = append(clients, c)
		}
		s.mu.Unlock()

		if srv == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down viewer: %w", err))
		}

		for _, c := range clients {
			s.removeClient(c)
		}

		s.stopErr = errors.Join(errs...)
	})

	return s.stopErr
}

func (s *WebSocketSink) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, viewerPage)
}

func (s *WebSocketSink) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("websocket upgrade: %s", err.Error()))
		return
	}

	c := &client{
		conn:   conn,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("viewer connected", slog.String("remote", r.RemoteAddr))

	go s.readLoop(c)
	s.writeLoop(c)

	s.logger.Info("viewer disconnected", slog.String("remote", r.RemoteAddr))
}

// readLoop discards client messages and detects disconnects
func (s *WebSocketSink) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			s.removeClient(c)
			return
		}
	}
}

func (s *WebSocketSink) writeLoop(c *client) {
	defer s.removeClient(c)

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.frames:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.logger.Debug(fmt.Sprintf("writing frame: %s", err.Error()))
				return
			}
		}
	}
}

func (s *WebSocketSink) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}

	delete(s.clients, c)
	close(c.done)
	_ = c.conn.Close()
}
