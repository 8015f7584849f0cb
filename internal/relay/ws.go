package relay

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/rtcpair/internal/util"
)

const pinLength = 6

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// server is the loopback WebSocket server that receives carried messages.
type server struct {
	pin      string
	listener net.Listener
	http     *http.Server
	connCh   chan *websocket.Conn
}

// newServer creates a new signaling server with the given PIN for authentication.
func newServer(pin string) *server {
	return &server{
		pin:    pin,
		connCh: make(chan *websocket.Conn, 1),
	}
}

// start begins listening on a random loopback port and returns the URL the
// client must dial.
func (s *server) start() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to start WS server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.http = &http.Server{Handler: mux}

	go func() {
		_ = s.http.Serve(listener)
	}()

	return fmt.Sprintf("ws://%s/ws?pin=%s", listener.Addr(), s.pin), nil
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	pin := r.URL.Query().Get("pin")
	if pin != s.pin {
		http.Error(w, "Invalid PIN", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only accept the first client.
	select {
	case s.connCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"))
		conn.Close()
	}
}

// waitForClient blocks until a client connects or context is cancelled.
func (s *server) waitForClient(ctx context.Context) (*websocket.Conn, error) {
	select {
	case conn := <-s.connCh:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// close shuts down the listener, preventing new connections.
func (s *server) close() error {
	if s.http != nil {
		return s.http.Close()
	}
	return nil
}

// connect dials the given WebSocket URL and returns the connection.
func connect(ctx context.Context, url string) (*websocket.Conn, error) {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WS server: %w", err)
	}
	return conn, nil
}

// generatePIN returns a random numeric PIN of the specified length.
func generatePIN(length int) string {
	digits := make([]byte, length)
	for i := range digits {
		n, _ := rand.Int(rand.Reader, big.NewInt(10))
		digits[i] = byte('0') + byte(n.Int64())
	}
	return string(digits)
}

// ---------------------------------------------------------------------------
// WebSocket carrier
// ---------------------------------------------------------------------------

// WebSocket carries messages across a loopback WebSocket connection: the
// sending side writes on the dialed connection, the receiving side reads on
// the accepted one.
type WebSocket struct {
	srv *server
	out *websocket.Conn // dialed side, written by Carry
	in  *websocket.Conn // accepted side, read by Carry

	mu     sync.Mutex
	broken error

	closeOnce sync.Once
	closeErr  error
}

// Compile-time interface check.
var _ Carrier = (*WebSocket)(nil)

// NewWebSocket starts the loopback server and connects to it.
func NewWebSocket(ctx context.Context) (*WebSocket, error) {
	srv := newServer(generatePIN(pinLength))
	url, err := srv.start()
	if err != nil {
		return nil, err
	}

	out, err := connect(ctx, url)
	if err != nil {
		srv.close()
		return nil, err
	}

	in, err := srv.waitForClient(ctx)
	if err != nil {
		out.Close()
		srv.close()
		return nil, fmt.Errorf("failed to wait for client: %w", err)
	}

	util.LogDebug("signaling relay listening on %s", srv.listener.Addr())
	return &WebSocket{srv: srv, out: out, in: in}, nil
}

type readResult struct {
	msg Message
	err error
}

// Carry writes msg on the dialed side and returns what the accepted side
// reads. Calls are serialized. A cancelled Carry leaves the carrier unusable.
func (w *WebSocket) Carry(ctx context.Context, msg Message) (Message, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken != nil {
		return Message{}, w.broken
	}

	resCh := make(chan readResult, 1)
	go func() {
		var got Message
		err := w.in.ReadJSON(&got)
		resCh <- readResult{msg: got, err: err}
	}()

	if err := w.out.WriteJSON(msg); err != nil {
		w.broken = fmt.Errorf("WS write failed: %w", err)
		return Message{}, w.broken
	}

	select {
	case res := <-resCh:
		if res.err != nil {
			w.broken = fmt.Errorf("WS read failed: %w", res.err)
			return Message{}, w.broken
		}
		return res.msg, nil
	case <-ctx.Done():
		w.broken = ctx.Err()
		return Message{}, ctx.Err()
	}
}

// Close closes both connections and the server. Safe to call more than once.
func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = errors.Join(w.out.Close(), w.in.Close(), w.srv.close())
	})
	return w.closeErr
}
