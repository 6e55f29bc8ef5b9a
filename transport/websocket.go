package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport implements Transport over a client WebSocket
// connection.
type WebSocketTransport struct {
	config WebSocketConfig

	mu        sync.Mutex
	conn      *websocket.Conn
	handshake *Handshake
	connected bool
	dialing   bool
	closed    bool

	recv chan frameResult
	done chan struct{}
}

// WebSocketConfig holds WebSocket transport configuration.
type WebSocketConfig struct {
	Config // Embed base config

	// URL is the server endpoint. http and https schemes are rewritten
	// to ws and wss; an empty path defaults to /socket.io/.
	URL string

	// Header is sent with the opening HTTP request.
	Header http.Header

	// MaxMessageSize limits incoming frame size.
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns configuration with sensible defaults.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		Config:         DefaultConfig(),
		MaxMessageSize: 1024 * 1024, // 1MB
	}
}

// NewWebSocketTransport creates a transport that dials cfg.URL on Connect.
func NewWebSocketTransport(cfg WebSocketConfig) (*WebSocketTransport, error) {
	if cfg.RecvBufferSize <= 0 {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	if cfg.URL == "" {
		return nil, errors.New("missing websocket URL")
	}

	wsURL, err := buildWebSocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	cfg.URL = wsURL

	return &WebSocketTransport{
		config: cfg,
		recv:   make(chan frameResult, cfg.RecvBufferSize),
		done:   make(chan struct{}),
	}, nil
}

// buildWebSocketURL normalizes the endpoint and pins the engine.io query.
func buildWebSocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse websocket URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Connect dials the server and consumes the OPEN handshake.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.connected || t.dialing {
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.dialing = true
	t.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: t.config.ConnectTimeout}
	conn, resp, err := dialer.DialContext(ctx, t.config.URL, t.config.Header)
	if err != nil {
		t.setDialing(false)
		if resp != nil {
			return fmt.Errorf("websocket dial: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}

	if t.config.MaxMessageSize > 0 {
		conn.SetReadLimit(t.config.MaxMessageSize)
	}

	hs, err := readHandshake(conn, t.config.ConnectTimeout)
	if err != nil {
		conn.Close()
		t.setDialing(false)
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.handshake = hs
	t.connected = true
	t.dialing = false
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *WebSocketTransport) setDialing(v bool) {
	t.mu.Lock()
	t.dialing = v
	t.mu.Unlock()
}

// readHandshake waits for the server's OPEN frame.
func readHandshake(conn *websocket.Conn, timeout time.Duration) (*Handshake, error) {
	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	conn.SetReadDeadline(time.Time{})

	f, err := DecodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return ParseHandshake(&f)
}

// Session returns the handshake received on Connect, or nil before it.
func (t *WebSocketTransport) Session() *Handshake {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handshake
}

// IsConnected reports whether the session is live.
func (t *WebSocketTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Emit writes one frame. Binary message frames travel as native binary
// WebSocket messages, everything else as text.
func (t *WebSocketTransport) Emit(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return ErrNotConnected
	}
	return t.writeFrameLocked(f)
}

// writeFrameLocked writes a frame. Callers must hold mu.
func (t *WebSocketTransport) writeFrameLocked(f Frame) error {
	if t.config.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	}
	if f.Kind == MessageBinary {
		return t.conn.WriteMessage(websocket.BinaryMessage, f.Data)
	}
	return t.conn.WriteMessage(websocket.TextMessage, EncodeText(f))
}

// NextFrame returns the next frame from the connection.
func (t *WebSocketTransport) NextFrame() (*Frame, error) {
	res, ok := <-t.recv
	if !ok {
		return nil, nil
	}
	return res.frame, res.err
}

// Disconnect sends a CLOSE frame, performs the WebSocket close
// handshake, and drops the connection.
func (t *WebSocketTransport) Disconnect() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	wasConnected := t.connected
	t.connected = false
	close(t.done)

	if !wasConnected || conn == nil {
		t.mu.Unlock()
		return nil
	}

	// The CLOSE frame goes out under mu so it cannot interleave with a
	// concurrent Emit on the same connection.
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.TextMessage, EncodeText(Frame{Kind: Close}))
	t.mu.Unlock()

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}

// readLoop surfaces incoming frames until the connection ends.
func (t *WebSocketTransport) readLoop(conn *websocket.Conn) {
	defer close(t.recv)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			t.push(frameResult{err: fmt.Errorf("websocket read: %w", err)})
			return
		}

		var f Frame
		switch msgType {
		case websocket.BinaryMessage:
			f = Frame{Kind: MessageBinary, Data: data}
		case websocket.TextMessage:
			var derr error
			f, derr = DecodeText(data)
			if derr != nil {
				if !t.push(frameResult{err: derr}) {
					return
				}
				continue
			}
		default:
			continue
		}

		if f.Kind == Ping {
			t.writePong(f.Data)
		}
		if !t.push(frameResult{frame: &f}) {
			return
		}
		if f.Kind == Close {
			return
		}
	}
}

// push delivers a result unless the transport shut down first.
func (t *WebSocketTransport) push(res frameResult) bool {
	select {
	case t.recv <- res:
		return true
	case <-t.done:
		return false
	}
}

// writePong answers a server ping. Write errors are ignored here; a dead
// connection surfaces through the read loop.
func (t *WebSocketTransport) writePong(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return
	}
	t.writeFrameLocked(Frame{Kind: Pong, Data: data})
}
