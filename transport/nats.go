package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSTransport bridges engine.io frames over NATS subjects.
//
// A session occupies two subjects under the configured base: frames
// from the server arrive on <subject>.<sid>.down and frames from the
// client go out on <subject>.<sid>.up. The open handshake is a request
// on <subject>.open carrying the client-chosen session id; the server
// answers with an OPEN frame. The client subscribes to its down subject
// before requesting the handshake, so no early frames are lost. All
// frames use the text encoding.
type NATSTransport struct {
	config NATSConfig

	mu        sync.Mutex
	conn      *nats.Conn
	ownsConn  bool
	sub       *nats.Subscription
	handshake *Handshake
	sid       string
	upSubject string
	connected bool
	dialing   bool
	closed    bool

	recv chan frameResult
	done chan struct{}
}

// NATSConfig holds NATS transport configuration.
type NATSConfig struct {
	Config // Embed base config

	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Subject is the base subject the server listens on.
	Subject string

	// Name is the client name for identification.
	Name string

	// Token for token-based auth.
	Token string

	// User and Password for basic auth.
	User     string
	Password string

	// ReconnectWait is the time to wait between reconnection attempts.
	ReconnectWait time.Duration

	// MaxReconnects is the maximum number of reconnection attempts.
	// -1 = unlimited
	MaxReconnects int
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		Config:        DefaultConfig(),
		URL:           nats.DefaultURL,
		Subject:       "sockit",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // Unlimited
	}
}

// NewNATSTransport creates a transport that dials cfg.URL on Connect.
func NewNATSTransport(cfg NATSConfig) (*NATSTransport, error) {
	if cfg.RecvBufferSize <= 0 {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Subject == "" {
		return nil, errors.New("missing NATS subject")
	}

	return &NATSTransport{
		config: cfg,
		recv:   make(chan frameResult, cfg.RecvBufferSize),
		done:   make(chan struct{}),
	}, nil
}

// NewNATSTransportFromConn creates a transport over an existing
// connection. The connection is not closed on Disconnect.
func NewNATSTransportFromConn(conn *nats.Conn, cfg NATSConfig) (*NATSTransport, error) {
	t, err := NewNATSTransport(cfg)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return t, nil
}

// buildNATSOptions constructs NATS connection options from config.
func buildNATSOptions(cfg NATSConfig) []nats.Option {
	opts := []nats.Option{
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}

	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

// sessionSubjects derives the per-session subject pair.
func sessionSubjects(base, sid string) (down, up string) {
	return base + "." + sid + ".down", base + "." + sid + ".up"
}

// Connect dials the server if needed, subscribes the session subject,
// and performs the open handshake.
func (t *NATSTransport) Connect(ctx context.Context) error {
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
	conn := t.conn
	t.mu.Unlock()

	ownsConn := false
	if conn == nil {
		var err error
		conn, err = nats.Connect(t.config.URL, buildNATSOptions(t.config)...)
		if err != nil {
			t.setDialing(false)
			return fmt.Errorf("nats connect: %w", err)
		}
		ownsConn = true
	}

	sid := uuid.NewString()
	downSubject, upSubject := sessionSubjects(t.config.Subject, sid)

	msgs := make(chan *nats.Msg, t.config.RecvBufferSize)
	sub, err := conn.ChanSubscribe(downSubject, msgs)
	if err != nil {
		if ownsConn {
			conn.Close()
		}
		t.setDialing(false)
		return fmt.Errorf("nats subscribe: %w", err)
	}

	hs, err := t.openSession(ctx, conn, sid)
	if err != nil {
		sub.Unsubscribe()
		if ownsConn {
			conn.Close()
		}
		t.setDialing(false)
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.dialing = false
		t.mu.Unlock()
		sub.Unsubscribe()
		if ownsConn {
			conn.Close()
		}
		return ErrClosed
	}
	t.conn = conn
	t.ownsConn = ownsConn
	t.sub = sub
	t.handshake = hs
	t.sid = sid
	t.upSubject = upSubject
	t.connected = true
	t.dialing = false
	t.mu.Unlock()

	go t.readLoop(msgs)
	return nil
}

func (t *NATSTransport) setDialing(v bool) {
	t.mu.Lock()
	t.dialing = v
	t.mu.Unlock()
}

// openSession requests the handshake from the server.
func (t *NATSTransport) openSession(ctx context.Context, conn *nats.Conn, sid string) (*Handshake, error) {
	if t.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ConnectTimeout)
		defer cancel()
	}

	open := Frame{Kind: Open, Data: []byte(`{"sid":"` + sid + `"}`)}
	msg, err := conn.RequestWithContext(ctx, t.config.Subject+".open", EncodeText(open))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}

	f, err := DecodeText(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	return ParseHandshake(&f)
}

// Session returns the handshake received on Connect, or nil before it.
func (t *NATSTransport) Session() *Handshake {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handshake
}

// IsConnected reports whether the session is live.
func (t *NATSTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Emit publishes one frame on the session's up subject.
func (t *NATSTransport) Emit(f Frame) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	conn, subject := t.conn, t.upSubject
	t.mu.Unlock()

	if err := conn.Publish(subject, EncodeText(f)); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// NextFrame returns the next frame from the session subject.
func (t *NATSTransport) NextFrame() (*Frame, error) {
	res, ok := <-t.recv
	if !ok {
		return nil, nil
	}
	return res.frame, res.err
}

// Disconnect publishes a CLOSE frame, unsubscribes, and closes the
// connection when this transport dialed it.
func (t *NATSTransport) Disconnect() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	wasConnected := t.connected
	t.connected = false
	close(t.done)
	conn, sub, subject, owns := t.conn, t.sub, t.upSubject, t.ownsConn
	t.mu.Unlock()

	if !wasConnected {
		return nil
	}

	conn.Publish(subject, EncodeText(Frame{Kind: Close}))
	conn.Flush()

	var err error
	if sub != nil {
		err = sub.Unsubscribe()
	}
	if owns {
		conn.Close()
	}
	return err
}

// readLoop surfaces incoming frames until the session ends.
func (t *NATSTransport) readLoop(msgs chan *nats.Msg) {
	defer close(t.recv)

	for {
		select {
		case <-t.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			f, err := DecodeText(msg.Data)
			if err != nil {
				if !t.push(frameResult{err: err}) {
					return
				}
				continue
			}

			if f.Kind == Ping {
				t.Emit(Frame{Kind: Pong, Data: f.Data})
			}
			if !t.push(frameResult{frame: &f}) {
				return
			}
			if f.Kind == Close {
				return
			}
		}
	}
}

// push delivers a result unless the transport shut down first.
func (t *NATSTransport) push(res frameResult) bool {
	select {
	case t.recv <- res:
		return true
	case <-t.done:
		return false
	}
}
