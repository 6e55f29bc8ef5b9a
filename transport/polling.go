package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// payloadSeparator joins frames batched into one polling payload.
const payloadSeparator = 0x1e

// EncodePayload renders frames as one polling payload batch.
func EncodePayload(frames []Frame) []byte {
	parts := make([][]byte, len(frames))
	for i, f := range frames {
		parts[i] = EncodeText(f)
	}
	return bytes.Join(parts, []byte{payloadSeparator})
}

// DecodePayload splits a polling payload batch into frames.
func DecodePayload(data []byte) ([]Frame, error) {
	if len(data) == 0 {
		return nil, nil
	}
	parts := bytes.Split(data, []byte{payloadSeparator})
	frames := make([]Frame, 0, len(parts))
	for _, part := range parts {
		f, err := DecodeText(part)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

// PollingTransport implements Transport over engine.io HTTP long-polling.
// Incoming frames arrive in batches on GET requests; outgoing frames go
// out as POST bodies, one at a time.
type PollingTransport struct {
	config PollingConfig
	client *http.Client

	baseURL string
	pollURL string

	mu        sync.Mutex
	connected bool
	dialing   bool
	closed    bool
	handshake *Handshake
	cancel    context.CancelFunc

	sendMu sync.Mutex

	recv chan frameResult
	done chan struct{}
}

// PollingConfig holds polling transport configuration.
type PollingConfig struct {
	Config // Embed base config

	// URL is the server endpoint. ws and wss schemes are rewritten to
	// http and https; an empty path defaults to /socket.io/.
	URL string

	// Header is sent with every HTTP request.
	Header http.Header

	// Client is the HTTP client to use. It must not carry a request
	// timeout, or long polls will be cut short. nil means a fresh
	// client without one.
	Client *http.Client
}

// DefaultPollingConfig returns configuration with sensible defaults.
func DefaultPollingConfig() PollingConfig {
	return PollingConfig{
		Config: DefaultConfig(),
	}
}

// NewPollingTransport creates a transport that polls cfg.URL once
// Connect succeeds.
func NewPollingTransport(cfg PollingConfig) (*PollingTransport, error) {
	if cfg.RecvBufferSize <= 0 {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	if cfg.URL == "" {
		return nil, errors.New("missing polling URL")
	}

	baseURL, err := buildPollingURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	return &PollingTransport{
		config:  cfg,
		client:  client,
		baseURL: baseURL,
		recv:    make(chan frameResult, cfg.RecvBufferSize),
		done:    make(chan struct{}),
	}, nil
}

// buildPollingURL normalizes the endpoint and pins the engine.io query.
func buildPollingURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse polling URL: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported polling scheme %q", u.Scheme)
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "polling")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Connect performs the open handshake and starts the poll loop.
func (t *PollingTransport) Connect(ctx context.Context) error {
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

	if t.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ConnectTimeout)
		defer cancel()
	}

	frames, err := t.fetch(ctx, t.baseURL)
	if err != nil {
		t.setDialing(false)
		return fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if len(frames) == 0 {
		t.setDialing(false)
		return fmt.Errorf("%w: empty open payload", ErrHandshake)
	}

	hs, err := ParseHandshake(&frames[0])
	if err != nil {
		t.setDialing(false)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	if t.closed {
		t.dialing = false
		t.mu.Unlock()
		cancel()
		return ErrClosed
	}
	t.handshake = hs
	t.pollURL = t.baseURL + "&sid=" + url.QueryEscape(hs.Sid)
	t.connected = true
	t.dialing = false
	t.cancel = cancel
	t.mu.Unlock()

	go t.pollLoop(loopCtx, frames[1:])
	return nil
}

func (t *PollingTransport) setDialing(v bool) {
	t.mu.Lock()
	t.dialing = v
	t.mu.Unlock()
}

// Session returns the handshake received on Connect, or nil before it.
func (t *PollingTransport) Session() *Handshake {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handshake
}

// IsConnected reports whether the session is live.
func (t *PollingTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Emit posts one frame to the session endpoint.
func (t *PollingTransport) Emit(f Frame) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	t.mu.Unlock()

	ctx := context.Background()
	if t.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.WriteTimeout)
		defer cancel()
	}
	return t.postFrame(ctx, f)
}

// postFrame writes one frame as a POST body. Only one POST may be in
// flight per session.
func (t *PollingTransport) postFrame(ctx context.Context, f Frame) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.pollURL, bytes.NewReader(EncodeText(f)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	t.applyHeader(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("post frame: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post frame: status %d", resp.StatusCode)
	}
	return nil
}

// NextFrame returns the next frame from the poll loop.
func (t *PollingTransport) NextFrame() (*Frame, error) {
	res, ok := <-t.recv
	if !ok {
		return nil, nil
	}
	return res.frame, res.err
}

// Disconnect posts a CLOSE frame so the server can reap the session,
// then stops the poll loop.
func (t *PollingTransport) Disconnect() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	wasConnected := t.connected
	t.connected = false
	close(t.done)
	cancel := t.cancel
	t.mu.Unlock()

	if !wasConnected {
		return nil
	}

	timeout := t.config.WriteTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancelPost := context.WithTimeout(context.Background(), timeout)
	t.postFrame(ctx, Frame{Kind: Close})
	cancelPost()

	if cancel != nil {
		cancel()
	}
	return nil
}

// pollLoop delivers the frames that rode along with the handshake
// batch, then fetches batches until the session ends.
func (t *PollingTransport) pollLoop(ctx context.Context, pending []Frame) {
	defer close(t.recv)

	if !t.deliver(pending) {
		return
	}

	for {
		select {
		case <-t.done:
			return
		default:
		}

		frames, err := t.fetch(ctx, t.pollURL)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, ErrInvalidFrame) {
				// Skip the malformed batch, the session itself is alive.
				if !t.push(frameResult{err: err}) {
					return
				}
				continue
			}
			t.push(frameResult{err: err})
			return
		}

		if !t.deliver(frames) {
			return
		}
	}
}

// deliver pushes a frame batch in order, answering pings. Delivery
// stops at a CLOSE frame or when the transport shuts down.
func (t *PollingTransport) deliver(frames []Frame) bool {
	for i := range frames {
		f := frames[i]
		if f.Kind == Ping {
			t.answerPing(f.Data)
		}
		if !t.push(frameResult{frame: &f}) {
			return false
		}
		if f.Kind == Close {
			return false
		}
	}
	return true
}

// fetch issues one poll GET and decodes the payload batch.
func (t *PollingTransport) fetch(ctx context.Context, u string) ([]Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	t.applyHeader(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("poll read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll request: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	return DecodePayload(body)
}

// push delivers a result unless the transport shut down first.
func (t *PollingTransport) push(res frameResult) bool {
	select {
	case t.recv <- res:
		return true
	case <-t.done:
		return false
	}
}

// answerPing posts a pong. Errors are ignored here; a dead session
// surfaces through the poll loop.
func (t *PollingTransport) answerPing(data []byte) {
	ctx := context.Background()
	if t.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.WriteTimeout)
		defer cancel()
	}
	t.postFrame(ctx, Frame{Kind: Pong, Data: data})
}

// applyHeader copies configured headers onto an outgoing request.
func (t *PollingTransport) applyHeader(req *http.Request) {
	for k, vals := range t.config.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}
