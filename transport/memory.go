package transport

import (
	"context"
	"sync"
)

// MemoryTransport is an in-process Transport backed by channels. A
// linked pair behaves like a duplex connection; an unlinked end acts as
// a scriptable endpoint that records what it sends.
type MemoryTransport struct {
	config Config

	mu            sync.Mutex
	connected     bool
	closed        bool
	ended         bool
	connectErr    error
	emitErr       error
	disconnectErr error
	sent          []Frame
	peer          *MemoryTransport

	in   chan frameResult
	done chan struct{}
}

// NewMemoryTransport creates an unlinked end. Frames passed to Inject
// come back out of NextFrame; frames given to Emit are recorded and
// retrievable through Sent.
func NewMemoryTransport(cfg Config) *MemoryTransport {
	if cfg.RecvBufferSize <= 0 {
		cfg.RecvBufferSize = DefaultConfig().RecvBufferSize
	}
	return &MemoryTransport{
		config: cfg,
		in:     make(chan frameResult, cfg.RecvBufferSize),
		done:   make(chan struct{}),
	}
}

// NewMemoryPair creates two linked ends. Frames emitted on one end
// arrive on the other.
func NewMemoryPair(cfg Config) (*MemoryTransport, *MemoryTransport) {
	a := NewMemoryTransport(cfg)
	b := NewMemoryTransport(cfg)
	a.peer = b
	b.peer = a
	return a, b
}

// Connect marks the end live.
func (t *MemoryTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.connected {
		return ErrAlreadyConnected
	}
	if t.connectErr != nil {
		err := t.connectErr
		t.connectErr = nil
		return err
	}
	t.connected = true
	return nil
}

// FailConnect makes the next Connect return err instead of succeeding.
func (t *MemoryTransport) FailConnect(err error) {
	t.mu.Lock()
	t.connectErr = err
	t.mu.Unlock()
}

// FailEmit makes Emit return err until cleared with FailEmit(nil).
func (t *MemoryTransport) FailEmit(err error) {
	t.mu.Lock()
	t.emitErr = err
	t.mu.Unlock()
}

// FailDisconnect makes Disconnect return err after tearing down.
func (t *MemoryTransport) FailDisconnect(err error) {
	t.mu.Lock()
	t.disconnectErr = err
	t.mu.Unlock()
}

// IsConnected reports whether the end is live.
func (t *MemoryTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Emit delivers the frame to the linked peer, or records it when the
// end is unlinked.
func (t *MemoryTransport) Emit(f Frame) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return ErrNotConnected
	}
	if t.emitErr != nil {
		err := t.emitErr
		t.mu.Unlock()
		return err
	}
	peer := t.peer
	if peer == nil {
		t.sent = append(t.sent, f)
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	return peer.deliver(frameResult{frame: &f})
}

// Sent returns a copy of the frames recorded by an unlinked end.
func (t *MemoryTransport) Sent() []Frame {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Frame, len(t.sent))
	copy(out, t.sent)
	return out
}

// Inject queues frames for NextFrame, as though the server sent them.
func (t *MemoryTransport) Inject(frames ...Frame) {
	for i := range frames {
		f := frames[i]
		t.deliver(frameResult{frame: &f})
	}
}

// InjectError queues a read error for NextFrame. The stream stays open.
func (t *MemoryTransport) InjectError(err error) {
	t.deliver(frameResult{err: err})
}

// EndStream ends the incoming stream. Buffered frames still drain;
// afterward NextFrame returns (nil, nil).
func (t *MemoryTransport) EndStream() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLocked()
}

func (t *MemoryTransport) endLocked() {
	if t.ended {
		return
	}
	t.ended = true
	close(t.done)
}

// NextFrame returns the next queued frame, draining anything buffered
// before reporting the end of the stream.
func (t *MemoryTransport) NextFrame() (*Frame, error) {
	select {
	case res := <-t.in:
		return res.frame, res.err
	case <-t.done:
		select {
		case res := <-t.in:
			return res.frame, res.err
		default:
			return nil, nil
		}
	}
}

// Disconnect marks the end closed and ends the streams of both ends of
// a linked pair.
func (t *MemoryTransport) Disconnect() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.connected = false
	t.endLocked()
	peer := t.peer
	err := t.disconnectErr
	t.mu.Unlock()

	if peer != nil {
		peer.EndStream()
	}
	return err
}

// deliver queues a result unless the stream already ended.
func (t *MemoryTransport) deliver(res frameResult) error {
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	select {
	case t.in <- res:
		return nil
	case <-t.done:
		return ErrClosed
	}
}
