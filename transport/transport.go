package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// Common errors.
var (
	ErrClosed           = errors.New("transport closed")
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrHandshake        = errors.New("handshake failed")
)

// FrameKind identifies an engine.io frame.
type FrameKind byte

// Engine.io frame kinds. The first seven map to the wire digits '0'
// through '6'; MessageBinary is a message frame whose payload travels as
// raw bytes instead of text.
const (
	Open FrameKind = iota
	Close
	Ping
	Pong
	Message
	Upgrade
	Noop
	MessageBinary
)

// String returns a human-readable name for the frame kind.
func (k FrameKind) String() string {
	switch k {
	case Open:
		return "OPEN"
	case Close:
		return "CLOSE"
	case Ping:
		return "PING"
	case Pong:
		return "PONG"
	case Message:
		return "MESSAGE"
	case Upgrade:
		return "UPGRADE"
	case Noop:
		return "NOOP"
	case MessageBinary:
		return "MESSAGE_BINARY"
	default:
		return "UNKNOWN"
	}
}

// Frame is a single engine.io frame. Data holds the payload without the
// kind digit.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// MessageFrame wraps payload bytes in a text message frame.
func MessageFrame(data []byte) Frame {
	return Frame{Kind: Message, Data: data}
}

// BinaryFrame wraps payload bytes in a binary message frame.
func BinaryFrame(data []byte) Frame {
	return Frame{Kind: MessageBinary, Data: data}
}

// EncodeText renders a frame for a text-only channel. Binary message
// frames become "b" followed by the base64 payload; every other kind is
// its digit followed by the payload verbatim.
func EncodeText(f Frame) []byte {
	if f.Kind == MessageBinary {
		out := make([]byte, 1+base64.StdEncoding.EncodedLen(len(f.Data)))
		out[0] = 'b'
		base64.StdEncoding.Encode(out[1:], f.Data)
		return out
	}
	out := make([]byte, 0, 1+len(f.Data))
	out = append(out, byte('0'+f.Kind))
	return append(out, f.Data...)
}

// DecodeText parses a frame from a text-only channel. The payload is
// copied, so the input buffer may be reused.
func DecodeText(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if data[0] == 'b' {
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(data)-1))
		n, err := base64.StdEncoding.Decode(decoded, data[1:])
		if err != nil {
			return Frame{}, fmt.Errorf("%w: bad base64 payload", ErrInvalidFrame)
		}
		return Frame{Kind: MessageBinary, Data: decoded[:n]}, nil
	}
	if data[0] < '0' || data[0] > '6' {
		return Frame{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidFrame, data[0])
	}
	payload := make([]byte, len(data)-1)
	copy(payload, data[1:])
	return Frame{Kind: FrameKind(data[0] - '0'), Data: payload}, nil
}

// Handshake is the session description a server sends in its OPEN frame.
type Handshake struct {
	Sid          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// ParseHandshake decodes the payload of an OPEN frame.
func ParseHandshake(f *Frame) (*Handshake, error) {
	if f == nil || f.Kind != Open {
		return nil, fmt.Errorf("%w: expected OPEN frame", ErrHandshake)
	}
	var hs Handshake
	if err := jsonit.Unmarshal(f.Data, &hs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	if hs.Sid == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrHandshake)
	}
	return &hs, nil
}

// Transport moves engine.io frames between a client and a server.
//
// Transports are single-session: Connect may succeed at most once, and
// after Disconnect the instance cannot be reused.
type Transport interface {
	// Connect establishes the session and performs the open handshake.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Safe to call more than once;
	// later calls return nil.
	Disconnect() error

	// IsConnected reports whether the session is live.
	IsConnected() bool

	// Emit writes one frame to the server.
	// Returns ErrNotConnected before Connect or after Disconnect.
	Emit(f Frame) error

	// NextFrame blocks until a frame arrives. Read errors are returned
	// as they occur; the stream may still yield frames afterward. Once
	// the stream is exhausted NextFrame returns (nil, nil) and keeps
	// doing so on repeated calls.
	NextFrame() (*Frame, error)
}

// Config holds common transport configuration.
type Config struct {
	// RecvBufferSize is the capacity of the incoming frame buffer.
	// Default: 100
	RecvBufferSize int

	// ConnectTimeout bounds the open handshake.
	ConnectTimeout time.Duration

	// WriteTimeout bounds a single Emit.
	WriteTimeout time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RecvBufferSize: 100,
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// frameResult carries one received frame or a read error through the
// incoming buffer.
type frameResult struct {
	frame *Frame
	err   error
}
