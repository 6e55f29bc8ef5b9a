package sio

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/sockit/sockit/errors"
	"github.com/sockit/sockit/logging"
	"github.com/sockit/sockit/packet"
	"github.com/sockit/sockit/telemetry"
	"github.com/sockit/sockit/transport"
)

// Option configures a Socket or AsyncSocket at construction.
type Option func(*options)

type options struct {
	codec   packet.Codec
	log     zerolog.Logger
	tracing bool
}

func buildOptions(opts []Option) options {
	o := options{
		codec: packet.JSONCodec{},
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCodec selects the packet codec. The default is packet.JSONCodec.
func WithCodec(c packet.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithLogger attaches a logger to the socket's lifecycle and packet
// events. The default logger is disabled.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithTracing wraps Connect in an OpenTelemetry span.
func WithTracing() Option {
	return func(o *options) { o.tracing = true }
}

// Socket is the synchronous protocol handle: the caller drives
// reception by calling Poll. Use AsyncSocket for channel-based
// reception.
type Socket struct {
	transport transport.Transport
	codec     packet.Codec
	session   *session
	log       zerolog.Logger
	tracing   bool
}

// New creates a Socket over t. The socket owns the protocol session but
// not the transport configuration; t must be ready to Connect.
func New(t transport.Transport, opts ...Option) *Socket {
	o := buildOptions(opts)
	return &Socket{
		transport: t,
		codec:     o.codec,
		session:   newSession(),
		log:       o.log,
		tracing:   o.tracing,
	}
}

// Connect establishes the transport session and marks the session
// connected. The flag is set before any CONNECT packet is observed; a
// CONNECT_ERROR packet from the server corrects it.
func (s *Socket) Connect(ctx context.Context) error {
	return connect(ctx, s.transport, s.session, s.log, s.tracing)
}

// Disconnect tears the transport session down if it is live and resets
// the session state unconditionally. It is safe to call more than once
// and before Connect.
func (s *Socket) Disconnect() error {
	return disconnect(s.transport, s.session, s.log)
}

// Send transmits a fully built packet: the encoded header as one
// message frame, then each attachment as one binary frame, in order.
// A codec whose envelope carries the attachments inline sends the
// header frame alone. It fails with ILLEGAL_ACTION_BEFORE_OPEN unless
// both the transport session and the protocol session are up.
func (s *Socket) Send(p *packet.Packet) error {
	return send(s.transport, s.codec, s.session, s.log, p)
}

// Ack answers the most recently observed packet with payload. The ack
// carries whatever id the session last saw, so it is only meaningful
// directly after polling an id-bearing packet.
func (s *Socket) Ack(namespace string, payload interface{}) error {
	return ack(s.transport, s.codec, s.session, s.log, namespace, payload)
}

// Poll blocks until the next protocol packet arrives and returns it.
// Frames that carry no packet are skipped. Once the transport stream is
// exhausted Poll returns (nil, nil). A translation failure is returned
// immediately; the next call resumes with the following frame.
func (s *Socket) Poll() (*packet.Packet, error) {
	for {
		f, err := s.transport.NextFrame()
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, nil
		}

		p, err := translate(f, s.transport.NextFrame, s.codec, s.session)
		if err != nil {
			telemetry.RecordTranslateError(string(errors.Code(err)))
			return nil, err
		}
		if p == nil {
			continue
		}

		telemetry.RecordPacketReceived(p.Type.String())
		s.log.Debug().Str("type", p.Type.String()).Str("namespace", p.Namespace).Msg("packet received")
		return p, nil
	}
}

// Connected reports whether the session is considered open at the
// protocol level.
func (s *Socket) Connected() bool { return s.session.isConnected() }

// LastAckID returns the id of the most recently observed packet, or
// NoAckID when none carried one.
func (s *Socket) LastAckID() int64 { return s.session.lastAckID() }

// connect, disconnect, send, and ack implement the operation contracts
// shared by both socket variants.

func connect(ctx context.Context, t transport.Transport, st *session, log zerolog.Logger, tracing bool) (err error) {
	if tracing {
		var span trace.Span
		ctx, span = telemetry.StartSpan(ctx, "socket.connect")
		defer func() {
			opts := telemetry.SessionSpanOptions{Transport: fmt.Sprintf("%T", t)}
			if ts, ok := t.(interface{ Session() *transport.Handshake }); ok {
				if hs := ts.Session(); hs != nil {
					opts.Sid = hs.Sid
				}
			}
			telemetry.EndSessionSpan(span, opts, err)
		}()
	}

	if err = t.Connect(ctx); err != nil {
		return err
	}
	st.setConnected(true)
	log.Debug().Msg("session connected")
	return nil
}

func disconnect(t transport.Transport, st *session, log zerolog.Logger) error {
	var err error
	if t.IsConnected() {
		err = t.Disconnect()
	}
	st.reset()
	log.Debug().Msg("session disconnected")
	return err
}

func send(t transport.Transport, codec packet.Codec, st *session, log zerolog.Logger, p *packet.Packet) error {
	if !t.IsConnected() || !st.isConnected() {
		return errors.IllegalActionBeforeOpen(errors.WithNamespace(p.Namespace))
	}

	payload := codec.Encode(p)
	header := transport.MessageFrame(payload)
	inline := false
	if bc, ok := codec.(interface{ Binary() bool }); ok && bc.Binary() {
		// A binary codec's envelope already carries the attachments.
		header = transport.BinaryFrame(payload)
		inline = true
	}
	if err := t.Emit(header); err != nil {
		return err
	}
	if !inline {
		for _, attachment := range p.Attachments {
			if err := t.Emit(transport.BinaryFrame(attachment)); err != nil {
				return err
			}
		}
	}

	telemetry.RecordPacketSent(p.Type.String())
	log.Debug().Str("type", p.Type.String()).Str("namespace", p.Namespace).Msg("packet sent")
	return nil
}

func ack(t transport.Transport, codec packet.Codec, st *session, log zerolog.Logger, namespace string, payload interface{}) error {
	p, err := packet.NewAck(namespace, payload, int(st.lastAckID()))
	if err != nil {
		return err
	}
	return send(t, codec, st, log, p)
}
