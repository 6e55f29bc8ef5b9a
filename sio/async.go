package sio

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sockit/sockit/errors"
	"github.com/sockit/sockit/packet"
	"github.com/sockit/sockit/telemetry"
	"github.com/sockit/sockit/transport"
)

// Result is one item of an AsyncSocket's packet sequence: a translated
// packet or the error that took its place.
type Result struct {
	Packet *packet.Packet
	Err    error
}

// AsyncSocket is the channel-driven protocol handle. A background
// producer, created at construction, pulls transport frames once
// Connect succeeds and publishes every translated packet on the
// Packets channel. The sequence is shared: all consumers drain the
// same channel, each item is delivered once, and the sequence cannot
// be restarted.
type AsyncSocket struct {
	transport transport.Transport
	codec     packet.Codec
	session   *session
	log       zerolog.Logger
	tracing   bool

	packets chan Result
	started chan struct{}
	stopped chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewAsync creates an AsyncSocket over t and starts its producer. The
// producer idles until Connect succeeds and exits when the transport
// stream ends, closing the Packets channel. A socket that never
// connects keeps its producer parked; call Disconnect to release it
// and close the sequence.
func NewAsync(t transport.Transport, opts ...Option) *AsyncSocket {
	o := buildOptions(opts)
	s := &AsyncSocket{
		transport: t,
		codec:     o.codec,
		session:   newSession(),
		log:       o.log,
		tracing:   o.tracing,
		packets:   make(chan Result),
		started:   make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go s.produce()
	return s
}

// Connect establishes the transport session, marks the session
// connected, and releases the producer.
func (s *AsyncSocket) Connect(ctx context.Context) error {
	if err := connect(ctx, s.transport, s.session, s.log, s.tracing); err != nil {
		return err
	}
	s.startOnce.Do(func() { close(s.started) })
	return nil
}

// Disconnect tears the transport session down if it is live and resets
// the session state unconditionally. The producer observes the stream
// end and closes the Packets channel.
func (s *AsyncSocket) Disconnect() error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return disconnect(s.transport, s.session, s.log)
}

// Send transmits a fully built packet under the same contract as
// Socket.Send.
func (s *AsyncSocket) Send(p *packet.Packet) error {
	return send(s.transport, s.codec, s.session, s.log, p)
}

// Emit builds an Event packet for namespace carrying event and payload
// and sends it. []byte values in the payload travel as binary
// attachments.
func (s *AsyncSocket) Emit(namespace, event string, payload interface{}) error {
	p, err := packet.NewEvent(namespace, event, payload, nil)
	if err != nil {
		return err
	}
	return s.Send(p)
}

// Ack answers the most recently observed packet with payload, under the
// same contract as Socket.Ack.
func (s *AsyncSocket) Ack(namespace string, payload interface{}) error {
	return ack(s.transport, s.codec, s.session, s.log, namespace, payload)
}

// Packets returns the produced packet sequence. The channel closes when
// the transport stream ends or the socket is disconnected. Translation
// failures arrive as items with Err set; production continues after
// them. Abandoning the socket without calling Disconnect leaks the
// producer goroutine.
func (s *AsyncSocket) Packets() <-chan Result {
	return s.packets
}

// Connected reports whether the session is considered open at the
// protocol level.
func (s *AsyncSocket) Connected() bool { return s.session.isConnected() }

// LastAckID returns the id of the most recently observed packet, or
// NoAckID when none carried one.
func (s *AsyncSocket) LastAckID() int64 { return s.session.lastAckID() }

func (s *AsyncSocket) produce() {
	defer close(s.packets)
	defer func() {
		if r := recover(); r != nil {
			err := errors.RecoverPanic(r)
			s.log.Error().Err(err).Msg("producer panic")
			select {
			case s.packets <- Result{Err: err}:
			case <-s.stopped:
			}
		}
	}()

	select {
	case <-s.started:
	case <-s.stopped:
		return
	}

	for {
		f, err := s.transport.NextFrame()
		if err != nil {
			if !s.publish(Result{Err: err}) {
				return
			}
			continue
		}
		if f == nil {
			return
		}

		p, err := translate(f, s.transport.NextFrame, s.codec, s.session)
		if err != nil {
			telemetry.RecordTranslateError(string(errors.Code(err)))
			s.log.Warn().Err(err).Msg("translate failed")
			if !s.publish(Result{Err: err}) {
				return
			}
			continue
		}
		if p == nil {
			continue
		}

		telemetry.RecordPacketReceived(p.Type.String())
		s.log.Debug().Str("type", p.Type.String()).Str("namespace", p.Namespace).Msg("packet received")
		if !s.publish(Result{Packet: p}) {
			return
		}
	}
}

// publish delivers one item, giving up when the socket is disconnected
// with the consumer gone.
func (s *AsyncSocket) publish(r Result) bool {
	select {
	case s.packets <- r:
		return true
	case <-s.stopped:
		return false
	}
}
