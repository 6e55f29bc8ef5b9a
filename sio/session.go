package sio

import (
	"sync/atomic"

	"github.com/sockit/sockit/packet"
	"github.com/sockit/sockit/telemetry"
)

// NoAckID is the ack-correlation sentinel stored while no packet id has
// been observed on the session.
const NoAckID int64 = -1

// session is the connection state shared by every handle of one logical
// connection, including the background producer of an AsyncSocket. Both
// fields are single words so handles never need a lock to read them.
type session struct {
	connected atomic.Bool
	ackID     atomic.Int64
}

func newSession() *session {
	s := &session{}
	s.ackID.Store(NoAckID)
	return s
}

func (s *session) isConnected() bool { return s.connected.Load() }

func (s *session) lastAckID() int64 { return s.ackID.Load() }

// setConnected flips the connected flag, keeping the open-session gauge
// in step. The swap makes repeated transitions to the same state free.
func (s *session) setConnected(open bool) {
	if !s.connected.CompareAndSwap(!open, open) {
		return
	}
	if open {
		telemetry.SessionOpened()
	} else {
		telemetry.SessionClosed()
	}
}

// reset returns the session to its initial state. Called on disconnect.
func (s *session) reset() {
	s.setConnected(false)
	s.ackID.Store(NoAckID)
}

// observe applies a translated packet's side effects: the ack id tracks
// the most recent packet regardless of its type, and CONNECT,
// CONNECT_ERROR, and DISCONNECT packets drive the connected flag.
func (s *session) observe(p *packet.Packet) {
	id := NoAckID
	if p.ID != nil {
		id = int64(*p.ID)
	}
	if s.ackID.Load() != id {
		s.ackID.Store(id)
	}

	switch p.Type {
	case packet.Connect:
		s.setConnected(true)
	case packet.ConnectError, packet.Disconnect:
		s.setConnected(false)
	}
}
