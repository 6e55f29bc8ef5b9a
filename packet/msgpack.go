package packet

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack"

	"github.com/sockit/sockit/errors"
)

// msgpackEnvelope is the single-frame packet layout used on binary
// channels: the whole packet, attachments included, travels in one frame.
type msgpackEnvelope struct {
	Type        int      `msgpack:"type"`
	Namespace   string   `msgpack:"nsp"`
	ID          *int     `msgpack:"id"`
	Data        []byte   `msgpack:"data"`
	Attachments [][]byte `msgpack:"attachments"`
}

// MsgpackCodec encodes packets as msgpack envelopes. Attachments ride
// inline, so decoded packets arrive complete and no attachment frames
// follow the header.
type MsgpackCodec struct{}

var _ Codec = MsgpackCodec{}

// Binary marks the codec's payloads as binary envelopes. Transports
// carry them as native binary messages, and senders ship no separate
// attachment frames since the envelope already holds the attachments.
func (MsgpackCodec) Binary() bool { return true }

// Encode renders p into a msgpack envelope.
func (MsgpackCodec) Encode(p *Packet) []byte {
	env := msgpackEnvelope{
		Type:        int(p.Type),
		Namespace:   normalizeNamespace(p.Namespace),
		ID:          p.ID,
		Data:        p.Data,
		Attachments: p.Attachments,
	}
	buf, _ := msgpack.Marshal(&env)
	return buf
}

// Decode parses a msgpack envelope into a Packet.
func (MsgpackCodec) Decode(data []byte) (*Packet, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "frame payload is not a msgpack packet")
	}
	if env.Type < 0 || env.Type > int(BinaryAck) {
		return nil, errors.InvalidPacket(fmt.Sprintf("unknown packet type %d", env.Type))
	}

	p := &Packet{
		Type:            Type(env.Type),
		Namespace:       normalizeNamespace(env.Namespace),
		ID:              env.ID,
		AttachmentCount: len(env.Attachments),
		Attachments:     env.Attachments,
	}
	if len(env.Data) > 0 {
		if !json.Valid(env.Data) {
			return nil, errors.InvalidPacket("payload is not valid JSON",
				errors.WithNamespace(p.Namespace))
		}
		p.Data = env.Data
	}
	return p, nil
}
