package packet

import (
	"encoding/json"

	"github.com/buger/jsonparser"

	"github.com/sockit/sockit/errors"
)

// Type identifies the protocol-level meaning of a packet.
type Type byte

// Packet types, in wire order.
const (
	Connect Type = iota
	Disconnect
	Event
	Ack
	ConnectError
	BinaryEvent
	BinaryAck
)

// String returns the conventional name of the packet type.
func (t Type) String() string {
	switch t {
	case Connect:
		return "CONNECT"
	case Disconnect:
		return "DISCONNECT"
	case Event:
		return "EVENT"
	case Ack:
		return "ACK"
	case ConnectError:
		return "CONNECT_ERROR"
	case BinaryEvent:
		return "BINARY_EVENT"
	case BinaryAck:
		return "BINARY_ACK"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is a defined packet type.
func (t Type) Valid() bool {
	return t <= BinaryAck
}

// IsBinary reports whether packets of this type carry attachments.
func (t Type) IsBinary() bool {
	return t == BinaryEvent || t == BinaryAck
}

// Packet is one protocol message unit.
//
// Attachments are populated only after reassembly completes; a packet is
// never exposed with a partially filled attachment list. Once complete,
// len(Attachments) == AttachmentCount.
type Packet struct {
	Type            Type
	Namespace       string // "/" is the root namespace
	ID              *int   // ack correlation id, nil when absent
	AttachmentCount int
	Attachments     [][]byte
	Data            json.RawMessage // raw JSON payload, nil when absent
}

// New returns an empty packet of the given type addressed to namespace.
// An empty namespace is normalized to the root namespace.
func New(t Type, namespace string) *Packet {
	return &Packet{Type: t, Namespace: normalizeNamespace(namespace)}
}

func normalizeNamespace(nsp string) string {
	if nsp == "" {
		return "/"
	}
	return nsp
}

// Event returns the event name: the first element of the payload array.
// Fails when the packet carries no array payload or the first element is
// not a string.
func (p *Packet) Event() (string, error) {
	if len(p.Data) == 0 {
		return "", errors.InvalidPacket("packet has no payload", errors.WithNamespace(p.Namespace))
	}
	name, err := jsonparser.GetString(p.Data, "[0]")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "payload has no event name",
			errors.WithNamespace(p.Namespace))
	}
	return name, nil
}

// Arguments returns the payload array elements after the event name, as
// raw JSON values. Ack packets have no event name; use ID plus Data
// directly for those.
func (p *Packet) Arguments() ([]json.RawMessage, error) {
	if len(p.Data) == 0 {
		return nil, nil
	}
	var args []json.RawMessage
	idx := 0
	_, err := jsonparser.ArrayEach(p.Data, func(value []byte, dataType jsonparser.ValueType, offset int, _ error) {
		if idx > 0 {
			switch dataType {
			case jsonparser.String:
				// ArrayEach strips the quotes from string values.
				raw := make(json.RawMessage, 0, len(value)+2)
				raw = append(raw, '"')
				raw = append(raw, value...)
				raw = append(raw, '"')
				args = append(args, raw)
			case jsonparser.Null:
				args = append(args, json.RawMessage("null"))
			default:
				args = append(args, json.RawMessage(append([]byte(nil), value...)))
			}
		}
		idx++
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "payload is not an array",
			errors.WithNamespace(p.Namespace))
	}
	return args, nil
}

// Codec converts packets to and from transport frame payloads.
//
// Decode must reject payloads that do not form a complete, well-typed
// packet header. Encode is infallible: a Packet constructed through this
// package always has a valid encoding.
type Codec interface {
	Encode(p *Packet) []byte
	Decode(data []byte) (*Packet, error)
}
