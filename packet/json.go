package packet

import (
	"encoding/json"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	"github.com/sockit/sockit/errors"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONCodec implements the default text encoding:
//
//	<type digit><attachment count "-"><"/namespace,"><id><json data>
//
// where the attachment count appears only on binary types, the namespace
// only when it is not the root namespace, and the id and data only when
// present.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// Encode renders p into its frame payload.
func (JSONCodec) Encode(p *Packet) []byte {
	buf := make([]byte, 0, 16+len(p.Namespace)+len(p.Data))
	buf = append(buf, byte('0'+p.Type))
	if p.Type.IsBinary() {
		buf = strconv.AppendInt(buf, int64(p.AttachmentCount), 10)
		buf = append(buf, '-')
	}
	if p.Namespace != "/" && p.Namespace != "" {
		buf = append(buf, p.Namespace...)
		buf = append(buf, ',')
	}
	if p.ID != nil {
		buf = strconv.AppendInt(buf, int64(*p.ID), 10)
	}
	if len(p.Data) > 0 {
		buf = append(buf, p.Data...)
	}
	return buf
}

// Decode parses a frame payload into a Packet. The returned packet's
// attachments are not populated; for binary types AttachmentCount reports
// how many attachment frames follow.
func (JSONCodec) Decode(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, errors.InvalidPacket("empty frame payload")
	}
	if data[0] < '0' || data[0] > '6' {
		return nil, errors.InvalidPacket(fmt.Sprintf("unknown packet type %q", data[0]))
	}

	p := &Packet{Type: Type(data[0] - '0'), Namespace: "/"}
	i := 1

	if p.Type.IsBinary() {
		j := i
		for j < len(data) && data[j] >= '0' && data[j] <= '9' {
			j++
		}
		if j == i || j == len(data) || data[j] != '-' {
			return nil, errors.InvalidPacket("binary packet is missing its attachment count")
		}
		n, err := strconv.Atoi(string(data[i:j]))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "invalid attachment count")
		}
		p.AttachmentCount = n
		i = j + 1
	}

	if i < len(data) && data[i] == '/' {
		j := i
		for j < len(data) && data[j] != ',' {
			j++
		}
		if j == len(data) {
			return nil, errors.InvalidPacket("unterminated namespace")
		}
		p.Namespace = string(data[i:j])
		i = j + 1
	}

	j := i
	for j < len(data) && data[j] >= '0' && data[j] <= '9' {
		j++
	}
	if j > i {
		n, err := strconv.Atoi(string(data[i:j]))
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "invalid packet id",
				errors.WithNamespace(p.Namespace))
		}
		p.ID = &n
		i = j
	}

	if i < len(data) {
		payload := data[i:]
		// json.Valid rather than jsoniter: it rejects trailing bytes
		// after the first value, which the frame grammar requires.
		if !json.Valid(payload) {
			return nil, errors.InvalidPacket("payload is not valid JSON",
				errors.WithNamespace(p.Namespace))
		}
		p.Data = append(p.Data, payload...)
	}

	return p, nil
}

// NewEvent builds an Event packet from an event name and payload. A
// []interface{} payload is spread into multiple arguments; a nil payload
// sends the bare event name. []byte values anywhere in the payload are
// hoisted into attachments, replaced by placeholder markers, and upgrade
// the packet to BinaryEvent.
func NewEvent(namespace, event string, payload interface{}, id *int) (*Packet, error) {
	args := []interface{}{event}
	args = append(args, spread(payload)...)

	p := &Packet{Type: Event, Namespace: normalizeNamespace(namespace), ID: id}
	var attachments [][]byte
	for k := 1; k < len(args); k++ {
		args[k] = deconstruct(args[k], &attachments)
	}

	data, err := jsonit.Marshal(args)
	if err != nil {
		return nil, errors.InvalidPayload("payload is not encodable",
			errors.WithCause(err), errors.WithNamespace(p.Namespace))
	}
	p.Data = data

	if len(attachments) > 0 {
		p.Type = BinaryEvent
		p.AttachmentCount = len(attachments)
		p.Attachments = attachments
	}
	return p, nil
}

// NewAck builds an Ack packet answering the packet that carried id. The
// payload is spread like NewEvent but without an event name. []byte values
// upgrade the packet to BinaryAck.
func NewAck(namespace string, payload interface{}, id int) (*Packet, error) {
	args := spread(payload)
	if args == nil {
		args = []interface{}{}
	}

	p := &Packet{Type: Ack, Namespace: normalizeNamespace(namespace), ID: &id}
	var attachments [][]byte
	for k := range args {
		args[k] = deconstruct(args[k], &attachments)
	}

	data, err := jsonit.Marshal(args)
	if err != nil {
		return nil, errors.InvalidPayload("payload is not encodable",
			errors.WithCause(err), errors.WithNamespace(p.Namespace))
	}
	p.Data = data

	if len(attachments) > 0 {
		p.Type = BinaryAck
		p.AttachmentCount = len(attachments)
		p.Attachments = attachments
	}
	return p, nil
}

func spread(payload interface{}) []interface{} {
	switch v := payload.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	default:
		return []interface{}{payload}
	}
}

// deconstruct replaces []byte values with placeholder markers, appending
// the bytes to attachments in placeholder order.
func deconstruct(v interface{}, attachments *[][]byte) interface{} {
	switch val := v.(type) {
	case []byte:
		num := len(*attachments)
		*attachments = append(*attachments, val)
		return map[string]interface{}{"_placeholder": true, "num": num}
	case [][]byte:
		out := make([]interface{}, len(val))
		for i, b := range val {
			out[i] = deconstruct(b, attachments)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deconstruct(item, attachments)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = deconstruct(item, attachments)
		}
		return out
	default:
		return v
	}
}

// Resolve parses the payload and substitutes placeholder markers with the
// reassembled attachment bytes, returning the payload as a generic value
// tree. It is the decode-side inverse of the hoisting NewEvent performs.
func (p *Packet) Resolve() (interface{}, error) {
	if len(p.Data) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := jsonit.Unmarshal(p.Data, &v); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInvalidPacket, "payload is not valid JSON",
			errors.WithNamespace(p.Namespace))
	}
	return p.resolve(v)
}

func (p *Packet) resolve(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		if ph, ok := val["_placeholder"].(bool); ok && ph {
			num, ok := val["num"].(float64)
			if !ok || int(num) < 0 || int(num) >= len(p.Attachments) {
				return nil, errors.InvalidPacket(
					fmt.Sprintf("placeholder references attachment %v of %d", val["num"], len(p.Attachments)),
					errors.WithNamespace(p.Namespace))
			}
			return p.Attachments[int(num)], nil
		}
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			resolved, err := p.resolve(item)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := p.resolve(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}
