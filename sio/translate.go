package sio

import (
	"github.com/sockit/sockit/errors"
	"github.com/sockit/sockit/packet"
	"github.com/sockit/sockit/transport"
)

// pullFunc returns the next frame of a transport stream. It follows the
// transport.Transport contract: (nil, nil) means the stream is
// exhausted.
type pullFunc func() (*transport.Frame, error)

// translate turns one pulled frame into a protocol packet. Frames that
// are not message frames carry no packet and translate to (nil, nil).
// A message frame is decoded with codec; when the decoded header
// declares attachments, the missing ones are pulled from the same
// stream before the packet is complete. The finished packet's side
// effects are applied to st before it is returned.
func translate(f *transport.Frame, pull pullFunc, codec packet.Codec, st *session) (*packet.Packet, error) {
	switch f.Kind {
	case transport.Message, transport.MessageBinary:
	default:
		return nil, nil
	}

	p, err := codec.Decode(f.Data)
	if err != nil {
		return nil, err
	}

	if remaining := p.AttachmentCount - len(p.Attachments); remaining > 0 {
		if err := reassemble(p, remaining, pull); err != nil {
			return nil, err
		}
	}

	st.observe(p)
	return p, nil
}

// reassemble pulls exactly remaining frames and appends their payloads
// as attachments. Any frame of another kind aborts the packet, as does
// the stream ending short.
func reassemble(p *packet.Packet, remaining int, pull pullFunc) error {
	for remaining > 0 {
		f, err := pull()
		if err != nil {
			return err
		}
		if f == nil {
			return errors.IncompletePacket(errors.WithNamespace(p.Namespace))
		}

		switch f.Kind {
		case transport.Message, transport.MessageBinary:
			p.Attachments = append(p.Attachments, f.Data)
			remaining--
		default:
			return errors.InvalidAttachmentType(f.Kind.String(),
				errors.WithNamespace(p.Namespace))
		}
	}
	return nil
}
