// Package packet defines the protocol packet model and the codecs that
// convert packets to and from transport frame payloads.
//
// # Overview
//
// A Packet is one protocol-level message: a type (Connect, Event, Ack, ...),
// a namespace, an optional acknowledgment id, a JSON payload, and, for the
// binary variants, a list of binary attachments delivered as separate
// transport frames after the header.
//
// # Available Codecs
//
//   - JSONCodec: the default text encoding
//     ("<type><count-><namespace,><id><json>"), binary values hoisted into
//     attachments and replaced by {"_placeholder":true,"num":N} markers.
//   - MsgpackCodec: a compact binary encoding carrying the whole packet,
//     attachments included, in a single frame.
//
// # Usage
//
// Build an event packet and encode it:
//
//	p, err := packet.NewEvent("/chat", "message", map[string]interface{}{
//	    "text": "hello",
//	}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	wire := packet.JSONCodec{}.Encode(p)
//
// Decode a frame payload:
//
//	p, err := packet.JSONCodec{}.Decode(wire)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	event, _ := p.Event()
package packet
