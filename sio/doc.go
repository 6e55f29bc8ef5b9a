// Package sio implements the client side of the socket.io protocol on
// top of a transport session: packet encoding, attachment reassembly,
// ack correlation, and connection-state tracking.
//
// # Overview
//
// A Socket pairs a transport.Transport with a packet.Codec and exposes
// the protocol operations: Connect, Disconnect, Send, Ack, and Poll.
// Incoming transport frames are translated into protocol packets; the
// translation also maintains the session state every handle shares,
// namely the connected flag and the id of the most recently observed
// packet (used by Ack).
//
// # Available Variants
//
//   - Socket: synchronous. The caller drives reception by calling Poll,
//     which blocks until the next protocol packet arrives.
//   - AsyncSocket: a background producer pulls frames as they arrive
//     and publishes translated packets on the channel returned by
//     Packets. Adds Emit for building and sending event packets in one
//     call.
//
// # Usage
//
//	sock := sio.New(tr)
//	if err := sock.Connect(ctx); err != nil {
//		return err
//	}
//	defer sock.Disconnect()
//
//	for {
//		p, err := sock.Poll()
//		if err != nil {
//			log.Printf("poll: %v", err)
//			continue
//		}
//		if p == nil {
//			break // stream exhausted
//		}
//		handle(p)
//	}
//
// # Design Decisions
//
//   - Connect marks the session connected as soon as the transport
//     session is up, before any CONNECT packet is observed. A later
//     CONNECT_ERROR packet corrects the flag.
//   - Translation failures are per-packet: Poll returns the error and
//     the next call resumes with the following frame. The AsyncSocket
//     delivers errors as items in the packet sequence for the same
//     reason.
//   - The AsyncSocket's producer is created at construction and its
//     sequence is shared and destructive: each item is delivered to
//     exactly one receive, and the sequence cannot be restarted.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Poll and the Packets
// channel are single-consumer: concurrent callers race for items, each
// item is delivered once.
package sio
