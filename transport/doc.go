// Package transport provides pluggable engine.io frame transports.
//
// # Overview
//
// The transport package moves raw engine.io frames between a client and a
// server while keeping the framing identical across backends. All transports
// implement the Transport interface: a context-aware Connect that performs
// the open handshake, a synchronous Emit for outgoing frames, and a blocking
// NextFrame that drains the incoming stream one frame at a time.
//
// # Available Transports
//
//   - WebSocketTransport: bidirectional frames over a WebSocket connection
//   - PollingTransport: HTTP long-polling with batched frame payloads
//   - NATSTransport: frames bridged over NATS subjects
//   - MemoryTransport: in-process channels (for tests and examples)
//
// # Usage
//
// All transports follow the same pattern:
//
//	cfg := transport.DefaultWebSocketConfig()
//	cfg.URL = "ws://localhost:3000/socket.io/"
//
//	t, err := transport.NewWebSocketTransport(cfg)
//	if err != nil {
//	    // handle error
//	}
//	if err := t.Connect(ctx); err != nil {
//	    // handle error
//	}
//
//	for {
//	    f, err := t.NextFrame()
//	    if err != nil {
//	        // handle error, stream continues
//	    }
//	    if f == nil {
//	        break // stream exhausted
//	    }
//	    // handle frame
//	}
//
// # Design Decisions
//
//   - Synchronous Emit: write errors surface at the call site
//   - Single-session transports: reconnection is handled by callers
//   - Pull-based reads: NextFrame pairs with both blocking and
//     channel-driven consumers
//
// # Thread Safety
//
// All transport methods are safe for concurrent use. NextFrame returns
// (nil, nil) once the frame stream is exhausted and keeps doing so on
// repeated calls.
package transport
