// Package errors provides a structured error taxonomy for the sockit
// protocol engine. It defines the error codes and categories surfaced by
// packet decoding, attachment reassembly, and the socket send/receive
// paths, so callers can make recovery decisions without string matching.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Session: Illegal use of the local API (sending before the session is open)
//   - Protocol: Malformed or unexpected wire data; the session remains usable
//   - Transport: Connection-level failures; the underlying stream is gone
//   - Internal: Unexpected errors indicating bugs
//
// # Error Codes
//
// Each error carries a code identifying the failure:
//
//   - ILLEGAL_ACTION_BEFORE_OPEN: Send attempted before the session opened
//   - INVALID_PACKET: A frame payload did not decode to a packet
//   - INVALID_ATTACHMENT_TYPE: A non-message frame arrived mid-reassembly
//   - INCOMPLETE_PACKET: The stream ended before all attachments arrived
//   - And more...
//
// # Usage
//
// Create a new error:
//
//	err := errors.IllegalActionBeforeOpen()
//
// Wrap a transport error with context:
//
//	wrapped := errors.Wrap(err, "reading frame")
//
// Check whether the session survived the failure:
//
//	if protoErr := errors.AsProtocolError(err); protoErr != nil && protoErr.Recoverable() {
//	    // reconnect or resend
//	}
//
// # JSON Serialization
//
// Errors marshal to JSON so they can travel inside ConnectError payloads
// or structured logs:
//
//	data, err := json.Marshal(protoErr)
package errors
