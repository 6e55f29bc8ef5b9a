package errors

// ErrorCategory classifies errors by where they originate and whether the
// session survives them.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategorySession indicates illegal use of the local API.
	// Examples: sending a packet before connecting.
	CategorySession ErrorCategory = "session"

	// CategoryProtocol indicates malformed or unexpected wire data.
	// The session remains usable; only the offending packet is lost.
	CategoryProtocol ErrorCategory = "protocol"

	// CategoryTransport indicates connection-level failures. The
	// underlying frame stream is gone or unreliable.
	CategoryTransport ErrorCategory = "transport"

	// CategoryInternal indicates unexpected errors or bugs.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRecoverable returns true if the session remains usable after errors
// in this category and the caller may retry after corrective action.
func (c ErrorCategory) IsRecoverable() bool {
	switch c {
	case CategorySession, CategoryProtocol:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific failure types within categories.
type ErrorCode string

// Error codes for protocol engine failures.
const (
	// Session errors
	ErrCodeIllegalAction ErrorCode = "ILLEGAL_ACTION_BEFORE_OPEN" // Send before the session opened

	// Protocol errors
	ErrCodeInvalidPacket         ErrorCode = "INVALID_PACKET"          // Frame payload did not decode
	ErrCodeInvalidPayload        ErrorCode = "INVALID_PAYLOAD"         // Payload not validly encodable
	ErrCodeInvalidAttachmentType ErrorCode = "INVALID_ATTACHMENT_TYPE" // Non-message frame mid-reassembly

	// Transport errors
	ErrCodeIncompletePacket ErrorCode = "INCOMPLETE_PACKET" // Stream ended mid-reassembly
	ErrCodeTransportClosed  ErrorCode = "TRANSPORT_CLOSED"  // Transport already closed
	ErrCodeNetworkErr       ErrorCode = "NETWORK_ERR"       // Network connectivity issue
	ErrCodeTimeout          ErrorCode = "TIMEOUT"           // Operation timed out
	ErrCodeCanceled         ErrorCode = "CANCELED"          // Operation was canceled

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
	ErrCodePanic    ErrorCode = "PANIC"    // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeIllegalAction:
		return CategorySession

	case ErrCodeInvalidPacket, ErrCodeInvalidPayload, ErrCodeInvalidAttachmentType:
		return CategoryProtocol

	case ErrCodeIncompletePacket, ErrCodeTransportClosed, ErrCodeNetworkErr,
		ErrCodeTimeout, ErrCodeCanceled:
		return CategoryTransport

	case ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRecoverable returns whether this error code typically leaves the
// session usable.
func (c ErrorCode) DefaultRecoverable() bool {
	return c.DefaultCategory().IsRecoverable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeIllegalAction:         "action attempted before the session was opened",
	ErrCodeInvalidPacket:         "frame payload is not a valid packet",
	ErrCodeInvalidPayload:        "payload is not validly encodable",
	ErrCodeInvalidAttachmentType: "unexpected frame kind in attachment stream",
	ErrCodeIncompletePacket:      "stream ended before all attachments arrived",
	ErrCodeTransportClosed:       "transport is closed",
	ErrCodeNetworkErr:            "network connectivity error",
	ErrCodeTimeout:               "operation timed out",
	ErrCodeCanceled:              "operation canceled",
	ErrCodeInternal:              "internal error",
	ErrCodePanic:                 "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
