package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolError is the interface for all structured errors produced by the
// protocol engine. It extends the standard error interface with the context
// callers need to decide whether a session survived a failure.
type ProtocolError interface {
	error

	// Code returns the specific error code identifying the failure type.
	Code() ErrorCode

	// Category returns the error category for recovery decisions.
	Category() ErrorCategory

	// Recoverable returns true if the session remains usable and the
	// operation may be retried after corrective action.
	Recoverable() bool

	// Metadata returns additional context as key-value pairs.
	Metadata() map[string]string

	// Unwrap returns the underlying error, if any.
	Unwrap() error
}

// Error is the concrete implementation of ProtocolError.
type Error struct {
	code        ErrorCode
	category    ErrorCategory
	message     string
	cause       error
	metadata    map[string]string
	recoverable *bool // nil means use default based on category
	timestamp   time.Time
	namespace   string // protocol namespace, if applicable
	frameKind   string // offending transport frame kind, if applicable
}

// Ensure Error implements ProtocolError and json.Marshaler/Unmarshaler.
var (
	_ ProtocolError    = (*Error)(nil)
	_ json.Marshaler   = (*Error)(nil)
	_ json.Unmarshaler = (*Error)(nil)
)

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Recoverable returns whether the session remains usable after this error.
func (e *Error) Recoverable() bool {
	if e.recoverable != nil {
		return *e.recoverable
	}
	return e.category.IsRecoverable()
}

// Metadata returns the error metadata.
func (e *Error) Metadata() map[string]string {
	if e.metadata == nil {
		return make(map[string]string)
	}
	// Return a copy to prevent modification
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Namespace returns the protocol namespace the error relates to, if set.
func (e *Error) Namespace() string {
	return e.namespace
}

// FrameKind returns the offending transport frame kind, if set. Populated
// by InvalidAttachmentType so reassembly failures name the frame that
// broke the attachment stream.
func (e *Error) FrameKind() string {
	return e.frameKind
}

// errorJSON is the JSON representation of an Error.
type errorJSON struct {
	Code        ErrorCode         `json:"code"`
	Category    ErrorCategory     `json:"category"`
	Message     string            `json:"message"`
	Cause       string            `json:"cause,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Recoverable bool              `json:"recoverable"`
	Timestamp   string            `json:"timestamp,omitempty"`
	Namespace   string            `json:"namespace,omitempty"`
	FrameKind   string            `json:"frame_kind,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	j := errorJSON{
		Code:        e.code,
		Category:    e.category,
		Message:     e.message,
		Metadata:    e.metadata,
		Recoverable: e.Recoverable(),
		Namespace:   e.namespace,
		FrameKind:   e.frameKind,
	}
	if e.cause != nil {
		j.Cause = e.cause.Error()
	}
	if !e.timestamp.IsZero() {
		j.Timestamp = e.timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Error) UnmarshalJSON(data []byte) error {
	var j errorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	e.code = j.Code
	e.category = j.Category
	e.message = j.Message
	e.metadata = j.Metadata
	e.namespace = j.Namespace
	e.frameKind = j.FrameKind
	r := j.Recoverable
	e.recoverable = &r
	if j.Cause != "" {
		e.cause = fmt.Errorf("%s", j.Cause)
	}
	if j.Timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, j.Timestamp); err == nil {
			e.timestamp = t
		}
	}
	return nil
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithRecoverable explicitly sets whether the session survives the error.
func WithRecoverable(recoverable bool) Option {
	return func(e *Error) {
		e.recoverable = &recoverable
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithMetadataMap adds multiple metadata key-value pairs.
func WithMetadataMap(m map[string]string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		for k, v := range m {
			e.metadata[k] = v
		}
	}
}

// WithNamespace sets the protocol namespace the error relates to.
func WithNamespace(nsp string) Option {
	return func(e *Error) {
		e.namespace = nsp
	}
}

// WithFrameKind sets the offending transport frame kind.
func WithFrameKind(kind string) Option {
	return func(e *Error) {
		e.frameKind = kind
	}
}

// WithTimestamp sets a custom timestamp.
func WithTimestamp(t time.Time) Option {
	return func(e *Error) {
		e.timestamp = t
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// FromCode creates an error with the default description for the code.
func FromCode(code ErrorCode, opts ...Option) *Error {
	return New(code, code.Description(), opts...)
}

// IllegalActionBeforeOpen reports a send-side operation attempted while the
// transport is not live or the protocol session is not connected.
func IllegalActionBeforeOpen(opts ...Option) *Error {
	return New(ErrCodeIllegalAction, "action attempted before the session was opened", opts...)
}

// InvalidAttachmentType reports an attachment-reassembly frame with an
// unexpected kind. The offending kind is carried on the error.
func InvalidAttachmentType(kind string, opts ...Option) *Error {
	opts = append([]Option{WithFrameKind(kind)}, opts...)
	return New(ErrCodeInvalidAttachmentType,
		fmt.Sprintf("unexpected %s frame in attachment stream", kind), opts...)
}

// IncompletePacket reports a transport stream that ended mid-reassembly.
func IncompletePacket(opts ...Option) *Error {
	return New(ErrCodeIncompletePacket, "stream ended before all attachments arrived", opts...)
}

// InvalidPacket creates a packet decode error.
func InvalidPacket(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidPacket, message, opts...)
}

// InvalidPayload creates a payload encoding error.
func InvalidPayload(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidPayload, message, opts...)
}

// TransportClosed creates a closed-transport error.
func TransportClosed(message string, opts ...Option) *Error {
	return New(ErrCodeTransportClosed, message, opts...)
}

// Timeout creates a timeout error.
func Timeout(message string, opts ...Option) *Error {
	return New(ErrCodeTimeout, message, opts...)
}

// Internal creates an internal error.
func Internal(message string, opts ...Option) *Error {
	return New(ErrCodeInternal, message, opts...)
}
