// Package envelope defines the wire protocol shared by every transport the
// operations service exposes, and consumed by the orchestrator's tool
// client. All messages are JSON-encoded and share a common envelope with a
// "type" field that determines which payload fields are populated.
package envelope

import (
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the envelope schema version advertised on every message.
const ProtocolVersion = "1.0"

// Envelope message types.
const (
	TypeRequest     = "request"
	TypeResponse    = "response"
	TypeStreamChunk = "stream_chunk"
	TypeError       = "error"
)

// Response / stream status values.
const (
	StatusSuccess   = "success"
	StatusStreaming = "streaming"
	StatusError     = "error"
)

// Operation names recognized by the operations service.
const (
	OpListDirectory  = "list_directory"
	OpReadFile       = "read_file"
	OpCreateFile     = "create_file"
	OpEditFile       = "edit_file"
	OpAppendFile     = "append_file"
	OpGrep           = "grep"
	OpExecuteCommand = "execute_command"
)

// Error codes recognized by every transport.
const (
	ErrUnknownOperation = "UNKNOWN_OPERATION"
	ErrMissingParameter = "MISSING_PARAMETER"
	ErrInvalidParameter = "INVALID_PARAMETER"
	ErrPathNotFound     = "PATH_NOT_FOUND"
	ErrNotADirectory    = "NOT_A_DIRECTORY"
	ErrNotAFile         = "NOT_A_FILE"
	ErrFileExists       = "FILE_EXISTS"
	ErrIOError          = "IO_ERROR"
	ErrInvalidPattern   = "INVALID_PATTERN"
	ErrForbiddenCommand = "FORBIDDEN_COMMAND"
	ErrCommandTimeout   = "COMMAND_TIMEOUT"
	ErrRequestError     = "REQUEST_ERROR"
	ErrStreamError      = "STREAM_ERROR"
)

// Envelope is the top-level wire format for every message exchanged over any
// transport. Unknown fields are ignored on receipt (encoding/json already
// does this for us); receivers dispatch on Type before decoding Payload-ish
// fields, never on field presence.
type Envelope struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`

	// Present on response / stream_chunk / error envelopes. Absent only on
	// error envelopes produced from a request that failed to parse.
	RequestID string `json:"request_id,omitempty"`

	// Request fields.
	Operation string         `json:"operation,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Stream    bool           `json:"stream,omitempty"`

	// Response fields.
	Status         string `json:"status,omitempty"`
	Result         any    `json:"result,omitempty"`
	StreamComplete *bool  `json:"stream_complete,omitempty"`

	// Stream chunk fields.
	Sequence int  `json:"sequence,omitempty"`
	Data     any  `json:"data,omitempty"`
	IsFinal  bool `json:"is_final,omitempty"`

	// Error fields.
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Details      any    `json:"details,omitempty"`
}

// NewID returns a fresh opaque message/request identifier.
func NewID() string {
	return uuid.NewString()
}

// NewRequest builds a request envelope with a freshly minted ID.
func NewRequest(operation string, params map[string]any, stream bool) Envelope {
	return Envelope{
		Type:      TypeRequest,
		ID:        NewID(),
		Timestamp: time.Now(),
		Version:   ProtocolVersion,
		Operation: operation,
		Params:    params,
		Stream:    stream,
	}
}

// NewResponse builds a success/streaming response envelope correlated to requestID.
func NewResponse(requestID, status string, result any, streamComplete bool) Envelope {
	complete := streamComplete
	return Envelope{
		Type:           TypeResponse,
		ID:             NewID(),
		Timestamp:      time.Now(),
		Version:        ProtocolVersion,
		RequestID:      requestID,
		Status:         status,
		Result:         result,
		StreamComplete: &complete,
	}
}

// NewStreamChunk builds a stream_chunk envelope. sequence is 1-based.
func NewStreamChunk(requestID string, sequence int, data any, isFinal bool) Envelope {
	return Envelope{
		Type:      TypeStreamChunk,
		ID:        NewID(),
		Timestamp: time.Now(),
		Version:   ProtocolVersion,
		RequestID: requestID,
		Sequence:  sequence,
		Data:      data,
		IsFinal:   isFinal,
	}
}

// NewError builds an error envelope. requestID may be empty if the
// originating request failed to parse.
func NewError(requestID, code, message string, details any) Envelope {
	return Envelope{
		Type:         TypeError,
		ID:           NewID(),
		Timestamp:    time.Now(),
		Version:      ProtocolVersion,
		RequestID:    requestID,
		ErrorCode:    code,
		ErrorMessage: message,
		Details:      details,
	}
}

// StreamDoneSentinel is the data payload carried by the terminal chunk of
// every stream, once the caller's own last content chunk has been sent.
type StreamDoneSentinel struct {
	Done bool `json:"done"`
}

// OpError is a typed error carrying one of the fixed error codes above.
// Engines and the service dispatch layer return *OpError so a transport can
// render an Error envelope without re-classifying a plain error string.
type OpError struct {
	Code    string
	Message string
	Details any
}

func (e *OpError) Error() string {
	return e.Message
}

// NewOpError constructs an *OpError.
func NewOpError(code, message string) *OpError {
	return &OpError{Code: code, Message: message}
}

// WithDetails attaches diagnostic details and returns the same error.
func (e *OpError) WithDetails(details any) *OpError {
	e.Details = details
	return e
}
