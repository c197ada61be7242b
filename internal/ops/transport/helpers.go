package transport

import (
	"encoding/json"
	"net/http"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope.Envelope) {
	writeJSON(w, status, env)
}

// decodeRequest reads and validates a request envelope from the body of an
// incoming HTTP call.
func decodeRequest(r *http.Request) (envelope.Envelope, *envelope.OpError) {
	var env envelope.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		return envelope.Envelope{}, envelope.NewOpError(envelope.ErrRequestError, "malformed request body: "+err.Error())
	}
	if env.Type != envelope.TypeRequest {
		return envelope.Envelope{}, envelope.NewOpError(envelope.ErrRequestError, "envelope type must be \"request\"")
	}
	if env.Operation == "" {
		return envelope.Envelope{}, envelope.NewOpError(envelope.ErrMissingParameter, "missing operation")
	}
	return env, nil
}

// opErrorCode extracts the error code from err if it's an *envelope.OpError,
// defaulting to IO_ERROR for anything else (a bug surfacing as a plain error
// rather than a classified one).
func opErrorCode(err error) (code, message string, details any) {
	if opErr, ok := err.(*envelope.OpError); ok {
		return opErr.Code, opErr.Message, opErr.Details
	}
	return envelope.ErrIOError, err.Error(), nil
}

func responseEnvelope(requestID, status string, result any) envelope.Envelope {
	return envelope.NewResponse(requestID, status, result, status != "streaming")
}

func errorEnvelope(requestID string, opErr *envelope.OpError) envelope.Envelope {
	return envelope.NewError(requestID, opErr.Code, opErr.Message, opErr.Details)
}

func opErrFrom(code, message string, details any) *envelope.OpError {
	return &envelope.OpError{Code: code, Message: message, Details: details}
}

func httpStatusFor(code string) int {
	switch code {
	case envelope.ErrPathNotFound:
		return http.StatusNotFound
	case envelope.ErrMissingParameter, envelope.ErrInvalidParameter, envelope.ErrInvalidPattern,
		envelope.ErrNotADirectory, envelope.ErrNotAFile, envelope.ErrUnknownOperation, envelope.ErrRequestError:
		return http.StatusBadRequest
	case envelope.ErrFileExists:
		return http.StatusConflict
	case envelope.ErrForbiddenCommand:
		return http.StatusForbidden
	case envelope.ErrCommandTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
