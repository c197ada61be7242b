package transport

import "net/http"

// handleUnary implements POST /api/mcp/request: a single request envelope
// in, a single response (or error) envelope out.
//
// Intentional wire-compatibility quirk: when the request's stream field is
// true, this endpoint does not run the operation at all — it returns a
// single "streaming" stub response and nothing further. Callers that want
// an operation's output must use /stream, /sse-stream, or the WebSocket
// transport instead. This is intentional, not a bug to be fixed.
func (s *Server) handleUnary(w http.ResponseWriter, r *http.Request) {
	req, opErr := decodeRequest(r)
	if opErr != nil {
		writeEnvelope(w, httpStatusFor(opErr.Code), errorEnvelope("", opErr))
		return
	}

	if req.Stream {
		complete := false
		stub := responseEnvelope(req.ID, "streaming", nil)
		stub.StreamComplete = &complete
		writeEnvelope(w, http.StatusOK, stub)
		return
	}

	result, err := s.svc.Dispatch(r.Context(), req.Operation, req.Params)
	if err != nil {
		code, message, details := opErrorCode(err)
		writeEnvelope(w, httpStatusFor(code), errorEnvelope(req.ID, opErrFrom(code, message, details)))
		return
	}

	writeEnvelope(w, http.StatusOK, responseEnvelope(req.ID, "success", result))
}
