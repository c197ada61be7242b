package transport

import (
	"encoding/json"
	"net/http"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// handleNDJSONStream implements POST /api/mcp/stream: one JSON envelope per
// line, flushed as each chunk becomes available, terminated by exactly one
// is_final=true stream_chunk envelope.
func (s *Server) handleNDJSONStream(w http.ResponseWriter, r *http.Request) {
	req, opErr := decodeRequest(r)
	if opErr != nil {
		writeEnvelope(w, httpStatusFor(opErr.Code), errorEnvelope("", opErr))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	if !s.svc.Streamable(req.Operation) {
		result, err := s.svc.Dispatch(r.Context(), req.Operation, req.Params)
		if err != nil {
			code, message, details := opErrorCode(err)
			_ = enc.Encode(errorEnvelope(req.ID, opErrFrom(code, message, details)))
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		_ = enc.Encode(envelope.NewStreamChunk(req.ID, 1, result, false))
		_ = enc.Encode(terminalChunk(req.ID, 2))
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	chunks := make(chan any)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.svc.DispatchStream(r.Context(), req.Operation, req.Params, chunks)
	}()

	seq := 0
	for c := range chunks {
		seq++
		_ = enc.Encode(envelope.NewStreamChunk(req.ID, seq, c, false))
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := <-errCh; err != nil {
		code, message, details := opErrorCode(err)
		_ = enc.Encode(errorEnvelope(req.ID, opErrFrom(code, message, details)))
		if flusher != nil {
			flusher.Flush()
		}
		return
	}

	seq++
	_ = enc.Encode(terminalChunk(req.ID, seq))
	if flusher != nil {
		flusher.Flush()
	}
}

func terminalChunk(requestID string, sequence int) envelope.Envelope {
	return envelope.NewStreamChunk(requestID, sequence, envelope.StreamDoneSentinel{Done: true}, true)
}
