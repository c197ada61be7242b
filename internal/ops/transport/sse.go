package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// handleSSEStream implements POST /api/mcp/sse-stream: the same stream of
// envelopes as the NDJSON transport, framed as named text/event-stream
// events ("response", "stream-chunk", "stream-complete", "error") instead
// of bare newline-delimited JSON.
func (s *Server) handleSSEStream(w http.ResponseWriter, r *http.Request) {
	req, opErr := decodeRequest(r)
	if opErr != nil {
		writeEnvelope(w, httpStatusFor(opErr.Code), errorEnvelope("", opErr))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	emit := func(env envelope.Envelope) {
		payload, _ := json.Marshal(env)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEventName(env), payload)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if !s.svc.Streamable(req.Operation) {
		result, err := s.svc.Dispatch(r.Context(), req.Operation, req.Params)
		if err != nil {
			code, message, details := opErrorCode(err)
			emit(errorEnvelope(req.ID, opErrFrom(code, message, details)))
			return
		}
		emit(envelope.NewStreamChunk(req.ID, 1, result, false))
		emit(terminalChunk(req.ID, 2))
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
		emit(envelope.NewStreamChunk(req.ID, seq, c, false))
	}

	if err := <-errCh; err != nil {
		code, message, details := opErrorCode(err)
		emit(errorEnvelope(req.ID, opErrFrom(code, message, details)))
		return
	}

	seq++
	emit(terminalChunk(req.ID, seq))
}

// sseEventName derives the SSE "event:" field from an envelope, one of
// response, stream-chunk, stream-complete, or error.
func sseEventName(env envelope.Envelope) string {
	switch env.Type {
	case envelope.TypeResponse:
		return "response"
	case envelope.TypeStreamChunk:
		if env.IsFinal {
			return "stream-complete"
		}
		return "stream-chunk"
	case envelope.TypeError:
		return "error"
	default:
		return env.Type
	}
}
