package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/opsmesh/opsmesh/internal/ops/service"
	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// upgrader accepts connections from any origin. The operations service has
// no browser-facing session model to protect against cross-site WebSocket
// hijacking — every caller authenticates at the deployment's network
// boundary, not here; authentication is out of scope for this service.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Router handles the persistent bidirectional WebSocket transport,
// multiplexing many concurrent requests over one connection the way the
// hub's runtime WebSocket multiplexes many sessions over one connection.
type Router struct {
	svc *service.Service
	log *slog.Logger
}

// NewRouter constructs a Router wired to svc.
func NewRouter(svc *service.Service, log *slog.Logger) *Router {
	return &Router{svc: svc, log: log}
}

// wsConn serializes writes onto one connection — gorilla/websocket allows
// only one concurrent writer per connection — while requests are served
// concurrently by independent goroutines.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeEnvelope(env envelope.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

// HandleWS upgrades the HTTP connection and enters a read loop, dispatching
// each inbound request envelope to its own goroutine so a long-running
// streaming request never blocks other requests multiplexed on the same
// connection.
func (rt *Router) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	wc := &wsConn{conn: conn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var req envelope.Envelope
		if err := conn.ReadJSON(&req); err != nil {
			break
		}
		if req.Type != envelope.TypeRequest {
			_ = wc.writeEnvelope(errorEnvelope(req.ID, envelope.NewOpError(envelope.ErrRequestError, "envelope type must be \"request\"")))
			continue
		}
		if req.Operation == "" {
			_ = wc.writeEnvelope(errorEnvelope(req.ID, envelope.NewOpError(envelope.ErrMissingParameter, "missing operation")))
			continue
		}

		wg.Add(1)
		go func(req envelope.Envelope) {
			defer wg.Done()
			rt.serve(ctx, wc, req)
		}(req)
	}

	// The read loop has ended: cancel every in-flight request before the
	// deferred wait for them.
	cancel()
}

// serve runs one request to completion over the connection, either as a
// single response or as a sequence of stream_chunk envelopes ending in one
// terminal chunk. Unlike the unary HTTP transport, the WebSocket transport
// has no "streaming stub" quirk to preserve — every streamable operation
// genuinely streams here, since the connection is already bidirectional.
func (rt *Router) serve(ctx context.Context, wc *wsConn, req envelope.Envelope) {
	if !req.Stream || !rt.svc.Streamable(req.Operation) {
		result, err := rt.svc.Dispatch(ctx, req.Operation, req.Params)
		if err != nil {
			code, message, details := opErrorCode(err)
			_ = wc.writeEnvelope(errorEnvelope(req.ID, opErrFrom(code, message, details)))
			return
		}
		_ = wc.writeEnvelope(responseEnvelope(req.ID, envelope.StatusSuccess, result))
		return
	}

	chunks := make(chan any)
	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.svc.DispatchStream(ctx, req.Operation, req.Params, chunks)
	}()

	seq := 0
	for c := range chunks {
		seq++
		_ = wc.writeEnvelope(envelope.NewStreamChunk(req.ID, seq, c, false))
	}

	if err := <-errCh; err != nil {
		code, message, details := opErrorCode(err)
		_ = wc.writeEnvelope(errorEnvelope(req.ID, opErrFrom(code, message, details)))
		return
	}

	seq++
	_ = wc.writeEnvelope(terminalChunk(req.ID, seq))
}
