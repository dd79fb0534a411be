// Package gateway - ws.go is the websocket streaming transport.
//
// DESIGN: One chat call per connection: the client sends a single request
// message, the gateway answers with the same frame sequence as the NDJSON
// transport (model, content*, terminal), then closes. Errors after the
// upgrade travel as error frames followed by a normal closure.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/auth"
	"github.com/satmarket/assistant-gateway/internal/config"
	"github.com/satmarket/assistant-gateway/internal/relay"
	"github.com/satmarket/assistant-gateway/internal/utils"
)

const wsRequestReadTimeout = 30 * time.Second

func (g *Gateway) handleChatWS(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		g.writeError(w, r, auth.ErrInvalidToken)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "closed") }()

	ctx := r.Context()

	readCtx, cancel := context.WithTimeout(ctx, wsRequestReadTimeout)
	_, data, err := conn.Read(readCtx)
	cancel()
	if err != nil {
		return
	}

	var req ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		g.wsFinish(ctx, conn, errorFrame(errInvalid("malformed request message")))
		return
	}
	if err := validateChatRequest(&req); err != nil {
		g.wsFinish(ctx, conn, errorFrame(err))
		return
	}

	pc, err := g.prepare(ctx, caller.ID, &req, r.Header.Get(config.TransientKeyHeader))
	if err != nil {
		g.recordFailure(pc, caller.ID, &req, err)
		g.wsFinish(ctx, conn, errorFrame(err))
		return
	}
	pc.requestID = getRequestID(r)

	events, err := g.relay.Stream(ctx, pc.key, relay.Request{
		Model:    pc.model.ID,
		Messages: pc.messages,
	})
	if err != nil {
		g.recordFailure(pc, pc.callerID, &req, err)
		g.wsFinish(ctx, conn, errorFrame(err))
		return
	}

	g.wsWrite(ctx, conn, streamFrame{Model: pc.model.ID})

	var content strings.Builder
	for ev := range events {
		switch {
		case ev.Err != nil:
			g.recordFailure(pc, pc.callerID, &req, ev.Err)
			g.wsFinish(ctx, conn, errorFrame(ev.Err))
			return
		case ev.Usage != nil:
			resp := g.finishCall(context.WithoutCancel(ctx), pc, content.String(), *ev.Usage, true)
			g.wsFinish(ctx, conn, streamFrame{
				Done:       true,
				Model:      resp.Data.ModelUsed,
				Usage:      &resp.Data.Usage,
				Actions:    resp.Data.Actions,
				UserStatus: resp.Data.UserStatus,
			})
			return
		default:
			content.WriteString(ev.Content)
			g.wsWrite(ctx, conn, streamFrame{Content: ev.Content})
		}
	}
}

func (g *Gateway) wsWrite(ctx context.Context, conn *websocket.Conn, frame streamFrame) {
	data, err := utils.MarshalNoEscape(frame)
	if err != nil {
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.Debug().Err(err).Msg("websocket write failed")
	}
}

// wsFinish sends a terminal frame and closes the connection cleanly.
func (g *Gateway) wsFinish(ctx context.Context, conn *websocket.Conn, frame streamFrame) {
	g.wsWrite(ctx, conn, frame)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
