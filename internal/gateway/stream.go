// Package gateway - stream.go is the NDJSON streaming transport.
//
// DESIGN: One JSON frame per line. The first frame announces the resolved
// model, content frames follow in order, and exactly one terminal frame ends
// the stream: {"done":true,...} with usage and any extracted actions, or an
// {"error":...} frame. Errors after the stream opened cannot change the HTTP
// status anymore, so they always travel as frames.
package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/satmarket/assistant-gateway/internal/relay"
	"github.com/satmarket/assistant-gateway/internal/utils"
)

type frameWriter struct {
	w       io.Writer
	flusher http.Flusher
}

func newFrameWriter(w http.ResponseWriter) *frameWriter {
	fw := &frameWriter{w: w}
	if f, ok := w.(http.Flusher); ok {
		fw.flusher = f
	}
	return fw
}

func (fw *frameWriter) write(frame streamFrame) {
	data, err := utils.MarshalNoEscape(frame)
	if err != nil {
		return
	}
	_, _ = fw.w.Write(append(data, '\n'))
	if fw.flusher != nil {
		fw.flusher.Flush()
	}
}

// errorFrame renders err as a terminal stream frame.
func errorFrame(err error) streamFrame {
	_, body, _ := renderError(err)
	return streamFrame{Error: body.Error, Code: body.Code}
}

func (g *Gateway) streamChat(w http.ResponseWriter, r *http.Request, pc *preparedCall) {
	events, err := g.relay.Stream(r.Context(), pc.key, relay.Request{
		Model:    pc.model.ID,
		Messages: pc.messages,
	})
	if err != nil {
		// Stream never opened; a plain JSON error still works here.
		g.recordFailure(pc, pc.callerID, pc.req, err)
		g.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	fw := newFrameWriter(w)
	fw.write(streamFrame{Model: pc.model.ID})

	var content strings.Builder
	for ev := range events {
		switch {
		case ev.Err != nil:
			g.recordFailure(pc, pc.callerID, pc.req, ev.Err)
			fw.write(errorFrame(ev.Err))
			return
		case ev.Usage != nil:
			// Metering and telemetry must survive a client disconnect;
			// the upstream call is already paid for.
			resp := g.finishCall(context.WithoutCancel(r.Context()), pc, content.String(), *ev.Usage, true)
			fw.write(streamFrame{
				Done:       true,
				Model:      resp.Data.ModelUsed,
				Usage:      &resp.Data.Usage,
				Actions:    resp.Data.Actions,
				UserStatus: resp.Data.UserStatus,
			})
		default:
			content.WriteString(ev.Content)
			fw.write(streamFrame{Content: ev.Content})
		}
	}
}
