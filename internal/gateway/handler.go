// HTTP request handling for the assistant gateway.
//
// DESIGN: Chat call pipeline:
//   - prepare():        credential resolution, model policy, quota check,
//     prompt assembly
//   - handleChat():     dispatch to single-shot or streaming response
//   - finishCall():     action extraction, cost, metering, telemetry
//
// Quota is check-then-consume without a transaction: a burst of concurrent
// calls can overshoot the daily limit by the burst size, never undershoot.
// Metering write failures are logged and the response proceeds; the upstream
// call already happened and the caller should not pay for our bookkeeping.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/actions"
	"github.com/satmarket/assistant-gateway/internal/auth"
	"github.com/satmarket/assistant-gateway/internal/catalog"
	"github.com/satmarket/assistant-gateway/internal/config"
	"github.com/satmarket/assistant-gateway/internal/metering"
	"github.com/satmarket/assistant-gateway/internal/monitoring"
	"github.com/satmarket/assistant-gateway/internal/relay"
	"github.com/satmarket/assistant-gateway/internal/router"
)

// preparedCall carries everything needed to relay one chat call.
type preparedCall struct {
	requestID      string
	callerID       string
	req            *ChatRequest
	key            string
	byok           bool
	model          catalog.Descriptor
	requestedModel string
	// quota is the pre-call status, nil for BYOK calls and when the
	// metering read failed open.
	quota           *metering.QuotaStatus
	messages        []relay.Message
	contextIncluded bool
	startedAt       time.Time
}

func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		g.writeError(w, r, auth.ErrInvalidToken)
		return
	}

	req, err := decodeChatRequest(w, r)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	pc, err := g.prepare(r.Context(), caller.ID, req, r.Header.Get(config.TransientKeyHeader))
	if err != nil {
		g.recordFailure(pc, caller.ID, req, err)
		g.writeError(w, r, err)
		return
	}
	pc.requestID = getRequestID(r)

	if req.Stream {
		g.streamChat(w, r, pc)
		return
	}

	result, err := g.relay.Complete(r.Context(), pc.key, relay.Request{
		Model:    pc.model.ID,
		Messages: pc.messages,
	})
	if err != nil {
		g.recordFailure(pc, caller.ID, req, err)
		g.writeError(w, r, err)
		return
	}

	resp := g.finishCall(r.Context(), pc, result.Content, result.Usage, false)
	writeJSON(w, http.StatusOK, resp)
}

// prepare runs every step that precedes the upstream call.
func (g *Gateway) prepare(ctx context.Context, callerID string, req *ChatRequest, transientKey string) (*preparedCall, error) {
	pc := &preparedCall{
		callerID:       callerID,
		req:            req,
		requestedModel: req.Model,
		startedAt:      time.Now(),
	}

	res, err := g.resolver.Resolve(ctx, callerID, transientKey)
	if err != nil {
		return pc, err
	}
	pc.byok = res.Personal
	pc.key = res.Key
	if !pc.byok {
		if g.cfg.Upstream.PlatformKey == "" {
			return pc, &apiError{
				Kind:    ErrNoCredential,
				Message: "no provider credential is configured, add your own key",
			}
		}
		pc.key = g.cfg.Upstream.PlatformKey
	}

	if !pc.byok {
		status, err := g.meter.CheckQuota(ctx, callerID)
		if err != nil {
			// Fail open: a metering outage must not take chat down.
			log.Warn().Err(err).Str("caller", callerID).Msg("quota check failed, admitting call")
		} else {
			pc.quota = &status
			if !status.Allowed {
				g.metrics.RecordQuotaRejection()
				return pc, &apiError{
					Kind:    ErrQuotaExceeded,
					Message: "daily free message allowance used up",
					Quota:   &status,
				}
			}
		}
	}

	pc.model = g.pickModel(req, pc.byok)
	pc.messages, pc.contextIncluded = g.buildMessages(ctx, callerID, req)
	return pc, nil
}

// pickModel applies the model policy: "auto" routes by heuristics, unknown
// ids substitute the default free model, and platform-funded callers are
// held to the free tier.
func (g *Gateway) pickModel(req *ChatRequest, byok bool) catalog.Descriptor {
	sel := router.Selection{Message: req.Message}
	if !byok {
		sel.Allowed = catalog.FreeIDs()
	}
	for _, turn := range req.History {
		sel.History = append(sel.History, turn.Content)
	}

	id := req.Model
	if id == config.AutoModelSentinel {
		id = router.Select(sel)
	}

	desc := catalog.Resolve(id)
	if !byok && !desc.Free {
		// Paid pick without a personal credential: re-route within the
		// free tier rather than dispatching on the platform key.
		desc = catalog.Resolve(router.Select(sel))
	}
	if desc.ID != req.Model && req.Model != config.AutoModelSentinel {
		log.Debug().Str("requested", req.Model).Str("resolved", desc.ID).Msg("model substituted")
	}
	return desc
}

func (g *Gateway) buildMessages(ctx context.Context, callerID string, req *ChatRequest) ([]relay.Message, bool) {
	system := systemPrompt
	contextIncluded := false
	if block := g.assembler.Build(ctx, callerID); block != "" {
		system += contextPreamble + block
		contextIncluded = true
	}

	msgs := make([]relay.Message, 0, len(req.History)+2)
	msgs = append(msgs, relay.Message{Role: "system", Content: system})
	for _, turn := range req.History {
		msgs = append(msgs, relay.Message{Role: turn.Role, Content: turn.Content})
	}
	msgs = append(msgs, relay.Message{Role: "user", Content: req.Message})
	return msgs, contextIncluded
}

// finishCall turns a completed upstream call into the client response and
// performs all post-call accounting.
func (g *Gateway) finishCall(ctx context.Context, pc *preparedCall, content string, usage relay.Usage, streamed bool) ChatResponse {
	cleaned, suggested := actions.Extract(content)

	payload := UsagePayload{
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		TotalTokens:  usage.TotalTokens,
		Estimated:    usage.Estimated,
		IsFreeModel:  pc.model.Free,
		UsedByok:     pc.byok,
	}
	if pc.byok && !pc.model.Free {
		cost := catalog.CostSats(pc.model.ID, usage.InputTokens, usage.OutputTokens)
		payload.ApiCostSats = &cost
	}

	if !pc.byok {
		if err := g.meter.Consume(ctx, pc.callerID, 1, usage.TotalTokens); err != nil {
			log.Error().Err(err).Str("caller", pc.callerID).Msg("metering write failed, usage not recorded")
		} else if pc.quota != nil {
			remaining := pc.quota.Remaining - 1
			if remaining < 0 {
				remaining = 0
			}
			pc.quota.Remaining = remaining
		}
	}

	status := g.userStatus(ctx, pc.callerID, pc.byok, pc.quota)

	var cost int64
	if payload.ApiCostSats != nil {
		cost = *payload.ApiCostSats
	}
	g.metrics.RecordRequest(true, streamed, pc.byok)
	g.metrics.RecordActions(len(suggested))
	g.metrics.RecordUsage(usage.InputTokens, usage.OutputTokens, cost)
	g.recordTelemetry(pc, &usage, len(suggested), streamed, true, "")

	return ChatResponse{
		Success: true,
		Data: ChatData{
			Message:    cleaned,
			Actions:    suggested,
			ModelUsed:  pc.model.ID,
			Usage:      payload,
			UserStatus: status,
		},
	}
}

func (g *Gateway) recordFailure(pc *preparedCall, callerID string, req *ChatRequest, err error) {
	ae := classifyError(err)
	if ae.Kind == ErrInvalidRequest {
		return
	}
	streamed := req != nil && req.Stream
	g.metrics.RecordRequest(false, streamed, pc != nil && pc.byok)
	g.recordTelemetry(pc, nil, 0, streamed, false, string(ae.Kind))
	if pc == nil {
		log.Warn().Err(err).Str("caller", callerID).Msg("chat call failed before preparation")
	}
}

func (g *Gateway) recordTelemetry(pc *preparedCall, usage *relay.Usage, actionCount int, streamed, success bool, errorKind string) {
	if pc == nil {
		return
	}
	ev := &monitoring.RequestEvent{
		RequestID:       pc.requestID,
		CallerID:        pc.callerID,
		Model:           pc.model.ID,
		RequestedModel:  pc.requestedModel,
		Streamed:        streamed,
		UsedByok:        pc.byok,
		ActionCount:     actionCount,
		DurationMS:      time.Since(pc.startedAt).Milliseconds(),
		Success:         success,
		ErrorKind:       errorKind,
		ContextIncluded: pc.contextIncluded,
	}
	if usage != nil {
		ev.InputTokens = usage.InputTokens
		ev.OutputTokens = usage.OutputTokens
		ev.EstimatedUsage = usage.Estimated
		if pc.byok && !pc.model.Free {
			ev.CostSats = catalog.CostSats(pc.model.ID, usage.InputTokens, usage.OutputTokens)
		}
	}
	if pc.quota != nil {
		ev.QuotaRemaining = pc.quota.Remaining
	}
	g.tracker.RecordRequest(ev)
}
