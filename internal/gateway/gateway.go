// Package gateway is the HTTP surface of the assistant gateway.
//
// DESIGN: Request flow for a chat call:
//   - auth middleware:   resolve the caller from the bearer token
//   - rate limiter:      per-caller request-per-minute bucket
//   - handleChat():      credential resolution, model policy, quota,
//     context assembly, upstream relay, action extraction, metering
//
// The same pipeline serves the JSON, NDJSON-streaming, and websocket
// transports; only the response writing differs.
package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/auth"
	"github.com/satmarket/assistant-gateway/internal/catalog"
	"github.com/satmarket/assistant-gateway/internal/config"
	"github.com/satmarket/assistant-gateway/internal/contextdocs"
	"github.com/satmarket/assistant-gateway/internal/credentials"
	"github.com/satmarket/assistant-gateway/internal/metering"
	"github.com/satmarket/assistant-gateway/internal/monitoring"
	"github.com/satmarket/assistant-gateway/internal/relay"
)

// Deps are the collaborators the gateway is wired with.
type Deps struct {
	Verifier  auth.Verifier
	Resolver  *credentials.Resolver
	Meter     *metering.Store
	Assembler *contextdocs.Assembler
	Relay     *relay.Client
	Metrics   *monitoring.MetricsCollector
	Tracker   *monitoring.Tracker
}

// Gateway serves the assistant API.
type Gateway struct {
	cfg       *config.Config
	verifier  auth.Verifier
	resolver  *credentials.Resolver
	meter     *metering.Store
	assembler *contextdocs.Assembler
	relay     *relay.Client
	metrics   *monitoring.MetricsCollector
	tracker   *monitoring.Tracker
	limiter   *rateLimiter

	server *http.Server
}

// New creates a gateway from its configuration and collaborators.
func New(cfg *config.Config, deps Deps) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		verifier:  deps.Verifier,
		resolver:  deps.Resolver,
		meter:     deps.Meter,
		assembler: deps.Assembler,
		relay:     deps.Relay,
		metrics:   deps.Metrics,
		tracker:   deps.Tracker,
		limiter:   newRateLimiter(cfg.Server.RateLimitPerMinute, config.MaxRateLimitBuckets),
	}
	g.server = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           g.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout.Std(),
		WriteTimeout:      cfg.Server.WriteTimeout.Std(),
		IdleTimeout:       120 * time.Second,
	}
	return g
}

// Router builds the HTTP routing tree.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", g.handleHealth)
	r.Get("/stats", g.handleStats)

	r.Route("/v1/assistant", func(v1 chi.Router) {
		v1.Use(auth.Middleware(g.verifier, func(w http.ResponseWriter, r *http.Request, err error) {
			g.writeError(w, r, err)
		}))
		v1.Use(g.rateLimitMiddleware)
		v1.Get("/models", g.handleModels)
		v1.Post("/chat", g.handleChat)
		v1.Get("/chat/ws", g.handleChatWS)
	})

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (g *Gateway) Start() error {
	log.Info().Str("addr", g.server.Addr).Msg("gateway listening")
	err := g.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if _, err := g.meter.CheckQuota(r.Context(), "_health_"); err != nil {
		status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleModels lists the catalog, marking which entries this caller can use.
func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r.Context())

	res, err := g.resolver.Resolve(r.Context(), caller.ID, r.Header.Get(config.TransientKeyHeader))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	byok := res.Personal

	resp := ModelsResponse{DefaultModel: catalog.DefaultFreeModel}
	for _, d := range catalog.All() {
		resp.Models = append(resp.Models, ModelInfo{
			ID:        d.ID,
			Label:     d.Label,
			Free:      d.Free,
			Context:   d.Context,
			Available: byok || d.Free,
		})
	}
	resp.UserStatus = g.userStatus(r.Context(), caller.ID, byok, nil)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// userStatus builds the funding and allowance view for a caller. A known
// quota status can be passed to avoid a second metering read; otherwise one
// best-effort read happens here.
func (g *Gateway) userStatus(ctx context.Context, callerID string, byok bool, known *metering.QuotaStatus) *UserStatus {
	status := known
	if status == nil {
		s, err := g.meter.CheckQuota(ctx, callerID)
		if err != nil {
			log.Warn().Err(err).Str("caller", callerID).Msg("quota read failed for user status")
			limits := g.meter.Limits()
			return &UserStatus{HasByok: byok, FreeMessagesPerDay: limits.MessagesPerDay, FreeMessagesRemaining: 0}
		}
		status = &s
	}
	return &UserStatus{
		HasByok:               byok,
		FreeMessagesPerDay:    status.DailyLimit,
		FreeMessagesRemaining: status.Remaining,
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getRequestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}

// isLoopback reports whether remoteAddr is a loopback address.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
