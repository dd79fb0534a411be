// Package gateway - stats.go exposes aggregated metrics as JSON.
//
// GET /stats returns operational counters. Restricted to localhost to keep
// operational data off the public surface.
package gateway

import (
	"encoding/json"
	"net/http"
)

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if !isLoopback(r.RemoteAddr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.metrics.FullStats())
}
