package api

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "routecost/internal/buildinfo"
)

// DebugJSON serves /debug/vars: build info, effective network and config.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    n := s.Engine.Network()
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "network": map[string]any{
            "id":              n.Fingerprint(),
            "hub":             n.Hub,
            "centers":         len(n.Centers()),
            "unknownProducts": n.UnknownProducts,
            "maxCenters":      n.MaxCenters,
        },
        "rateLimiter": map[string]any{"tenants": s.Limiter.Tenants()},
        "config": map[string]any{
            "PORT": os.Getenv("PORT"),
            "NETWORK_CONFIG": os.Getenv("NETWORK_CONFIG"),
            "SEARCH_TIMEOUT_MS": s.SearchTimeout.Milliseconds(),
            "CACHE_TTL_SEC": os.Getenv("CACHE_TTL_SEC"),
            "RATE_RPS": os.Getenv("RATE_RPS"),
            "RATE_BURST": os.Getenv("RATE_BURST"),
            "CACHE_MAX_ENTRIES": os.Getenv("CACHE_MAX_ENTRIES"),
            "WEBHOOK_MAX_ATTEMPTS": os.Getenv("WEBHOOK_MAX_ATTEMPTS"),
            "HAS_DATABASE_URL": os.Getenv("DATABASE_URL") != "",
            "HAS_REDIS_URL": os.Getenv("REDIS_URL") != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
