package api

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "routecost/internal/metrics"
)

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
    mux := http.NewServeMux()

    // Legacy cost endpoint
    mux.HandleFunc("/calculate-cost", s.RateLimit(s.CalculateCostHandler))

    // Quotes
    mux.HandleFunc("/v1/quotes", s.RateLimit(s.QuotesHandler))
    mux.HandleFunc("/v1/quotes/", s.QuoteByIDHandler)
    mux.HandleFunc("/v1/quotes/stream", s.QuoteStreamHandler)
    mux.HandleFunc("/v1/quotes/ws", s.QuoteWSHandler)

    // Network
    mux.HandleFunc("/v1/network", s.NetworkHandler)
    mux.HandleFunc("/v1/network/distance", s.DistanceHandler)

    // Subscriptions
    mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)

    // Admin
    mux.HandleFunc("/v1/admin/quotes/stats", s.QuoteStatsHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)

    // Health, metrics, debug
    mux.HandleFunc("/healthz", s.HealthHandler)
    mux.HandleFunc("/readyz", s.ReadyHandler)
    metrics.RegisterDefault()
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("/debug/vars", s.DebugJSON)

    // Docs
    mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
    mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
    mux.HandleFunc("/docs", s.DocsHandler)
    return mux
}
