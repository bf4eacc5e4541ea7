package metrics

import (
    "sync"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // QuotesComputed counts cost computations by outcome (ok, cached, or an error class)
    QuotesComputed = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "quotes_computed_total", Help: "Minimum-cost computations by outcome."},
        []string{"outcome"},
    )
    // RoutesEvaluated observes how many complete routes one search priced
    RoutesEvaluated = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "route_search_routes_evaluated", Help: "Complete routes evaluated per search.", Buckets: prometheus.ExponentialBuckets(1, 4, 10)},
    )
    // SearchDuration records uncached search time in seconds
    SearchDuration = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "route_search_duration_seconds", Help: "Route search duration in seconds.", Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2}},
    )
    // CacheLookups counts result cache lookups by backend and result (hit/miss/error)
    CacheLookups = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "quote_cache_lookups_total", Help: "Quote cache lookups by backend and result."},
        []string{"backend", "result"},
    )

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )
)

// RegisterDefault registers collectors to the dedicated registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(QuotesComputed)
        Registry.MustRegister(RoutesEvaluated)
        Registry.MustRegister(SearchDuration)
        Registry.MustRegister(CacheLookups)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
