package webhooks

import (
    "bytes"
    "context"
    "encoding/json"
    "log"
    "net/http"
    "os"
    "strconv"
    "time"

    "routecost/internal/metrics"
    "routecost/internal/store"
)

// Delivery headers. Quote headers are only set for quote.computed events.
const (
    HeaderEventType   = "X-Event-Type"
    HeaderEventID     = "X-Event-Id"
    HeaderSignature   = "X-Signature"
    HeaderDeliveryID  = "X-Delivery-Id"
    HeaderAttempt     = "X-Delivery-Attempt"
    HeaderTenant      = "X-Tenant-Id"
    HeaderQuoteID     = "X-Quote-Id"
    HeaderNetworkID   = "X-Network-Id"
    HeaderMinimumCost = "X-Minimum-Cost"
)

// Worker posts queued quote events to subscriber URLs.
type Worker struct {
    Store       store.Store
    HTTP        *http.Client
    Stop        chan struct{}
    MaxAttempts int
}

func NewWorker(s store.Store) *Worker {
    max := 10
    if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" { if n, err := strconv.Atoi(v); err == nil && n > 0 { max = n } }
    return &Worker{Store: s, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: max}
}

func (w *Worker) Start() {
    go func() {
        ticker := time.NewTicker(1 * time.Second)
        defer ticker.Stop()
        for {
            select {
            case <-w.Stop:
                return
            case <-ticker.C:
                w.processOnce()
            }
        }
    }()
}

// envelope is the part of a Publisher payload the worker reads back.
type envelope struct {
    ID   string `json:"id"`
    Data struct {
        QuoteID     string   `json:"id"`
        NetworkID   string   `json:"networkId"`
        MinimumCost *float64 `json:"minimumCost"`
    } `json:"data"`
}

// processOnce attempts every due delivery once. Deliveries that reach
// MaxAttempts without a 2xx go to the dead-letter queue.
func (w *Worker) processOnce() {
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    items, err := w.Store.FetchDueWebhookDeliveries(ctx, 50)
    if err != nil {
        log.Printf("webhooks: fetch due deliveries: %v", err)
        return
    }
    for _, it := range items {
        w.deliver(ctx, it)
    }
}

func (w *Worker) deliver(ctx context.Context, it store.WebhookDelivery) {
    attempt := it.Attempts + 1
    req, err := w.request(ctx, it, attempt)
    code, latency := 0, 0
    if err == nil {
        start := time.Now()
        var resp *http.Response
        resp, err = w.HTTP.Do(req)
        latency = int(time.Since(start).Milliseconds())
        if err == nil {
            code = resp.StatusCode
            if resp.Body != nil { _ = resp.Body.Close() }
        }
    }
    success := err == nil && code >= 200 && code < 300

    lastErr := ""
    switch {
    case success:
    case err != nil:
        lastErr = err.Error()
    default:
        lastErr = http.StatusText(code)
    }

    status := "delivered"
    switch {
    case success:
        _ = w.Store.MarkWebhookDelivery(ctx, it.ID, true, nil, "", code, latency)
    case attempt >= w.MaxAttempts:
        status = "failed"
        log.Printf("webhooks: delivery %s to %s failed after %d attempts: %s", it.ID, it.URL, attempt, lastErr)
        _ = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
    default:
        status = "retry"
        next := time.Now().Add(nextBackoff(it.Attempts))
        _ = w.Store.MarkWebhookDelivery(ctx, it.ID, false, &next, lastErr, code, latency)
    }
    metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
    metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))
}

// request builds the signed POST for one attempt of it.
func (w *Worker) request(ctx context.Context, it store.WebhookDelivery, attempt int) (*http.Request, error) {
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
    if err != nil { return nil, err }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set(HeaderEventType, it.EventType)
    req.Header.Set(HeaderDeliveryID, it.ID)
    req.Header.Set(HeaderAttempt, strconv.Itoa(attempt))
    req.Header.Set(HeaderTenant, it.TenantID)
    if it.Secret != "" {
        req.Header.Set(HeaderSignature, SignHMAC(it.Secret, it.Payload))
    }

    var env envelope
    if json.Unmarshal(it.Payload, &env) != nil { return req, nil }
    if env.ID != "" { req.Header.Set(HeaderEventID, env.ID) }
    if it.EventType == EventQuoteComputed {
        if env.Data.QuoteID != "" { req.Header.Set(HeaderQuoteID, env.Data.QuoteID) }
        if env.Data.NetworkID != "" { req.Header.Set(HeaderNetworkID, env.Data.NetworkID) }
        if env.Data.MinimumCost != nil {
            req.Header.Set(HeaderMinimumCost, strconv.FormatFloat(*env.Data.MinimumCost, 'f', -1, 64))
        }
    }
    return req, nil
}

func nextBackoff(attempts int) time.Duration {
    if attempts < 0 { attempts = 0 }
    if attempts > 10 { attempts = 10 }
    base := time.Second * time.Duration(1<<attempts)
    if base > time.Hour { base = time.Hour }
    return base
}
