package store

import (
    "context"
    "math"
    "sync"
    "time"

    "github.com/google/uuid"
    "routecost/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu     sync.Mutex
    quotes map[string]model.Quote                 // id -> quote
    byTen  map[string][]string                    // tenant -> quote ids, insertion order
    subs   map[string][]model.Subscription        // tenant -> subscriptions
    // Webhooks queue state
    deliveries map[string]*memDelivery            // id -> delivery state
    deliveriesByTenant map[string][]string        // tenant -> delivery ids
    dlq    []map[string]any                       // dead-lettered deliveries
}

func NewMemory() *Memory {
    return &Memory{
        quotes: map[string]model.Quote{},
        byTen: map[string][]string{},
        subs: map[string][]model.Subscription{},
        deliveries: map[string]*memDelivery{},
        deliveriesByTenant: map[string][]string{},
        dlq: []map[string]any{},
    }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// Quotes
func (m *Memory) SaveQuote(ctx context.Context, q model.Quote) (model.Quote, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if q.ID == "" { q.ID = uuid.New().String() }
    if q.CreatedAt == "" { q.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano) }
    if _, exists := m.quotes[q.ID]; !exists {
        m.byTen[q.TenantID] = append(m.byTen[q.TenantID], q.ID)
    }
    m.quotes[q.ID] = q
    return q, nil
}

func (m *Memory) GetQuote(ctx context.Context, tenantID, id string) (model.Quote, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    q, ok := m.quotes[id]
    if !ok || q.TenantID != tenantID { return model.Quote{}, ErrNotFound }
    return q, nil
}

func (m *Memory) ListQuotes(ctx context.Context, tenantID, cursor string, limit int) ([]model.Quote, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.byTen[tenantID]
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    if limit <= 0 { limit = 100 }
    out := []model.Quote{}
    next := ""
    for i := start; i < len(ids); i++ {
        if len(out) == limit { next = out[len(out)-1].ID; break }
        out = append(out, m.quotes[ids[i]])
    }
    return out, next, nil
}

func (m *Memory) QuoteStats(ctx context.Context, tenantID string) (model.QuoteStats, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    st := model.QuoteStats{}
    routes := 0
    for _, id := range m.byTen[tenantID] {
        q := m.quotes[id]
        if st.Count == 0 || q.MinimumCost < st.MinCost { st.MinCost = q.MinimumCost }
        st.MaxCost = math.Max(st.MaxCost, q.MinimumCost)
        st.Count++
        st.TotalCost += q.MinimumCost
        routes += q.RoutesEvaluated
        if q.Cached { st.CachedCount++ }
        if q.CreatedAt > st.LastQuoteAt { st.LastQuoteAt = q.CreatedAt }
    }
    if st.Count > 0 {
        st.AvgCost = st.TotalCost / float64(st.Count)
        st.AvgRoutes = float64(routes) / float64(st.Count)
    }
    return st, nil
}

// Subscriptions
func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events { if e == eventType { out = append(out, s); break } }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    list := m.subs[tenantID]
    start := 0
    if cursor != "" {
        for i := range list { if list[i].ID == cursor { start = i+1; break } }
    }
    if limit <= 0 { limit = 100 }
    end := start + limit
    if end > len(list) { end = len(list) }
    items := append([]model.Subscription{}, list[start:end]...)
    next := ""
    if end < len(list) { next = list[end-1].ID }
    return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    arr := m.subs[tenantID]
    out := make([]model.Subscription, 0, len(arr))
    found := false
    for _, s := range arr {
        if s.ID == id { found = true; continue }
        out = append(out, s)
    }
    if !found { return ErrNotFound }
    m.subs[tenantID] = out
    return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending", Attempts: 0}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, ids := range m.deliveriesByTenant {
        for _, id := range ids {
            d := m.deliveries[id]
            if d == nil { continue }
            if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
                out = append(out, d.WebhookDelivery)
                if limit > 0 && len(out) >= limit { return out, nil }
            }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = "retry"
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil {
        d.Status = "failed"
        d.Attempts++
        d.LastError = lastError
        d.ResponseCode = responseCode
        d.LatencyMs = latencyMs
    }
    m.dlq = append(m.dlq, map[string]any{"id": id, "lastError": lastError, "responseCode": responseCode, "latencyMs": latencyMs})
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []map[string]any{}
    ids := m.deliveriesByTenant[tenantID]
    for _, id := range ids {
        d := m.deliveries[id]
        if d == nil { continue }
        if status == "" || d.Status == status {
            item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
            if !d.NextAttemptAt.IsZero() { item["nextAttemptAt"] = d.NextAttemptAt }
            if d.LastError != "" { item["lastError"] = d.LastError }
            if d.ResponseCode != 0 { item["responseCode"] = d.ResponseCode }
            out = append(out, item)
        }
    }
    return out, "", nil
}
