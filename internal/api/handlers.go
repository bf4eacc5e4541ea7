package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "net/http"
    "strings"
    "time"

    "routecost/internal/graph"
    "routecost/internal/model"
    "routecost/internal/opt"
    "routecost/internal/store"
)

const (
    msgNoValidProducts = "No valid products in request."
    msgNoPath          = "Could not find valid delivery path."
)

// CalculateCostHandler handles POST /calculate-cost. The body is a bare
// product -> quantity map and errors use the {"error": msg} shape.
func (s *Server) CalculateCostHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var order opt.Order
    if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
        writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: msgNoValidProducts})
        return
    }
    res, err := s.compute(r.Context(), order)
    if err != nil {
        status, title := problemFor(err)
        msg := title + "."
        switch status {
        case http.StatusBadRequest:
            msg = msgNoValidProducts
        case http.StatusInternalServerError:
            msg = msgNoPath
        }
        writeJSON(w, status, model.ErrorResponse{Error: msg})
        return
    }
    writeJSON(w, http.StatusOK, model.CostResponse{MinimumCost: res.MinimumCost})
}

// QuotesHandler handles POST/GET /v1/quotes
func (s *Server) QuotesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/quotes" { writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path); return }
    switch r.Method {
    case http.MethodPost:
        var req model.QuoteRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateQuoteRequest(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid quote request", err.Error(), r.URL.Path)
            return
        }
        tenant, err := s.writeTenant(r, req.TenantID)
        if err != nil {
            writeProblem(w, http.StatusForbidden, "Tenant mismatch", err.Error(), r.URL.Path)
            return
        }
        q, err := s.createQuote(r.Context(), tenant, req.Order)
        if err != nil {
            status, title := problemFor(err)
            writeProblem(w, status, title, err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, q)
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListQuotes(r.Context(), tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List quotes failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// QuoteByIDHandler handles GET /v1/quotes/{id}
func (s *Server) QuoteByIDHandler(w http.ResponseWriter, r *http.Request) {
    id := strings.TrimPrefix(r.URL.Path, "/v1/quotes/")
    if id == "" || id == r.URL.Path || strings.Contains(id, "/") {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    q, err := s.Store.GetQuote(r.Context(), tenant, id)
    if errors.Is(err, store.ErrNotFound) {
        writeProblem(w, http.StatusNotFound, "Quote not found", id, r.URL.Path)
        return
    }
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Get quote failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, q)
}

// QuoteStreamHandler streams the tenant's quote events as SSE.
func (s *Server) QuoteStreamHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    _, tenant := s.withTenant(r)
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(tenant)
    defer s.Broker.Unsubscribe(tenant, ch)
    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"tenantId\":%q,\"ts\":%q}\n\n", tenant, time.Now().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()
    ticker := time.NewTicker(15 * time.Second)
    defer ticker.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-ticker.C:
            heartbeat()
        }
    }
}

// QuoteStatsHandler handles GET /v1/admin/quotes/stats
func (s *Server) QuoteStatsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    st, err := s.Store.QuoteStats(r.Context(), tenant)
    if err != nil { writeProblem(w, 500, "Quote stats failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, st)
}

// NetworkHandler handles GET /v1/network
func (s *Server) NetworkHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    n := s.Engine.Network()
    view := model.NetworkView{
        ID:              n.Fingerprint(),
        Hub:             n.Hub,
        Centers:         n.Centers(),
        Products:        n.Products(),
        Tariff:          model.TariffView{Threshold: n.Tariff.Threshold, LowRate: n.Tariff.LowRate, HighRate: n.Tariff.HighRate},
        UnknownProducts: n.UnknownProducts,
        MaxCenters:      n.MaxCenters,
    }
    for _, e := range n.Graph.Edges() {
        view.Edges = append(view.Edges, model.EdgeView{From: e.From, To: e.To, Weight: e.Weight})
    }
    writeJSON(w, 200, view)
}

// DistanceHandler handles GET /v1/network/distance?from=&to=
func (s *Server) DistanceHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
    if from == "" || to == "" { writeProblem(w, 400, "Missing from/to", "", r.URL.Path); return }
    d, err := s.Engine.ShortestDistance(from, to)
    if errors.Is(err, graph.ErrUnknownNode) { writeProblem(w, 404, "Unknown node", err.Error(), r.URL.Path); return }
    if err != nil { writeProblem(w, 500, "Distance failed", err.Error(), r.URL.Path); return }
    if math.IsInf(d, 1) { writeProblem(w, 404, "Unreachable", from+" -> "+to, r.URL.Path); return }
    writeJSON(w, 200, model.DistanceResponse{From: from, To: to, Distance: d})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    _, tenant := s.withTenant(r)
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateSubscriptionRequest(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
            return
        }
        t, err := s.writeTenant(r, req.TenantID)
        if err != nil {
            writeProblem(w, http.StatusForbidden, "Tenant mismatch", err.Error(), r.URL.Path)
            return
        }
        req.TenantID = t
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// Subscription delete
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    _, tenant := s.withTenant(r)
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    err := s.Store.DeleteSubscription(r.Context(), tenant, id)
    if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Subscription not found", id, r.URL.Path); return }
    if err != nil { writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path); return }
    w.WriteHeader(204)
}

// Admin: webhook deliveries list
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-deliveries" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    _, tenant := s.withTenant(r)
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), tenant, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]string{"status": "ready", "network": s.Engine.Network().Fingerprint()})
}
