package api

import (
    "context"
    "errors"
    "net/http"
    "time"

    "routecost/internal/metrics"
    "routecost/internal/model"
    "routecost/internal/opt"
    "routecost/internal/webhooks"
)

// compute runs one search under the server's search timeout and records its outcome.
func (s *Server) compute(ctx context.Context, order opt.Order) (opt.Result, error) {
    timeout := s.SearchTimeout
    if timeout <= 0 { timeout = defaultSearchTimeout }
    ctx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    res, err := s.Engine.ComputeMinimumCost(ctx, order)
    metrics.QuotesComputed.WithLabelValues(outcomeOf(res, err)).Inc()
    if err == nil && !res.Cached {
        metrics.RoutesEvaluated.Observe(float64(res.RoutesEvaluated))
        metrics.SearchDuration.Observe(res.SearchTime.Seconds())
    }
    return res, err
}

// createQuote computes, stores and announces a quote for tenant.
func (s *Server) createQuote(ctx context.Context, tenant string, order opt.Order) (model.Quote, error) {
    res, err := s.compute(ctx, order)
    if err != nil {
        return model.Quote{}, err
    }
    q := model.Quote{
        TenantID:        tenant,
        Order:           order,
        Demand:          res.Demand,
        MinimumCost:     res.MinimumCost,
        Route:           res.Route,
        IgnoredProducts: res.Ignored,
        RoutesEvaluated: res.RoutesEvaluated,
        Cached:          res.Cached,
        SearchMs:        durationMs(res.SearchTime),
        NetworkID:       s.Engine.Network().Fingerprint(),
    }
    q, err = s.Store.SaveQuote(ctx, q)
    if err != nil {
        return model.Quote{}, err
    }
    data := map[string]any{
        "id":              q.ID,
        "networkId":       q.NetworkID,
        "minimumCost":     q.MinimumCost,
        "route":           q.Route,
        "demand":          q.Demand,
        "routesEvaluated": q.RoutesEvaluated,
        "cached":          q.Cached,
        "ts":              q.CreatedAt,
    }
    s.Broker.Publish(tenant, SSEEvent{Type: webhooks.EventQuoteComputed, Data: data})
    if s.Pub != nil {
        s.Pub.Emit(ctx, tenant, webhooks.EventQuoteComputed, data)
    }
    return q, nil
}

func outcomeOf(res opt.Result, err error) string {
    switch {
    case err == nil && res.Cached:
        return "cached"
    case err == nil:
        return "ok"
    case errors.Is(err, opt.ErrNoFulfillableDemand):
        return "no_demand"
    case errors.Is(err, opt.ErrUnknownProduct):
        return "unknown_product"
    case errors.Is(err, opt.ErrInvalidQuantity):
        return "invalid_quantity"
    case errors.Is(err, opt.ErrTooManyCenters):
        return "too_many_centers"
    case errors.Is(err, opt.ErrNoRouteFound):
        return "no_route"
    case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
        return "timeout"
    default:
        return "error"
    }
}

// problemFor maps a computation error to an HTTP status and problem title.
func problemFor(err error) (int, string) {
    switch {
    case errors.Is(err, opt.ErrNoFulfillableDemand):
        return http.StatusBadRequest, "No valid products in request"
    case errors.Is(err, opt.ErrUnknownProduct):
        return http.StatusBadRequest, "Unknown product"
    case errors.Is(err, opt.ErrInvalidQuantity):
        return http.StatusBadRequest, "Invalid quantity"
    case errors.Is(err, opt.ErrTooManyCenters):
        return http.StatusUnprocessableEntity, "Too many centers"
    case errors.Is(err, opt.ErrNoRouteFound):
        return http.StatusInternalServerError, "Could not find valid delivery path"
    case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
        return http.StatusServiceUnavailable, "Search timed out"
    default:
        return http.StatusInternalServerError, "Quote failed"
    }
}

func durationMs(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
