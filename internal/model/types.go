package model

// API request/response types

// QuoteRequest asks for the cheapest route for an order.
type QuoteRequest struct {
    TenantID string             `json:"tenantId,omitempty"`
    Order    map[string]float64 `json:"order"`
}

// Quote is a computed, stored minimum-cost route for one order.
type Quote struct {
    ID              string             `json:"id"`
    TenantID        string             `json:"tenantId"`
    Order           map[string]float64 `json:"order"`
    Demand          map[string]float64 `json:"demand"`
    MinimumCost     float64            `json:"minimumCost"`
    Route           []string           `json:"route"`
    IgnoredProducts []string           `json:"ignoredProducts,omitempty"`
    RoutesEvaluated int                `json:"routesEvaluated"`
    Cached          bool               `json:"cached"`
    SearchMs        float64            `json:"searchMs"`
    NetworkID       string             `json:"networkId"`
    CreatedAt       string             `json:"createdAt"`
}

// CostResponse is the body of a successful POST /calculate-cost.
type CostResponse struct {
    MinimumCost float64 `json:"minimumCost"`
}

// ErrorResponse is the body of a failed POST /calculate-cost.
type ErrorResponse struct {
    Error string `json:"error"`
}

// NetworkView describes the configured delivery network.
type NetworkView struct {
    ID              string            `json:"id"`
    Hub             string            `json:"hub"`
    Centers         []string          `json:"centers"`
    Products        map[string]string `json:"products"`
    Edges           []EdgeView        `json:"edges"`
    Tariff          TariffView        `json:"tariff"`
    UnknownProducts string            `json:"unknownProducts"`
    MaxCenters      int               `json:"maxCenters"`
}

type EdgeView struct {
    From   string  `json:"from"`
    To     string  `json:"to"`
    Weight float64 `json:"weight"`
}

type TariffView struct {
    Threshold float64 `json:"threshold"`
    LowRate   float64 `json:"lowRate"`
    HighRate  float64 `json:"highRate"`
}

// DistanceResponse is the body of GET /v1/network/distance.
type DistanceResponse struct {
    From     string  `json:"from"`
    To       string  `json:"to"`
    Distance float64 `json:"distance"`
}

type SubscriptionRequest struct {
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret"`
}

type Subscription struct {
    ID       string   `json:"id"`
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret,omitempty"`
}

// QuoteStats aggregates stored quotes for a tenant.
type QuoteStats struct {
    Count           int     `json:"count"`
    CachedCount     int     `json:"cachedCount"`
    TotalCost       float64 `json:"totalCost"`
    AvgCost         float64 `json:"avgCost"`
    MinCost         float64 `json:"minCost"`
    MaxCost         float64 `json:"maxCost"`
    AvgRoutes       float64 `json:"avgRoutesEvaluated"`
    LastQuoteAt     string  `json:"lastQuoteAt,omitempty"`
}
