package store

import (
    "context"
    "errors"
    "time"

    "routecost/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
    // Quotes
    SaveQuote(ctx context.Context, q model.Quote) (model.Quote, error)
    GetQuote(ctx context.Context, tenantID, id string) (model.Quote, error)
    ListQuotes(ctx context.Context, tenantID, cursor string, limit int) ([]model.Quote, string, error)
    QuoteStats(ctx context.Context, tenantID string) (model.QuoteStats, error)

    // Subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)

    // Health
    Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// WebhookDelivery is one queued attempt to POST an event to a subscriber.
// Status moves pending -> retry* -> delivered | failed.
type WebhookDelivery struct {
    ID             string
    TenantID       string
    SubscriptionID string
    EventType      string
    URL            string
    Secret         string
    Payload        []byte
    Status         string
    Attempts       int
}
