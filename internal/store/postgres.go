package store

import (
    "context"
    "crypto/sha256"
    "database/sql"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "routecost/internal/model"
)

type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Statements must be idempotent.
func (p *Postgres) MigrateDir(dir string) error {
    files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
    if err != nil { return err }
    sort.Strings(files)
    for _, f := range files {
        b, err := os.ReadFile(f)
        if err != nil { return err }
        if _, err := p.db.Exec(string(b)); err != nil {
            return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
        }
    }
    return nil
}

// Quotes
func (p *Postgres) SaveQuote(ctx context.Context, q model.Quote) (model.Quote, error) {
    if q.ID == "" { q.ID = uuid.New().String() }
    created := time.Now().UTC()
    if q.CreatedAt != "" {
        if t, err := time.Parse(time.RFC3339Nano, q.CreatedAt); err == nil { created = t }
    }
    q.CreatedAt = created.Format(time.RFC3339Nano)
    order, _ := json.Marshal(q.Order)
    demand, _ := json.Marshal(q.Demand)
    route, _ := json.Marshal(q.Route)
    ignored, _ := json.Marshal(q.IgnoredProducts)
    _, err := p.db.ExecContext(ctx, `INSERT INTO quotes (id, tenant_id, network_id, order_items, demand, minimum_cost, route, ignored_products, routes_evaluated, cached, search_ms, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
        q.ID, q.TenantID, q.NetworkID, order, demand, q.MinimumCost, route, ignored, q.RoutesEvaluated, q.Cached, q.SearchMs, created)
    if err != nil { return model.Quote{}, err }
    return q, nil
}

const quoteColumns = `id::text, tenant_id, network_id, order_items, demand, minimum_cost, route, ignored_products, routes_evaluated, cached, search_ms, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanQuote(row rowScanner) (model.Quote, error) {
    var q model.Quote
    var order, demand, route, ignored []byte
    var created time.Time
    if err := row.Scan(&q.ID, &q.TenantID, &q.NetworkID, &order, &demand, &q.MinimumCost, &route, &ignored, &q.RoutesEvaluated, &q.Cached, &q.SearchMs, &created); err != nil {
        return model.Quote{}, err
    }
    _ = json.Unmarshal(order, &q.Order)
    _ = json.Unmarshal(demand, &q.Demand)
    _ = json.Unmarshal(route, &q.Route)
    _ = json.Unmarshal(ignored, &q.IgnoredProducts)
    q.CreatedAt = created.UTC().Format(time.RFC3339Nano)
    return q, nil
}

func (p *Postgres) GetQuote(ctx context.Context, tenantID, id string) (model.Quote, error) {
    if _, err := uuid.Parse(id); err != nil { return model.Quote{}, ErrNotFound }
    row := p.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    q, err := scanQuote(row)
    if errors.Is(err, sql.ErrNoRows) { return model.Quote{}, ErrNotFound }
    return q, err
}

func (p *Postgres) ListQuotes(ctx context.Context, tenantID, cursor string, limit int) ([]model.Quote, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Quote{}
    var last string
    for rows.Next() {
        q, err := scanQuote(rows)
        if err != nil { return nil, "", err }
        out = append(out, q)
        last = q.ID
    }
    if err := rows.Err(); err != nil { return nil, "", err }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) QuoteStats(ctx context.Context, tenantID string) (model.QuoteStats, error) {
    var st model.QuoteStats
    var last sql.NullTime
    err := p.db.QueryRowContext(ctx, `SELECT count(*), count(*) FILTER (WHERE cached), COALESCE(sum(minimum_cost),0), COALESCE(avg(minimum_cost),0),
        COALESCE(min(minimum_cost),0), COALESCE(max(minimum_cost),0), COALESCE(avg(routes_evaluated),0), max(created_at)
        FROM quotes WHERE tenant_id=$1`, tenantID).Scan(&st.Count, &st.CachedCount, &st.TotalCost, &st.AvgCost, &st.MinCost, &st.MaxCost, &st.AvgRoutes, &last)
    if err != nil { return model.QuoteStats{}, err }
    if last.Valid { st.LastQuoteAt = last.Time.UTC().Format(time.RFC3339Nano) }
    return st, nil
}

// Subscriptions
func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, _ := json.Marshal(req.Events)
    _, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    want, _ := json.Marshal([]string{eventType})
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, string(want))
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
    }
    return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Subscription{}
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    if _, err := uuid.Parse(id); err != nil { return ErrNotFound }
    res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    dk := computeDedupKey(payload)
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now(),$8)
        ON CONFLICT (tenant_id, event_type, url, dedup_key) DO NOTHING`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$1, next_attempt_at=$2, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$3`, nullIfEmpty(lastError), *nextAttemptAt, id, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func(){ _ = tx.Rollback() }()
    _, err = tx.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    if err != nil { return err }
    // move to DLQ
    _, err = tx.ExecContext(ctx, `INSERT INTO webhook_dlq (id, tenant_id, delivery_id, event_type, url, secret, payload, attempts, last_error)
        SELECT gen_random_uuid(), tenant_id, id, event_type, url, secret, payload, attempts, $2 FROM webhook_deliveries WHERE id=$1`, id, nullIfEmpty(lastError))
    if err != nil { return err }
    return tx.Commit()
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url, COALESCE(response_code,0) FROM webhook_deliveries WHERE tenant_id=$1 AND ($2 = '' OR status=$2) AND ($3 = '' OR id::text > $3) ORDER BY id LIMIT $4`
    rows, err := p.db.QueryContext(ctx, q, tenantID, status, cursor, limit)
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, et, st, lastErr, url string
        var attempts, code int
        var next sql.NullTime
        if err := rows.Scan(&id, &et, &st, &attempts, &next, &lastErr, &url, &code); err != nil { return nil, "", err }
        item := map[string]any{"id": id, "eventType": et, "status": st, "attempts": attempts, "url": url}
        if next.Valid { item["nextAttemptAt"] = next.Time }
        if lastErr != "" { item["lastError"] = lastErr }
        if code != 0 { item["responseCode"] = code }
        out = append(out, item)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

// computeDedupKey uses the event id when the payload carries one, otherwise a short content hash.
func computeDedupKey(payload []byte) string {
    var m map[string]any
    if json.Unmarshal(payload, &m) == nil {
        if v, ok := m["id"].(string); ok && v != "" {
            return v
        }
    }
    sum := sha256.Sum256(payload)
    return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any { if s == "" { return nil }; return s }
