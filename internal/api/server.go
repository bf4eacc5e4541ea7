// Package api implements HTTP handlers and helpers for the route cost service.
package api

import (
    "context"
    "fmt"
    "log"
    "net/http"
    "os"
    "strconv"
    "strings"
    "time"

    "routecost/internal/cache"
    "routecost/internal/network"
    "routecost/internal/opt"
    "routecost/internal/store"
    "routecost/internal/webhooks"
)

const defaultSearchTimeout = 2 * time.Second

type Server struct {
    Store   store.Store
    Pub     *webhooks.Publisher
    Broker  EventBroker
    Engine  *opt.Engine
    Limiter *TenantLimiter
    // SearchTimeout bounds one route search.
    SearchTimeout time.Duration
}

// NewServer creates a Server from the environment. If DATABASE_URL is unset,
// uses in-memory store; if REDIS_URL is unset, uses in-process broker and cache.
func NewServer() (*Server, error) {
    nw, err := loadNetwork()
    if err != nil {
        return nil, err
    }

    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.MigrateDir("db/migrations"); err != nil { log.Printf("migrate: %v", err) }
        }
        s = sp
    }

    ttl := time.Duration(envInt("CACHE_TTL_SEC", 600)) * time.Second
    var rc opt.ResultCache = cache.NewMemory(ttl).WithMaxEntries(envInt("CACHE_MAX_ENTRIES", cache.DefaultMaxEntries))
    var broker EventBroker = NewBroker()
    if url := os.Getenv("REDIS_URL"); url != "" {
        if rb, err := NewRedisBroker(url); err == nil { broker = rb } else { log.Printf("redis broker: %v; using in-process broker", err) }
        if c, err := cache.NewRedis(url, ttl); err == nil { rc = c } else { log.Printf("redis cache: %v; using in-process cache", err) }
    }

    return &Server{
        Store:         s,
        Pub:           webhooks.NewPublisher(s),
        Broker:        broker,
        Engine:        opt.NewEngine(nw, opt.WithCache(rc)),
        Limiter:       NewTenantLimiter(envFloat("RATE_RPS", 20), envInt("RATE_BURST", 40)),
        SearchTimeout: time.Duration(envInt("SEARCH_TIMEOUT_MS", int(defaultSearchTimeout/time.Millisecond))) * time.Millisecond,
    }, nil
}

// loadNetwork reads NETWORK_CONFIG (or the built-in reference network) and
// applies the UNKNOWN_PRODUCTS and MAX_CENTERS overrides.
func loadNetwork() (*network.Network, error) {
    var n *network.Network
    if path := os.Getenv("NETWORK_CONFIG"); path != "" {
        var err error
        if n, err = network.Load(path); err != nil {
            return nil, err
        }
    } else {
        n = network.Reference()
    }
    if p := os.Getenv("UNKNOWN_PRODUCTS"); p != "" {
        var err error
        if n, err = n.WithPolicy(p); err != nil {
            return nil, err
        }
    }
    if v := envInt("MAX_CENTERS", 0); v > 0 {
        n = n.WithMaxCenters(v)
    }
    return n, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    tenant := r.Header.Get("X-Tenant-Id")
    if tenant == "" { tenant = "t_demo" }
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

type ctxKeyTenant struct{}

// writeTenant resolves the tenant a write belongs to. X-Tenant-Id decides;
// a tenantId in the body must name the same tenant.
func (s *Server) writeTenant(r *http.Request, bodyTenant string) (string, error) {
    _, tenant := s.withTenant(r)
    if bodyTenant != "" && bodyTenant != tenant {
        return "", fmt.Errorf("body tenantId %q does not match X-Tenant-Id %q", bodyTenant, tenant)
    }
    return tenant, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}

func envInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n >= 0 { return n }
    }
    return def
}

func envFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 { return f }
    }
    return def
}
