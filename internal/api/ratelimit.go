package api

import (
    "net/http"
    "strconv"
    "sync"
    "time"

    "golang.org/x/time/rate"
)

// Bucket bookkeeping limits.
const (
    limiterIdle       = 10 * time.Minute
    maxLimiterIdle    = 24 * time.Hour
    defaultMaxTenants = 10000
)

type tenantBucket struct {
    lim  *rate.Limiter
    seen time.Time
}

// TenantLimiter hands out one token bucket per tenant. Buckets idle longer
// than it takes them to refill are dropped, and once maxTenants buckets are
// live any further tenant draws from one shared overflow bucket.
type TenantLimiter struct {
    mu         sync.Mutex
    rps        rate.Limit
    burst      int
    idle       time.Duration
    maxTenants int
    now        func() time.Time
    nextSweep  time.Time
    m          map[string]*tenantBucket
    overflow   *rate.Limiter
}

// NewTenantLimiter returns a limiter allowing rps requests per second with the
// given burst. rps <= 0 disables limiting.
func NewTenantLimiter(rps float64, burst int) *TenantLimiter {
    if burst < 1 { burst = 1 }
    idle := limiterIdle
    if rps > 0 {
        // idle is at least the time an empty bucket takes to refill
        refill := float64(burst) / rps
        switch {
        case refill > maxLimiterIdle.Seconds():
            idle = maxLimiterIdle
        case refill > idle.Seconds():
            idle = time.Duration(refill * float64(time.Second))
        }
    }
    return &TenantLimiter{
        rps:        rate.Limit(rps),
        burst:      burst,
        idle:       idle,
        maxTenants: defaultMaxTenants,
        now:        time.Now,
        m:          map[string]*tenantBucket{},
        overflow:   rate.NewLimiter(rate.Limit(rps), burst),
    }
}

func (l *TenantLimiter) Allow(tenant string) bool {
    if l == nil || l.rps <= 0 { return true }
    l.mu.Lock()
    now := l.now()
    if !now.Before(l.nextSweep) {
        l.sweep(now)
        l.nextSweep = now.Add(l.idle)
    }
    b, ok := l.m[tenant]
    if !ok && len(l.m) >= l.maxTenants {
        l.sweep(now)
    }
    var lim *rate.Limiter
    switch {
    case ok:
        b.seen = now
        lim = b.lim
    case len(l.m) < l.maxTenants:
        lim = rate.NewLimiter(l.rps, l.burst)
        l.m[tenant] = &tenantBucket{lim: lim, seen: now}
    default:
        lim = l.overflow
    }
    l.mu.Unlock()
    return lim.AllowN(now, 1)
}

func (l *TenantLimiter) sweep(now time.Time) {
    for k, b := range l.m {
        if now.Sub(b.seen) >= l.idle { delete(l.m, k) }
    }
}

// Tenants reports how many per-tenant buckets are live.
func (l *TenantLimiter) Tenants() int {
    if l == nil { return 0 }
    l.mu.Lock()
    defer l.mu.Unlock()
    return len(l.m)
}

// RateLimit wraps h with the per-tenant limiter and answers 429 when exhausted.
func (s *Server) RateLimit(h http.HandlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        _, tenant := s.withTenant(r)
        if !s.Limiter.Allow(tenant) {
            w.Header().Set("Retry-After", strconv.Itoa(1))
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded for tenant "+tenant, r.URL.Path)
            return
        }
        h(w, r)
    }
}
