// Package opt computes the cheapest pickup route for an order: it aggregates
// demand per center, searches every pickup order with optional unloads at
// the hub, and keeps the cheapest route.
package opt

import (
	"context"
	"fmt"
	"time"

	"routecost/internal/graph"
	"routecost/internal/network"
)

// Result is the outcome of one computation.
type Result struct {
	MinimumCost     float64       `json:"minimumCost"`
	Route           []string      `json:"route"`
	Demand          Demand        `json:"demand"`
	Ignored         []string      `json:"ignoredProducts,omitempty"`
	RoutesEvaluated int           `json:"routesEvaluated"`
	Cached          bool          `json:"cached,omitempty"`
	SearchTime      time.Duration `json:"-"`
}

// ResultCache stores results keyed by network fingerprint and demand.
type ResultCache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, r Result)
}

// Engine prices orders against one immutable network. It is safe for
// concurrent use.
type Engine struct {
	net   *network.Network
	cache ResultCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache makes the engine reuse results for identical demand.
func WithCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine returns an Engine over n.
func NewEngine(n *network.Network, opts ...Option) *Engine {
	e := &Engine{net: n}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Network returns the network the engine prices against.
func (e *Engine) Network() *network.Network { return e.net }

// ShortestDistance exposes the network's shortest path distance.
func (e *Engine) ShortestDistance(from, to string) (float64, error) {
	return e.net.Graph.ShortestDistance(from, to)
}

// CacheKey returns the cache key for a demand on this engine's network.
func (e *Engine) CacheKey(d Demand) string {
	return e.net.Fingerprint() + ":" + d.Key()
}

// ComputeMinimumCost returns the cheapest route for order. It returns
// ErrNoFulfillableDemand when no center has positive demand and
// ErrNoRouteFound when the search finds no complete route.
func (e *Engine) ComputeMinimumCost(ctx context.Context, order Order) (Result, error) {
	demand, ignored, err := Aggregate(e.net, order)
	if err != nil {
		return Result{Ignored: ignored}, err
	}
	if len(demand) > e.net.MaxCenters {
		return Result{Demand: demand, Ignored: ignored}, fmt.Errorf("%w: %d centers, limit %d", ErrTooManyCenters, len(demand), e.net.MaxCenters)
	}

	key := e.CacheKey(demand)
	if e.cache != nil {
		if r, ok := e.cache.Get(ctx, key); ok {
			r.Demand = demand
			r.Ignored = ignored
			r.Cached = true
			return r, nil
		}
	}

	start := time.Now()
	table := graph.NewTable(e.net.Graph)
	best, priced, err := Search(ctx, Problem{
		Hub:      e.net.Hub,
		Demand:   demand,
		Distance: table.Distance,
		Tariff:   e.net.Tariff,
	})
	if err != nil {
		return Result{Demand: demand, Ignored: ignored}, err
	}
	r := Result{
		MinimumCost:     best.Cost,
		Route:           best.Stops,
		Demand:          demand,
		Ignored:         ignored,
		RoutesEvaluated: priced,
		SearchTime:      time.Since(start),
	}
	if e.cache != nil {
		e.cache.Set(ctx, key, r)
	}
	return r, nil
}
