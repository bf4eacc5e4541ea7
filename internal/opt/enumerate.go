package opt

import (
	"context"
	"fmt"
	"math"
	"math/bits"

	"routecost/internal/tariff"
)

// pollEvery is how many frames are expanded between context checks.
const pollEvery = 1024

// maxSearchCenters is the widest order the remaining-center bitmask holds.
const maxSearchCenters = 64

// boundSlack is the relative margin by which a frame's lower bound must
// exceed the best cost before the frame is dropped.
const boundSlack = 1e-9

// Problem is one route search: pick up every center in Demand starting and
// ending at Hub, optionally unloading at Hub in between.
type Problem struct {
	Hub      string
	Demand   Demand
	Distance func(from, to string) float64
	Tariff   tariff.Tariff
}

// Route is one complete plan. Stops begins and ends at the hub; interim hub
// stops are unloads.
type Route struct {
	Stops []string `json:"stops"`
	Cost  float64  `json:"cost"`
}

// step is one stop of a partial route. Steps are never modified once
// created, so sibling frames share their common prefix.
type step struct {
	node int
	prev *step
}

// frame is one search state. remaining has bit i set while center i still
// needs a pickup.
type frame struct {
	node      int
	remaining uint64
	carried   float64
	cost      float64
	path      *step
}

func (f frame) moveTo(next int, remaining uint64, carried, legCost float64) frame {
	return frame{
		node:      next,
		remaining: remaining,
		carried:   carried,
		cost:      f.cost + legCost,
		path:      &step{node: next, prev: f.path},
	}
}

// search holds a Problem resolved to dense indexes: centers in sorted order
// are 0..n-1 and the hub is n.
type search struct {
	names  []string
	hub    int
	demand []float64
	dist   [][]float64
	tariff tariff.Tariff

	// entry[i] is the least any leg into center i can cost, hubEntry the
	// least any leg back into the hub can cost.
	entry    []float64
	hubEntry float64
}

func newSearch(p Problem) (*search, error) {
	if len(p.Demand) == 0 {
		return nil, ErrNoFulfillableDemand
	}
	centers := p.Demand.Centers()
	if len(centers) > maxSearchCenters {
		return nil, fmt.Errorf("%w: %d centers, limit %d", ErrTooManyCenters, len(centers), maxSearchCenters)
	}
	s := &search{
		names:  append(centers, p.Hub),
		hub:    len(centers),
		demand: make([]float64, len(centers)+1),
		tariff: p.Tariff,
	}
	for i, c := range centers {
		s.demand[i] = p.Demand[c]
	}
	s.dist = make([][]float64, len(s.names))
	for i, from := range s.names {
		s.dist[i] = make([]float64, len(s.names))
		for j, to := range s.names {
			if i != j {
				s.dist[i][j] = p.Distance(from, to)
			}
		}
	}

	rate := p.Tariff.MinRate()
	cheapest := func(to int) float64 {
		if rate == 0 {
			return 0
		}
		d := math.Inf(1)
		for from := range s.names {
			if from != to && (to != s.hub || from != s.hub) {
				d = math.Min(d, s.dist[from][to])
			}
		}
		return d * rate
	}
	s.entry = make([]float64, len(centers))
	for i := range centers {
		s.entry[i] = cheapest(i)
	}
	s.hubEntry = cheapest(s.hub)
	return s, nil
}

// lowerBound is the least f can still pay: one leg into every remaining
// center plus, away from the hub, one leg back into it.
func (s *search) lowerBound(f frame) float64 {
	lb := 0.0
	if f.node != s.hub {
		lb = s.hubEntry
	}
	for rem := f.remaining; rem != 0; rem &= rem - 1 {
		lb += s.entry[bits.TrailingZeros64(rem)]
	}
	return lb
}

func (s *search) stops(path *step) []string {
	n := 0
	for st := path; st != nil; st = st.prev {
		n++
	}
	out := make([]string, n)
	for st := path; st != nil; st = st.prev {
		n--
		out[n] = s.names[st.node]
	}
	return out
}

// walk expands the search tree depth-first and calls leaf for each complete
// route. For each state the unload branch is explored before the pickup
// branches, and pickups go in sorted center order. Legs with infinite
// distance are skipped. When bound is non-nil, a frame that cannot finish
// below bound() is dropped without expanding it.
func (s *search) walk(ctx context.Context, bound func() float64, leaf func(path *step, cost float64)) error {
	var stack []frame
	all := uint64(1)<<uint(s.hub) - 1
	for i := s.hub - 1; i >= 0; i-- {
		d := s.dist[s.hub][i]
		if math.IsInf(d, 1) {
			continue
		}
		stack = append(stack, frame{
			node:      i,
			remaining: all &^ (1 << uint(i)),
			carried:   s.demand[i],
			cost:      s.tariff.Cost(d, 0),
			path:      &step{node: i, prev: &step{node: s.hub}},
		})
	}

	for expanded := 0; len(stack) > 0; expanded++ {
		if expanded%pollEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if bound != nil {
			best := bound()
			if f.cost >= best || f.cost+s.lowerBound(f) > best*(1+boundSlack) {
				continue
			}
		}
		if f.remaining == 0 && f.node == s.hub {
			leaf(f.path, f.cost)
			continue
		}

		row := s.dist[f.node]
		// Pushed in reverse so the lowest remaining center is expanded first.
		for i := s.hub - 1; i >= 0; i-- {
			bit := uint64(1) << uint(i)
			if f.remaining&bit == 0 || math.IsInf(row[i], 1) {
				continue
			}
			stack = append(stack, f.moveTo(i, f.remaining&^bit, f.carried+s.demand[i], s.tariff.Cost(row[i], f.carried)))
		}
		if f.node != s.hub && f.carried > 0 && !math.IsInf(row[s.hub], 1) {
			stack = append(stack, f.moveTo(s.hub, f.remaining, 0, s.tariff.Cost(row[s.hub], f.carried)))
		}
	}
	return nil
}

// Enumerate returns every route for p in the order the search visits them.
// It keeps all of them in memory, so it suits small orders and inspection;
// Search prices large orders.
func Enumerate(ctx context.Context, p Problem) ([]Route, error) {
	s, err := newSearch(p)
	if err != nil {
		return nil, err
	}
	var routes []Route
	err = s.walk(ctx, nil, func(path *step, cost float64) {
		routes = append(routes, Route{Stops: s.stops(path), Cost: cost})
	})
	if err != nil {
		return nil, err
	}
	return routes, nil
}

// Search returns the cheapest route for p together with the number of
// complete routes it priced. It returns the same route as Minimum over
// Enumerate, earliest on ties, while holding only the running best. Partial
// routes whose cost plus lowerBound cannot beat the best are not expanded.
func Search(ctx context.Context, p Problem) (Route, int, error) {
	s, err := newSearch(p)
	if err != nil {
		return Route{}, 0, err
	}
	best := math.Inf(1)
	var bestPath *step
	priced := 0
	err = s.walk(ctx, func() float64 { return best }, func(path *step, cost float64) {
		priced++
		if cost < best {
			best, bestPath = cost, path
		}
	})
	if err != nil {
		return Route{}, priced, err
	}
	if bestPath == nil {
		return Route{}, priced, ErrNoRouteFound
	}
	return Route{Stops: s.stops(bestPath), Cost: best}, priced, nil
}

// Minimum returns the cheapest route, keeping the earliest one on ties.
func Minimum(routes []Route) (Route, error) {
	if len(routes) == 0 {
		return Route{}, ErrNoRouteFound
	}
	best := routes[0]
	for _, r := range routes[1:] {
		if r.Cost < best.Cost {
			best = r
		}
	}
	return best, nil
}
