package opt

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"routecost/internal/graph"
	"routecost/internal/network"
	"routecost/internal/tariff"
)

func referenceProblem(t *testing.T, d Demand) Problem {
	t.Helper()
	n := network.Reference()
	return Problem{Hub: n.Hub, Demand: d, Distance: graph.NewTable(n.Graph).Distance, Tariff: n.Tariff}
}

func without(list []string, i int) []string {
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// recursiveCosts walks the same search tree with plain recursion.
func recursiveCosts(p Problem) []float64 {
	var out []float64
	var dfs func(node string, remaining []string, carried, cost float64)
	dfs = func(node string, remaining []string, carried, cost float64) {
		if len(remaining) == 0 && node == p.Hub {
			out = append(out, cost)
			return
		}
		if node != p.Hub && carried > 0 {
			dfs(p.Hub, remaining, 0, cost+p.Tariff.Cost(p.Distance(node, p.Hub), carried))
		}
		for i, next := range remaining {
			dfs(next, without(remaining, i), carried+p.Demand[next], cost+p.Tariff.Cost(p.Distance(node, next), carried))
		}
	}
	centers := p.Demand.Centers()
	for i, c := range centers {
		dfs(c, without(centers, i), p.Demand[c], p.Tariff.Cost(p.Distance(p.Hub, c), 0))
	}
	return out
}

func TestEnumerateSingleCenter(t *testing.T) {
	p := referenceProblem(t, Demand{"C1": 3})
	routes, err := Enumerate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 1 {
		t.Fatalf("want 1 route, got %d", len(routes))
	}
	if got := strings.Join(routes[0].Stops, ">"); got != "L1>C1>L1" {
		t.Fatalf("stops %s", got)
	}
	want := p.Tariff.Cost(3, 0) + p.Tariff.Cost(3, 3)
	if routes[0].Cost != want || want != 60 {
		t.Fatalf("cost %v want %v", routes[0].Cost, want)
	}
}

func TestEnumerateTwoCentersRouteCount(t *testing.T) {
	routes, err := Enumerate(context.Background(), referenceProblem(t, Demand{"C1": 6, "C3": 6}))
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 4 {
		t.Fatalf("want 4 routes, got %d", len(routes))
	}
	seen := map[string]float64{}
	for _, r := range routes {
		seen[strings.Join(r.Stops, ">")] = r.Cost
	}
	want := map[string]float64{
		"L1>C1>C3>L1":    86,
		"L1>C1>L1>C3>L1": 90,
		"L1>C3>C1>L1":    84,
		"L1>C3>L1>C1>L1": 90,
	}
	for k, v := range want {
		if seen[k] != v {
			t.Fatalf("%s: got %v want %v (all: %v)", k, seen[k], v, seen)
		}
	}
	best, err := Minimum(routes)
	if err != nil {
		t.Fatal(err)
	}
	if best.Cost != 84 || strings.Join(best.Stops, ">") != "L1>C3>C1>L1" {
		t.Fatalf("best %+v", best)
	}
}

func TestEnumerateDepthFirstOrder(t *testing.T) {
	routes, err := Enumerate(context.Background(), referenceProblem(t, Demand{"C1": 1, "C2": 1}))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range routes {
		got = append(got, strings.Join(r.Stops, ">"))
	}
	want := []string{"L1>C1>L1>C2>L1", "L1>C1>C2>L1", "L1>C2>L1>C1>L1", "L1>C2>C1>L1"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("order:\n got %v\nwant %v", got, want)
	}
}

func TestEnumerateMatchesRecursiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	centers := []string{"C1", "C2", "C3"}
	for i := 0; i < 50; i++ {
		d := Demand{}
		for _, c := range centers {
			if rng.Intn(3) > 0 {
				d[c] = float64(1 + rng.Intn(8))
			}
		}
		if len(d) == 0 {
			continue
		}
		p := referenceProblem(t, d)
		routes, err := Enumerate(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		costs := recursiveCosts(p)
		if len(costs) != len(routes) {
			t.Fatalf("%v: %d routes vs %d recursive", d, len(routes), len(costs))
		}
		for j := range costs {
			if math.Abs(costs[j]-routes[j].Cost) > 1e-9 {
				t.Fatalf("%v: route %d cost %v vs %v", d, j, routes[j].Cost, costs[j])
			}
		}
	}
}

func TestEnumerateStopsStructure(t *testing.T) {
	d := Demand{"C1": 2, "C2": 3, "C3": 4}
	routes, err := Enumerate(context.Background(), referenceProblem(t, d))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range routes {
		if r.Stops[0] != "L1" || r.Stops[len(r.Stops)-1] != "L1" {
			t.Fatalf("route must start and end at hub: %v", r.Stops)
		}
		visits := map[string]int{}
		for i, s := range r.Stops {
			if s == "L1" && i > 0 && r.Stops[i-1] == "L1" {
				t.Fatalf("consecutive hub stops: %v", r.Stops)
			}
			visits[s]++
		}
		for c := range d {
			if visits[c] != 1 {
				t.Fatalf("center %s visited %d times: %v", c, visits[c], r.Stops)
			}
		}
	}
}

func TestEnumerateDisconnected(t *testing.T) {
	p := Problem{
		Hub:    "H",
		Demand: Demand{"X": 1},
		Distance: func(a, b string) float64 {
			return math.Inf(1)
		},
		Tariff: tariff.Reference,
	}
	routes, err := Enumerate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Minimum(routes); !errors.Is(err, ErrNoRouteFound) {
		t.Fatalf("want ErrNoRouteFound, got %v", err)
	}
}

func TestEnumerateEmptyDemand(t *testing.T) {
	if _, err := Enumerate(context.Background(), referenceProblem(t, Demand{})); !errors.Is(err, ErrNoFulfillableDemand) {
		t.Fatalf("want ErrNoFulfillableDemand, got %v", err)
	}
}

func TestEnumerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Enumerate(ctx, referenceProblem(t, Demand{"C1": 1, "C2": 1})); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestMinimumKeepsFirstOnTie(t *testing.T) {
	best, err := Minimum([]Route{{Stops: []string{"a"}, Cost: 5}, {Stops: []string{"b"}, Cost: 3}, {Stops: []string{"c"}, Cost: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if best.Stops[0] != "b" {
		t.Fatalf("best %+v", best)
	}
}

func TestSearchMatchesEnumerate(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	centers := []string{"C1", "C2", "C3"}
	tariffs := []tariff.Tariff{tariff.Reference, {Threshold: 5, LowRate: 8, HighRate: 10}, {Threshold: 0, LowRate: 0, HighRate: 3}}
	for i := 0; i < 60; i++ {
		d := Demand{}
		for _, c := range centers {
			if rng.Intn(3) > 0 {
				d[c] = float64(1 + rng.Intn(8))
			}
		}
		if len(d) == 0 {
			continue
		}
		p := referenceProblem(t, d)
		p.Tariff = tariffs[i%len(tariffs)]
		routes, err := Enumerate(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		want, err := Minimum(routes)
		if err != nil {
			t.Fatal(err)
		}
		got, priced, err := Search(context.Background(), p)
		if err != nil {
			t.Fatal(err)
		}
		if got.Cost != want.Cost || strings.Join(got.Stops, ">") != strings.Join(want.Stops, ">") {
			t.Fatalf("%v %+v: search %+v, enumerate %+v", d, p.Tariff, got, want)
		}
		if priced < 1 || priced > len(routes) {
			t.Fatalf("%v: priced %d of %d routes", d, priced, len(routes))
		}
	}
}

func TestSearchKeepsEarliestTie(t *testing.T) {
	p := Problem{
		Hub:      "H",
		Demand:   Demand{"X": 1, "Y": 1},
		Distance: func(a, b string) float64 { return 1 },
		Tariff:   tariff.Tariff{Threshold: 10, LowRate: 1, HighRate: 1},
	}
	routes, err := Enumerate(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := Minimum(routes)
	got, _, err := Search(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(got.Stops, ">") != strings.Join(want.Stops, ">") || strings.Join(got.Stops, ">") != "H>X>Y>H" {
		t.Fatalf("got %v want %v", got.Stops, want.Stops)
	}
}

func TestSearchErrors(t *testing.T) {
	unreachable := Problem{
		Hub:      "H",
		Demand:   Demand{"X": 1},
		Distance: func(a, b string) float64 { return math.Inf(1) },
		Tariff:   tariff.Reference,
	}
	if _, _, err := Search(context.Background(), unreachable); !errors.Is(err, ErrNoRouteFound) {
		t.Fatalf("want ErrNoRouteFound, got %v", err)
	}
	if _, _, err := Search(context.Background(), referenceProblem(t, Demand{})); !errors.Is(err, ErrNoFulfillableDemand) {
		t.Fatalf("want ErrNoFulfillableDemand, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Search(ctx, referenceProblem(t, Demand{"C1": 1})); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
