// Package graph holds the immutable weighted road network between the hub and
// the fulfillment centers, plus shortest-path queries over it.
package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownNode is returned when a query names a node that is not in the graph.
var ErrUnknownNode = errors.New("graph: unknown node")

// Edge is an undirected weighted connection between two nodes.
type Edge struct {
	From   string  `yaml:"from" json:"from"`
	To     string  `yaml:"to" json:"to"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Graph is an undirected graph with strictly positive edge weights.
// It is never mutated after New returns.
type Graph struct {
	adj map[string]map[string]float64
}

// New builds a Graph from undirected edges. Each edge is stored in both
// directions so weights are symmetric.
func New(edges []Edge) (*Graph, error) {
	g := &Graph{adj: map[string]map[string]float64{}}
	for i, e := range edges {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("edge %d: empty node id", i)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("edge %d: self loop on %s", i, e.From)
		}
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight <= 0 {
			return nil, fmt.Errorf("edge %s-%s: weight must be positive, got %v", e.From, e.To, e.Weight)
		}
		if w, ok := g.adj[e.From][e.To]; ok && w != e.Weight {
			return nil, fmt.Errorf("edge %s-%s: conflicting weights %v and %v", e.From, e.To, w, e.Weight)
		}
		g.link(e.From, e.To, e.Weight)
		g.link(e.To, e.From, e.Weight)
	}
	return g, nil
}

func (g *Graph) link(a, b string, w float64) {
	if g.adj[a] == nil {
		g.adj[a] = map[string]float64{}
	}
	g.adj[a][b] = w
}

// Has reports whether n is a node of the graph.
func (g *Graph) Has(n string) bool {
	_, ok := g.adj[n]
	return ok
}

// Weight returns the direct edge weight between a and b.
func (g *Graph) Weight(a, b string) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// Neighbors returns the neighbors of n in sorted order.
func (g *Graph) Neighbors(n string) []string {
	out := make([]string, 0, len(g.adj[n]))
	for m := range g.adj[n] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns each undirected edge once, ordered by (From, To) with From < To.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, a := range g.Nodes() {
		for _, b := range g.Neighbors(a) {
			if a < b {
				out = append(out, Edge{From: a, To: b, Weight: g.adj[a][b]})
			}
		}
	}
	return out
}

// Reachable returns the set of nodes reachable from start, start included.
func (g *Graph) Reachable(start string) map[string]bool {
	seen := map[string]bool{}
	if !g.Has(start) {
		return seen
	}
	stack := []string{start}
	seen[start] = true
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for m := range g.adj[n] {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return seen
}
