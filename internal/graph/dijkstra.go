package graph

import (
	"container/heap"
	"fmt"
	"math"
)

// ShortestDistances runs Dijkstra from start and returns the distance to every
// node. Nodes that cannot be reached keep +Inf.
func (g *Graph) ShortestDistances(start string) (map[string]float64, error) {
	if !g.Has(start) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, start)
	}
	dist := make(map[string]float64, len(g.adj))
	for n := range g.adj {
		dist[n] = math.Inf(1)
	}
	dist[start] = 0

	visited := make(map[string]bool, len(g.adj))
	pq := &frontier{}
	heap.Init(pq)
	heap.Push(pq, &frontierItem{node: start, dist: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*frontierItem)
		if visited[item.node] {
			continue
		}
		visited[item.node] = true
		for next, w := range g.adj[item.node] {
			alt := item.dist + w
			if alt < dist[next] {
				dist[next] = alt
				heap.Push(pq, &frontierItem{node: next, dist: alt})
			}
		}
	}
	return dist, nil
}

// ShortestDistance returns the shortest path distance from start to end.
// An unreachable end yields +Inf with a nil error.
func (g *Graph) ShortestDistance(start, end string) (float64, error) {
	if !g.Has(end) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNode, end)
	}
	dist, err := g.ShortestDistances(start)
	if err != nil {
		return 0, err
	}
	return dist[end], nil
}

type frontierItem struct {
	node string
	dist float64
}

// frontier is a min-heap on tentative distance, ties broken by node id so
// extraction order is total.
type frontier []*frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].node < f[j].node
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x interface{}) {
	*f = append(*f, x.(*frontierItem))
}

func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
