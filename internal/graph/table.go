package graph

import "math"

// Table memoizes single-source shortest distances for one computation.
// It is not safe for concurrent use; create one per computation.
type Table struct {
	g    *Graph
	rows map[string]map[string]float64
}

// NewTable returns an empty Table over g.
func NewTable(g *Graph) *Table {
	return &Table{g: g, rows: map[string]map[string]float64{}}
}

// Distance returns the shortest distance from a to b. Unknown nodes and
// unreachable pairs report +Inf.
func (t *Table) Distance(a, b string) float64 {
	row, ok := t.rows[a]
	if !ok {
		d, err := t.g.ShortestDistances(a)
		if err != nil {
			d = map[string]float64{}
		}
		t.rows[a] = d
		row = d
	}
	if d, ok := row[b]; ok {
		return d
	}
	return math.Inf(1)
}

// Sources reports how many single-source runs the table has performed.
func (t *Table) Sources() int { return len(t.rows) }
