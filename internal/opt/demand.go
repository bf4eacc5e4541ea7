package opt

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"routecost/internal/network"
)

// Order maps product id to requested quantity.
type Order map[string]float64

// Demand maps center id to the total quantity to pick up there. Every value
// is positive.
type Demand map[string]float64

// Centers returns the demanded centers in sorted order.
func (d Demand) Centers() []string {
	out := make([]string, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Total returns the summed demand over all centers.
func (d Demand) Total() float64 {
	var t float64
	for _, c := range d.Centers() {
		t += d[c]
	}
	return t
}

// Key is a canonical string for the demand, e.g. "C1=3|C3=6".
func (d Demand) Key() string {
	parts := make([]string, 0, len(d))
	for _, c := range d.Centers() {
		parts = append(parts, c+"="+strconv.FormatFloat(d[c], 'g', -1, 64))
	}
	return strings.Join(parts, "|")
}

// Aggregate sums order quantities per center using the network's product
// table. Products missing from the table are skipped and returned sorted under
// the ignore policy, or rejected with *UnknownProductError under the reject
// policy. Centers whose total is zero are dropped.
func Aggregate(n *network.Network, order Order) (Demand, []string, error) {
	products := make([]string, 0, len(order))
	for p := range order {
		products = append(products, p)
	}
	sort.Strings(products)

	demand := Demand{}
	var ignored []string
	for _, p := range products {
		q := order[p]
		if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
			return nil, nil, fmt.Errorf("%w: product %q has quantity %v", ErrInvalidQuantity, p, q)
		}
		center, ok := n.Center(p)
		if !ok {
			if n.UnknownProducts == network.RejectUnknown {
				return nil, nil, &UnknownProductError{Product: p}
			}
			ignored = append(ignored, p)
			continue
		}
		demand[center] += q
	}
	for c, q := range demand {
		if q <= 0 {
			delete(demand, c)
		}
	}
	if len(demand) == 0 {
		return nil, ignored, ErrNoFulfillableDemand
	}
	return demand, ignored, nil
}
