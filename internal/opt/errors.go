package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFulfillableDemand means no center has positive demand for the order.
	ErrNoFulfillableDemand = errors.New("no fulfillable demand")
	// ErrNoRouteFound means the search completed without a single route,
	// which points at a disconnected network.
	ErrNoRouteFound = errors.New("no route found")
	// ErrUnknownProduct is matched by UnknownProductError.
	ErrUnknownProduct = errors.New("unknown product")
	// ErrInvalidQuantity is returned for negative or non-finite quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrTooManyCenters is returned when the order spans more centers than
	// the network allows per computation.
	ErrTooManyCenters = errors.New("too many centers")
)

// UnknownProductError names the first product missing from the product table
// when the network rejects unknown products.
type UnknownProductError struct {
	Product string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %q", e.Product)
}

// Is lets errors.Is(err, ErrUnknownProduct) match.
func (e *UnknownProductError) Is(target error) bool { return target == ErrUnknownProduct }
