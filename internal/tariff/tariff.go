// Package tariff prices a vehicle movement by distance and carried weight.
package tariff

import (
	"fmt"
	"math"
)

// Tariff charges LowRate per distance unit while the carried weight is at or
// below Threshold and HighRate once it is above.
type Tariff struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	LowRate   float64 `yaml:"low_rate" json:"lowRate"`
	HighRate  float64 `yaml:"high_rate" json:"highRate"`
}

// Reference is the tariff used by the built-in network.
var Reference = Tariff{Threshold: 5, LowRate: 10, HighRate: 8}

// Rate returns the per-distance rate for a carried weight. An empty vehicle
// pays the low rate.
func (t Tariff) Rate(carried float64) float64 {
	if carried > t.Threshold {
		return t.HighRate
	}
	return t.LowRate
}

// Cost prices moving distance units while carrying weight.
func (t Tariff) Cost(distance, carried float64) float64 {
	return distance * t.Rate(carried)
}

// MinRate returns the cheaper of the two rates.
func (t Tariff) MinRate() float64 {
	return math.Min(t.LowRate, t.HighRate)
}

// Validate rejects negative or non-finite constants. Fields are checked in
// declaration order and the first bad one is reported.
func (t Tariff) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"threshold", t.Threshold},
		{"low_rate", t.LowRate},
		{"high_rate", t.HighRate},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("tariff %s must be a non-negative number, got %v", f.name, f.value)
		}
	}
	return nil
}
