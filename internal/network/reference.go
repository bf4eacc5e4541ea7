package network

import (
	"routecost/internal/graph"
	"routecost/internal/tariff"
)

// ReferenceConfig is the built-in network: three centers around hub L1.
func ReferenceConfig() Config {
	return Config{
		Hub: "L1",
		Edges: []graph.Edge{
			{From: "C1", To: "C2", Weight: 4},
			{From: "C1", To: "L1", Weight: 3},
			{From: "C2", To: "C3", Weight: 3},
			{From: "C2", To: "L1", Weight: 2.5},
			{From: "C3", To: "L1", Weight: 2},
		},
		Products: map[string]string{
			"A": "C1", "B": "C1", "C": "C1",
			"D": "C2", "E": "C2", "F": "C2",
			"G": "C3", "H": "C3", "I": "C3",
		},
		Tariff:          tariff.Reference,
		UnknownProducts: IgnoreUnknown,
		MaxCenters:      DefaultMaxCenters,
	}
}

// Reference builds the built-in network. It panics only if the literal above
// is invalid.
func Reference() *Network {
	n, err := ReferenceConfig().Build()
	if err != nil {
		panic(err)
	}
	return n
}
