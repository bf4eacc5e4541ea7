// Package network loads and validates the immutable delivery network: the
// road graph, the hub, the product to center table and the tariff.
package network

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"routecost/internal/graph"
	"routecost/internal/tariff"
)

// Unknown product policies.
const (
	IgnoreUnknown = "ignore"
	RejectUnknown = "reject"
)

// DefaultMaxCenters bounds the number of demanded centers per computation.
const DefaultMaxCenters = 8

// Config is the on-disk form of a network.
type Config struct {
	Hub             string            `yaml:"hub"`
	Edges           []graph.Edge      `yaml:"edges"`
	Products        map[string]string `yaml:"products"`
	Tariff          tariff.Tariff     `yaml:"tariff"`
	UnknownProducts string            `yaml:"unknown_products"`
	MaxCenters      int               `yaml:"max_centers"`
}

// Network is a validated, read-only Config. It is shared by every computation.
type Network struct {
	Graph           *graph.Graph
	Hub             string
	Tariff          tariff.Tariff
	UnknownProducts string
	MaxCenters      int

	products    map[string]string
	centers     []string
	fingerprint string
}

// Load reads a YAML network file.
func Load(path string) (*Network, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network config: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML network document.
func Parse(data []byte) (*Network, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse network config: %w", err)
	}
	return c.Build()
}

// Build validates the config and returns the immutable Network.
func (c Config) Build() (*Network, error) {
	g, err := graph.New(c.Edges)
	if err != nil {
		return nil, fmt.Errorf("network graph: %w", err)
	}
	if c.Hub == "" {
		return nil, fmt.Errorf("network: hub is required")
	}
	if !g.Has(c.Hub) {
		return nil, fmt.Errorf("network: hub %q is not a graph node", c.Hub)
	}
	reach := g.Reachable(c.Hub)
	for _, n := range g.Nodes() {
		if !reach[n] {
			return nil, fmt.Errorf("network: node %q is not reachable from hub %q", n, c.Hub)
		}
	}
	if err := c.Tariff.Validate(); err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}

	policy := strings.ToLower(strings.TrimSpace(c.UnknownProducts))
	switch policy {
	case "":
		policy = IgnoreUnknown
	case IgnoreUnknown, RejectUnknown:
	default:
		return nil, fmt.Errorf("network: unknown_products must be %q or %q, got %q", IgnoreUnknown, RejectUnknown, c.UnknownProducts)
	}
	maxCenters := c.MaxCenters
	if maxCenters < 0 {
		return nil, fmt.Errorf("network: max_centers must be >= 0")
	}
	if maxCenters == 0 {
		maxCenters = DefaultMaxCenters
	}

	products := make(map[string]string, len(c.Products))
	seen := map[string]bool{}
	for p, center := range c.Products {
		if p == "" {
			return nil, fmt.Errorf("network: empty product id")
		}
		if center == c.Hub {
			return nil, fmt.Errorf("network: product %q is mapped to the hub", p)
		}
		if !g.Has(center) {
			return nil, fmt.Errorf("network: product %q maps to unknown center %q", p, center)
		}
		products[p] = center
		seen[center] = true
	}
	centers := make([]string, 0, len(seen))
	for id := range seen {
		centers = append(centers, id)
	}
	sort.Strings(centers)

	n := &Network{
		Graph:           g,
		Hub:             c.Hub,
		Tariff:          c.Tariff,
		UnknownProducts: policy,
		MaxCenters:      maxCenters,
		products:        products,
		centers:         centers,
	}
	n.fingerprint = n.computeFingerprint()
	return n, nil
}

// Center returns the center that stocks product.
func (n *Network) Center(product string) (string, bool) {
	c, ok := n.products[product]
	return c, ok
}

// Centers returns every center referenced by the product table, sorted.
func (n *Network) Centers() []string { return append([]string(nil), n.centers...) }

// Products returns a copy of the product to center table.
func (n *Network) Products() map[string]string {
	out := make(map[string]string, len(n.products))
	for k, v := range n.products {
		out[k] = v
	}
	return out
}

// WithPolicy returns a copy of n using a different unknown product policy.
func (n *Network) WithPolicy(policy string) (*Network, error) {
	policy = strings.ToLower(strings.TrimSpace(policy))
	if policy != IgnoreUnknown && policy != RejectUnknown {
		return nil, fmt.Errorf("network: unknown product policy %q", policy)
	}
	cp := *n
	cp.UnknownProducts = policy
	return &cp, nil
}

// WithMaxCenters returns a copy of n with a different center cap.
func (n *Network) WithMaxCenters(max int) *Network {
	cp := *n
	if max > 0 {
		cp.MaxCenters = max
	}
	return &cp
}

// Fingerprint identifies the pricing inputs of the network. Two networks with
// the same fingerprint produce the same cost for the same demand.
func (n *Network) Fingerprint() string { return n.fingerprint }

func (n *Network) computeFingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hub=%s;", n.Hub)
	for _, e := range n.Graph.Edges() {
		fmt.Fprintf(&b, "%s-%s=%g;", e.From, e.To, e.Weight)
	}
	fmt.Fprintf(&b, "t=%g/%g/%g", n.Tariff.Threshold, n.Tariff.LowRate, n.Tariff.HighRate)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
