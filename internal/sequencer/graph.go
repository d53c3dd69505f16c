package sequencer

import (
	"fmt"

	"github.com/okian/fielddisplay/internal/domain/screen"
)

// Edge is a directed pair of screens.
type Edge struct {
	From screen.Screen
	To   screen.Screen
}

// Graph is an immutable set of transition edges in which every screen is
// connected to and from the blank hub.
type Graph struct {
	edges map[Edge]Spec
}

// NewGraph copies edges and validates them. Every screen other than the
// hub must have an edge to and from screen.Blank.
func NewGraph(edges map[Edge]Spec) (*Graph, error) {
	g := &Graph{edges: make(map[Edge]Spec, len(edges))}
	for e, spec := range edges {
		if !e.From.Valid() || !e.To.Valid() {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, screen.ErrUnknownScreen)
		}
		if e.From == e.To {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, ErrSelfEdge)
		}
		g.edges[e] = Spec{Steps: append([]Step(nil), spec.Steps...)}
	}

	for _, s := range screen.All() {
		if s == screen.Blank {
			continue
		}
		if _, ok := g.edges[Edge{From: s, To: screen.Blank}]; !ok {
			return nil, fmt.Errorf("%w: %s->%s", ErrMissingHubEdge, s, screen.Blank)
		}
		if _, ok := g.edges[Edge{From: screen.Blank, To: s}]; !ok {
			return nil, fmt.Errorf("%w: %s->%s", ErrMissingHubEdge, screen.Blank, s)
		}
	}
	return g, nil
}

// Lookup returns the direct edge from -> to, if one exists.
func (g *Graph) Lookup(from, to screen.Screen) (Spec, bool) {
	spec, ok := g.edges[Edge{From: from, To: to}]
	return spec, ok
}

// Route returns the hops needed to go from -> to: none when they are equal,
// one for a direct edge, otherwise two through the blank hub.
func (g *Graph) Route(from, to screen.Screen) []Hop {
	if from == to {
		return nil
	}
	if spec, ok := g.Lookup(from, to); ok {
		return []Hop{{From: from, To: to, Spec: spec}}
	}
	out, _ := g.Lookup(from, screen.Blank)
	in, _ := g.Lookup(screen.Blank, to)
	return []Hop{
		{From: from, To: screen.Blank, Spec: out},
		{From: screen.Blank, To: to, Spec: in},
	}
}

// Len returns the number of direct edges.
func (g *Graph) Len() int {
	return len(g.edges)
}
