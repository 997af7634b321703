// Package graph builds the directed synergy graph of a deck.
package graph

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/TMind/SolMDb/internal/deck"
)

// SynergyCount is one matched synergy on an edge.
type SynergyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Edge is a matched synergy edge from Source (outputs) to Target (inputs).
type Edge struct {
	Source    string
	Target    string
	Label     string
	Weight    int
	Local     bool
	Synergies []SynergyCount
}

// Node carries the attributes of one entity.
type Node struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Faction     string          `json:"faction"`
	Kind        deck.EntityKind `json:"kind"`
	CardType    string          `json:"card_type,omitempty"`
	CardSubtype string          `json:"card_subtype,omitempty"`
	Synergies   []string        `json:"synergies,omitempty"`
}

// Tally maps synergy name to owner to value.
type Tally map[string]map[string]int

// record stores owners' missed values. An owner misses with the same value in
// every call it takes part in, so repeated records overwrite.
func (t Tally) record(synergy string, owners map[string]int) {
	if len(owners) == 0 {
		return
	}
	bucket, ok := t[synergy]
	if !ok {
		bucket = make(map[string]int, len(owners))
		t[synergy] = bucket
	}
	for owner, v := range owners {
		bucket[owner] = v
	}
}

func (t Tally) clone() Tally {
	out := make(Tally, len(t))
	for name, bucket := range t {
		b := make(map[string]int, len(bucket))
		for k, v := range bucket {
			b[k] = v
		}
		out[name] = b
	}
	return out
}

// Names returns the synergy names in the tally, sorted.
func (t Tally) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Graph is the finished, read-only synergy graph of one deck.
type Graph struct {
	name      string
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]map[string]*Edge
	edgeList  []*Edge
	matched   map[string]int
	unmatched Tally
}

// Name returns the deck name the graph was built for.
func (g *Graph) Name() string {
	return g.name
}

// Nodes returns the nodes in deck order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Node returns one node by id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edges returns every edge in construction order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeList))
	for _, e := range g.edgeList {
		out = append(out, copyEdge(e))
	}
	return out
}

// Edge returns the edge from source to target.
func (g *Graph) Edge(source, target string) (Edge, bool) {
	e, ok := g.edges[source][target]
	if !ok {
		return Edge{}, false
	}
	return copyEdge(e), true
}

// PairWeight sums the weights of a->b and b->a. For a self pair it returns the
// self-loop weight.
func (g *Graph) PairWeight(a, b string) int {
	w := 0
	if e, ok := g.edges[a][b]; ok {
		w += e.Weight
	}
	if a == b {
		return w
	}
	if e, ok := g.edges[b][a]; ok {
		w += e.Weight
	}
	return w
}

// EdgesForSynergy returns the edges whose label includes name.
func (g *Graph) EdgesForSynergy(name string) []Edge {
	var out []Edge
	for _, e := range g.edgeList {
		for _, s := range e.Synergies {
			if s.Name == name {
				out = append(out, copyEdge(e))
				break
			}
		}
	}
	return out
}

// Matched returns the deck-wide matched count per synergy.
func (g *Graph) Matched() map[string]int {
	out := make(map[string]int, len(g.matched))
	for k, v := range g.matched {
		out[k] = v
	}
	return out
}

// Unmatched returns the unmatched tally after cancellation.
func (g *Graph) Unmatched() Tally {
	return g.unmatched.clone()
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edgeList)
}

// LocalRatio is the share of edge weight between entities of the same faction.
func (g *Graph) LocalRatio() float64 {
	total, local := 0, 0
	for _, e := range g.edgeList {
		total += e.Weight
		if e.Local {
			local += e.Weight
		}
	}
	if total == 0 {
		return 0
	}
	return float64(local) / float64(total)
}

// EdgeAttrs is the exported form of an edge.
type EdgeAttrs struct {
	Label  string `json:"label"`
	Weight int    `json:"weight"`
	Local  bool   `json:"is_local"`
}

// Export is the plain nested-mapping form of a graph.
type Export struct {
	Nodes map[string]Node                 `json:"nodes"`
	Edges map[string]map[string]EdgeAttrs `json:"edges"`
}

// Export returns the serializable form of g.
func (g *Graph) Export() Export {
	exp := Export{
		Nodes: make(map[string]Node, len(g.nodes)),
		Edges: make(map[string]map[string]EdgeAttrs, len(g.edges)),
	}
	for id, n := range g.nodes {
		exp.Nodes[id] = *n
	}
	for src, targets := range g.edges {
		m := make(map[string]EdgeAttrs, len(targets))
		for dst, e := range targets {
			m[dst] = EdgeAttrs{Label: e.Label, Weight: e.Weight, Local: e.Local}
		}
		exp.Edges[src] = m
	}
	return exp
}

// MarshalJSON encodes the exported form.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Export())
}

func copyEdge(e *Edge) Edge {
	out := *e
	out.Synergies = append([]SynergyCount(nil), e.Synergies...)
	return out
}

func label(counts []SynergyCount) string {
	names := make([]string, 0, len(counts))
	for _, c := range counts {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}
