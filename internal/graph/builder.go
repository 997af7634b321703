package graph

import (
	"log/slog"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/synergy"
)

// Builder turns a flattened deck into a Graph. A Builder holds no per-deck
// state and may be shared between goroutines.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger uses slog.Default().
func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger.With(slog.String("component", "graph"))}
}

// build is the mutable state of one Build call. It never escapes Build.
type build struct {
	g *Graph
}

// Build matches every card with itself, every card with every active ability in
// both directions, and every unordered pair of distinct cards in both
// directions. Synergies that matched anywhere are then removed from the
// unmatched tally.
func (b *Builder) Build(view *deck.View) (*Graph, error) {
	if view == nil || view.Len() == 0 {
		return nil, deck.ErrEmptyDeck
	}

	st := &build{g: &Graph{
		name:      view.Name,
		nodes:     make(map[string]*Node, view.Len()),
		edges:     make(map[string]map[string]*Edge),
		matched:   make(map[string]int),
		unmatched: make(Tally),
	}}

	for _, ent := range view.Entities() {
		st.addNode(ent)
	}

	// self and ability phase
	for _, c := range view.Cards {
		st.match(c, c)
		for _, ab := range view.Abilities {
			st.match(c, ab)
			st.match(ab, c)
		}
	}

	// pairwise phase
	for i := 0; i < len(view.Cards); i++ {
		for j := i + 1; j < len(view.Cards); j++ {
			c1, c2 := view.Cards[i], view.Cards[j]
			st.match(c1, c2)
			st.match(c2, c1)
		}
	}

	// cancellation
	for name := range st.g.matched {
		delete(st.g.unmatched, name)
	}

	b.logger.Debug("graph built",
		slog.String("deck", view.Name),
		slog.Int("nodes", len(st.g.nodes)),
		slog.Int("edges", len(st.g.edgeList)),
		slog.Int("matched_synergies", len(st.g.matched)),
		slog.Int("unmatched_synergies", len(st.g.unmatched)),
	)

	return st.g, nil
}

func (st *build) addNode(ent *deck.Entity) {
	var names []string
	if !ent.Collection.Empty() {
		names = ent.Collection.Synergies()
	}
	st.g.nodes[ent.ID] = &Node{
		ID:          ent.ID,
		Name:        ent.Name,
		Faction:     ent.Faction,
		Kind:        ent.Kind,
		CardType:    ent.CardType,
		CardSubtype: ent.CardSubtype,
		Synergies:   names,
	}
	st.g.nodeOrder = append(st.g.nodeOrder, ent.ID)
}

func (st *build) match(src, dst *deck.Entity) {
	if src.Collection.Empty() {
		return
	}
	res := synergy.Match(src.Collection, dst.Collection)

	for name, owners := range res.Misses {
		st.g.unmatched.record(name, owners)
	}
	if !res.Matched() {
		return
	}

	counts := make([]SynergyCount, 0, len(res.Order))
	for _, name := range res.Order {
		n := res.Matches[name]
		counts = append(counts, SynergyCount{Name: name, Count: n})
		st.g.matched[name] += n
	}

	edge := &Edge{
		Source:    src.ID,
		Target:    dst.ID,
		Label:     label(counts),
		Weight:    res.Total(),
		Local:     src.Faction == dst.Faction,
		Synergies: counts,
	}
	targets, ok := st.g.edges[src.ID]
	if !ok {
		targets = make(map[string]*Edge)
		st.g.edges[src.ID] = targets
	}
	targets[dst.ID] = edge
	st.g.edgeList = append(st.g.edgeList, edge)
}
