package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/TMind/SolMDb/internal/deck"
	"github.com/TMind/SolMDb/internal/synergy"
)

func beastRegistry(t *testing.T) *synergy.Registry {
	t.Helper()
	reg, err := synergy.NewRegistry([]synergy.Rule{
		{Name: "BEAST", Weight: 1.0, SourceTags: []string{"Beast"}, TargetTags: []string{"Beast Synergy"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg
}

func card(name string, tags ...deck.TagRecord) deck.CardRecord {
	return deck.CardRecord{Name: name, CardType: "Creature", Tags: tags}
}

func tag(name string, value int) deck.TagRecord {
	return deck.TagRecord{Name: name, Value: value}
}

func buildGraph(t *testing.T, reg *synergy.Registry, v deck.Variant) (*Graph, *deck.View) {
	t.Helper()
	view, err := deck.Flatten(reg, v)
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	g, err := NewBuilder(nil).Build(view)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g, view
}

func TestBuild_TwoCardBeast(t *testing.T) {
	reg := beastRegistry(t)
	rec := deck.Record{
		Name:    "Pack",
		Faction: "Uterra",
		Cards: []deck.CardRecord{
			card("X", tag("Beast", 1)),
			card("Y", tag("Beast Synergy", 1)),
		},
	}

	g, _ := buildGraph(t, reg, deck.Single{Deck: rec})

	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount() = %d, want 1: %+v", g.EdgeCount(), g.Edges())
	}
	e, ok := g.Edge("X", "Y")
	if !ok {
		t.Fatal("missing edge X->Y")
	}
	if e.Label != "BEAST" || e.Weight != 1 {
		t.Errorf("edge = %+v, want label BEAST weight 1", e)
	}
	if !e.Local {
		t.Error("edge between cards of one faction should be local")
	}
	if len(g.Unmatched()) != 0 {
		t.Errorf("Unmatched() = %v, want empty", g.Unmatched())
	}
	if g.Matched()["BEAST"] != 1 {
		t.Errorf("Matched()[BEAST] = %d, want 1", g.Matched()["BEAST"])
	}
}

func TestBuild_LoneInput(t *testing.T) {
	reg := beastRegistry(t)
	rec := deck.Record{
		Name:    "Lonely",
		Faction: "Uterra",
		Cards:   []deck.CardRecord{card("Tamer", tag("Beast Synergy", 2))},
	}

	g, _ := buildGraph(t, reg, deck.Single{Deck: rec})

	if got := g.EdgesForSynergy("BEAST"); len(got) != 0 {
		t.Errorf("BEAST edges = %v, want none", got)
	}
	un := g.Unmatched()
	if un["BEAST"]["Tamer"] != 2 {
		t.Errorf("Unmatched()[BEAST][Tamer] = %d, want 2", un["BEAST"]["Tamer"])
	}
}

func TestBuild_SelfLoopAndAbilities(t *testing.T) {
	reg, err := synergy.NewRegistry([]synergy.Rule{
		{Name: "BEAST", Weight: 1.0, SourceTags: []string{"Beast"}, TargetTags: []string{"Beast Synergy"}},
		{Name: "PACK", Weight: 1.0, SourceTags: []string{"Pack"}, TargetTags: []string{"Pack"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	rec := deck.Record{
		Name:    "Loop",
		Faction: "Uterra",
		Cards: []deck.CardRecord{
			card("Alpha", tag("Beast", 1), tag("Pack", 1)),
			card("Rock"),
		},
		ActiveAbilities: []deck.AbilityRecord{
			{Name: "Howl", Tags: []deck.TagRecord{tag("Beast Synergy", 1), tag("Pack", 1)}},
			{Name: "Feral", Tags: []deck.TagRecord{tag("Pack", 1)}},
		},
	}

	g, view := buildGraph(t, reg, deck.Single{Deck: rec})

	if len(view.Entities()) != 4 {
		t.Fatalf("entities = %d, want 4", len(view.Entities()))
	}
	if e, ok := g.Edge("Alpha", "Alpha"); !ok || e.Label != "PACK" || e.Weight != 1 {
		t.Errorf("self loop = %+v, %v; want PACK weight 1", e, ok)
	}
	if e, ok := g.Edge("Alpha", "ability:Howl"); !ok || e.Weight != 2 {
		t.Errorf("card->ability edge Alpha->Howl = %+v, %v; want weight 2", e, ok)
	}
	if _, ok := g.Edge("ability:Feral", "Alpha"); !ok {
		t.Error("missing ability->card edge Feral->Alpha")
	}
	// abilities are never matched against each other
	if _, ok := g.Edge("ability:Feral", "ability:Howl"); ok {
		t.Error("unexpected ability->ability edge")
	}
	if len(g.Nodes()) != 4 {
		t.Errorf("nodes = %d, want 4", len(g.Nodes()))
	}
	// Rock declares nothing and takes part in no edge
	for _, e := range g.Edges() {
		if e.Source == "Rock" || e.Target == "Rock" {
			t.Errorf("unexpected edge touching Rock: %+v", e)
		}
	}
}

func TestBuild_MultiTagOwnerCountsOnce(t *testing.T) {
	reg, err := synergy.NewRegistry([]synergy.Rule{
		{Name: "MINION", Weight: 1.0, SourceTags: []string{"Minion", "Summon"}, TargetTags: []string{"Minion Synergy"}},
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	rec := deck.Record{
		Name:    "Horde",
		Faction: "Nekrium",
		Cards: []deck.CardRecord{
			card("X", tag("Minion", 1), tag("Summon", 1)),
			card("Y", tag("Minion Synergy", 1)),
		},
	}

	g, view := buildGraph(t, reg, deck.Single{Deck: rec})

	e, ok := g.Edge("X", "Y")
	if !ok {
		t.Fatal("missing edge X->Y")
	}
	if e.Weight != 1 {
		t.Errorf("edge weight = %d, want 1", e.Weight)
	}
	if g.Matched()["MINION"] != 1 {
		t.Errorf("Matched()[MINION] = %d, want 1", g.Matched()["MINION"])
	}
	if got := view.Cards[0].Collection.Interfaces("MINION"); len(got) != 1 {
		t.Errorf("X MINION bucket size = %d, want 1", len(got))
	}
	if g.PairWeight("X", "Y") != 1 {
		t.Errorf("PairWeight(X, Y) = %d, want 1", g.PairWeight("X", "Y"))
	}
}

func TestBuild_AbilityNamedLikeCard(t *testing.T) {
	reg := beastRegistry(t)
	rec := deck.Record{
		Name:    "Echo",
		Faction: "Uterra",
		Cards: []deck.CardRecord{
			card("Wolf", tag("Beast", 1)),
		},
		ActiveAbilities: []deck.AbilityRecord{
			{Name: "Wolf", Tags: []deck.TagRecord{tag("Beast Synergy", 1)}},
		},
	}

	g, view := buildGraph(t, reg, deck.Single{Deck: rec})

	if len(view.Duplicates) != 0 {
		t.Errorf("Duplicates = %v, want none", view.Duplicates)
	}
	if len(g.Nodes()) != 2 {
		t.Errorf("nodes = %d, want 2", len(g.Nodes()))
	}
	if e, ok := g.Edge("Wolf", "ability:Wolf"); !ok || e.Weight != 1 {
		t.Errorf("edge Wolf->ability:Wolf = %+v, %v; want weight 1", e, ok)
	}
	if len(g.Unmatched()) != 0 {
		t.Errorf("Unmatched() = %v, want empty", g.Unmatched())
	}
}

func TestBuild_LocalFlagInFusion(t *testing.T) {
	reg := beastRegistry(t)
	a := deck.Record{Name: "A", Faction: "Uterra", Cards: []deck.CardRecord{card("Wolf", tag("Beast", 1))}}
	b := deck.Record{Name: "B", Faction: "Nekrium", Cards: []deck.CardRecord{card("Necro", tag("Beast Synergy", 1))}}
	f, err := deck.NewFused("", a, b, deck.SideA, nil)
	if err != nil {
		t.Fatalf("NewFused() error = %v", err)
	}

	g, _ := buildGraph(t, reg, f)
	e, ok := g.Edge("Wolf", "Necro")
	if !ok {
		t.Fatal("missing edge Wolf->Necro")
	}
	if e.Local {
		t.Error("edge across factions should not be local")
	}
	if g.LocalRatio() != 0 {
		t.Errorf("LocalRatio() = %v, want 0", g.LocalRatio())
	}
}

func TestBuild_LabelJoinsSynergies(t *testing.T) {
	reg := synergy.DefaultRegistry()
	rec := deck.Record{
		Name:    "Multi",
		Faction: "Tempys",
		Cards: []deck.CardRecord{
			card("Storm Drake", tag("Dragon", 1), tag("Spell", 1)),
			card("Archmage", tag("Dragon Synergy", 1), tag("Spell Synergy", 2)),
		},
	}

	g, _ := buildGraph(t, reg, deck.Single{Deck: rec})
	e, ok := g.Edge("Storm Drake", "Archmage")
	if !ok {
		t.Fatal("missing edge")
	}
	if e.Label != "DRAGON,SPELL" {
		t.Errorf("Label = %q, want DRAGON,SPELL", e.Label)
	}
	if e.Weight != 2 {
		t.Errorf("Weight = %d, want 2", e.Weight)
	}
}

func TestBuild_PairWeightEqualsMatchTotals(t *testing.T) {
	reg := synergy.DefaultRegistry()
	rec := deck.Record{
		Name:    "Mixed",
		Faction: "Alloyin",
		Cards: []deck.CardRecord{
			card("Bolt", tag("Spell", 1), tag("Robot Synergy", 1)),
			card("Drone", tag("Robot", 1), tag("Spell Synergy", 1), tag("Upgrade", 1)),
			card("Forge", tag("Upgrade Synergy", 1), tag("Robot", 1)),
			card("Scrap", tag("Robot Synergy", 1), tag("Healing Synergy", 1)),
		},
		ActiveAbilities: []deck.AbilityRecord{
			{Name: "Overclock", Tags: []deck.TagRecord{tag("Spell", 1)}},
		},
	}

	g, view := buildGraph(t, reg, deck.Single{Deck: rec})

	ents := view.Entities()
	for i, a := range ents {
		for _, b := range ents[i+1:] {
			if a.Kind == deck.EntityAbility && b.Kind == deck.EntityAbility {
				continue
			}
			want := synergy.Match(a.Collection, b.Collection).Total() +
				synergy.Match(b.Collection, a.Collection).Total()
			if got := g.PairWeight(a.ID, b.ID); got != want {
				t.Errorf("PairWeight(%s, %s) = %d, want %d", a.ID, b.ID, got, want)
			}
		}
	}

	matched := g.Matched()
	for name := range g.Unmatched() {
		if _, ok := matched[name]; ok {
			t.Errorf("synergy %s is both matched and unmatched", name)
		}
	}
	if _, ok := g.Unmatched()["HEALING"]; !ok {
		t.Error("HEALING should remain unmatched")
	}
}

func TestBuild_Empty(t *testing.T) {
	if _, err := NewBuilder(nil).Build(nil); !errors.Is(err, deck.ErrEmptyDeck) {
		t.Errorf("Build(nil) error = %v, want ErrEmptyDeck", err)
	}
	if _, err := NewBuilder(nil).Build(&deck.View{}); !errors.Is(err, deck.ErrEmptyDeck) {
		t.Errorf("Build(empty) error = %v, want ErrEmptyDeck", err)
	}
}

func TestGraph_Export(t *testing.T) {
	reg := beastRegistry(t)
	rec := deck.Record{
		Name:    "Pack",
		Faction: "Uterra",
		Cards: []deck.CardRecord{
			card("X", tag("Beast", 1)),
			card("Y", tag("Beast Synergy", 1)),
		},
	}
	g, _ := buildGraph(t, reg, deck.Single{Deck: rec})

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var exp Export
	if err := json.Unmarshal(data, &exp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(exp.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(exp.Nodes))
	}
	attrs, ok := exp.Edges["X"]["Y"]
	if !ok {
		t.Fatalf("missing exported edge X->Y in %s", data)
	}
	if attrs.Label != "BEAST" || attrs.Weight != 1 || !attrs.Local {
		t.Errorf("edge attrs = %+v", attrs)
	}
	if exp.Nodes["X"].Faction != "Uterra" {
		t.Errorf("node X faction = %q", exp.Nodes["X"].Faction)
	}
}
