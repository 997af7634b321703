package deck

import (
	"fmt"
	"strings"
)

// Kind names a deck variant.
type Kind string

const (
	KindSingle Kind = "single"
	KindFused  Kind = "fused"
)

// Side selects one half of a fusion.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideB {
		return "b"
	}
	return "a"
}

// ParseSide accepts "a"/"b" (any case) or an empty string for side A.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "a":
		return SideA, nil
	case "b":
		return SideB, nil
	}
	return SideA, fmt.Errorf("invalid fusion side %q", s)
}

// Variant is either a Single deck or a Fused pair of decks. Graph construction
// and evaluation only see the flattened View.
type Variant interface {
	Kind() Kind
	DeckName() string
	// Members returns the decks whose cards take part, in order.
	Members() []Record
	// Abilities returns the active forgeborn abilities with their faction.
	Abilities() []FactionAbility
}

// FactionAbility is an active ability together with the faction it plays for.
type FactionAbility struct {
	Faction string
	Ability AbilityRecord
}

// Single is a plain one-faction deck.
type Single struct {
	Deck Record
}

func (s Single) Kind() Kind { return KindSingle }
func (s Single) DeckName() string { return s.Deck.Name }
func (s Single) Members() []Record { return []Record{s.Deck} }

func (s Single) Abilities() []FactionAbility {
	out := make([]FactionAbility, 0, len(s.Deck.ActiveAbilities))
	for _, ab := range s.Deck.ActiveAbilities {
		out = append(out, FactionAbility{Faction: factionOf(ab.Faction, s.Deck.Faction), Ability: ab})
	}
	return out
}

// Fused combines two decks of different factions. Only the active side's
// forgeborn abilities apply; Inspiration optionally adds one ability taken
// from the other side's forgeborn.
type Fused struct {
	Name        string
	A, B        Record
	ActiveSide  Side
	Inspiration *AbilityRecord
}

// NewFused validates and builds a fusion. An empty name becomes "A|B".
func NewFused(name string, a, b Record, active Side, inspiration *AbilityRecord) (Fused, error) {
	if a.Faction != "" && a.Faction == b.Faction {
		return Fused{}, fmt.Errorf("cannot fuse %q and %q: both are %s", a.Name, b.Name, a.Faction)
	}
	if name == "" {
		name = a.Name + "|" + b.Name
	}
	if inspiration != nil {
		other := b
		if active == SideB {
			other = a
		}
		found := false
		for _, ab := range other.ActiveAbilities {
			if ab.Name == inspiration.Name {
				found = true
				break
			}
		}
		if !found {
			return Fused{}, fmt.Errorf("inspiration %q is not an ability of %q", inspiration.Name, other.Name)
		}
	}
	return Fused{Name: name, A: a, B: b, ActiveSide: active, Inspiration: inspiration}, nil
}

func (f Fused) Kind() Kind { return KindFused }
func (f Fused) DeckName() string { return f.Name }
func (f Fused) Members() []Record { return []Record{f.A, f.B} }

func (f Fused) Abilities() []FactionAbility {
	active, other := f.A, f.B
	if f.ActiveSide == SideB {
		active, other = f.B, f.A
	}

	out := make([]FactionAbility, 0, len(active.ActiveAbilities)+1)
	for _, ab := range active.ActiveAbilities {
		out = append(out, FactionAbility{Faction: factionOf(ab.Faction, active.Faction), Ability: ab})
	}
	if f.Inspiration != nil {
		out = append(out, FactionAbility{
			Faction: factionOf(f.Inspiration.Faction, other.Faction),
			Ability: *f.Inspiration,
		})
	}
	return out
}

// Faction joins the member factions, e.g. "Alloyin|Nekrium".
func Faction(v Variant) string {
	members := v.Members()
	factions := make([]string, 0, len(members))
	for _, m := range members {
		factions = append(factions, m.Faction)
	}
	return strings.Join(factions, "|")
}

func factionOf(own, fallback string) string {
	if own != "" {
		return own
	}
	return fallback
}
