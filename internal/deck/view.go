package deck

import (
	"github.com/TMind/SolMDb/internal/synergy"
)

// EntityKind tells cards and forgeborn abilities apart.
type EntityKind string

const (
	EntityCard    EntityKind = "card"
	EntityAbility EntityKind = "ability"
)

// entityID is the graph node ID of an entity. Ability IDs carry a prefix so
// an ability never shares a node with a card of the same name.
func entityID(kind EntityKind, name string) string {
	if kind == EntityAbility {
		return string(EntityAbility) + ":" + name
	}
	return name
}

// Entity is one graph node: a card or an active ability with its interfaces.
// ID owns the entity's interfaces.
type Entity struct {
	ID          string
	Name        string
	Faction     string
	Kind        EntityKind
	CardType    string
	CardSubtype string
	Collection  *synergy.Collection
}

// View is the flattened form of any deck variant.
type View struct {
	Name      string
	Kind      Kind
	Faction   string
	Cards     []*Entity
	Abilities []*Entity

	// Collection is the merge of every card and ability collection.
	Collection *synergy.Collection

	// Duplicates lists entity names that appeared more than once within cards
	// or within abilities and were collapsed into the first occurrence.
	Duplicates []string
}

// Entities returns cards followed by abilities.
func (v *View) Entities() []*Entity {
	out := make([]*Entity, 0, len(v.Cards)+len(v.Abilities))
	out = append(out, v.Cards...)
	return append(out, v.Abilities...)
}

// Len returns the number of entities.
func (v *View) Len() int {
	return len(v.Cards) + len(v.Abilities)
}

// Flatten turns a variant into a View. It fails with ErrEmptyDeck when no
// card and no active ability remain.
func Flatten(reg *synergy.Registry, variant Variant) (*View, error) {
	view := &View{
		Name:       variant.DeckName(),
		Kind:       variant.Kind(),
		Faction:    Faction(variant),
		Collection: synergy.NewCollection(reg),
	}
	seen := make(map[string]struct{})

	add := func(rec CardRecord, faction string, kind EntityKind) *Entity {
		id := entityID(kind, rec.Name)
		if _, dup := seen[id]; dup {
			view.Duplicates = append(view.Duplicates, rec.Name)
			return nil
		}
		seen[id] = struct{}{}

		ent := &Entity{
			ID:          id,
			Name:        rec.Name,
			Faction:     factionOf(rec.Faction, faction),
			Kind:        kind,
			CardType:    rec.CardType,
			CardSubtype: rec.CardSubtype,
			Collection:  rec.Collection(reg, id),
		}
		view.Collection.Merge(ent.Collection)
		return ent
	}

	for _, member := range variant.Members() {
		for _, card := range member.Cards {
			if ent := add(card, member.Faction, EntityCard); ent != nil {
				view.Cards = append(view.Cards, ent)
			}
		}
	}
	for _, fa := range variant.Abilities() {
		if ent := add(fa.Ability, fa.Faction, EntityAbility); ent != nil {
			view.Abilities = append(view.Abilities, ent)
		}
	}

	if view.Len() == 0 {
		return nil, ErrEmptyDeck
	}
	return view, nil
}
