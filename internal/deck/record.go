// Package deck holds card, ability and deck records and flattens deck variants
// into the entity view the graph builder and evaluator work on.
package deck

import (
	"errors"

	"github.com/TMind/SolMDb/internal/synergy"
)

// ErrEmptyDeck is returned when a deck has no cards and no active abilities.
var ErrEmptyDeck = errors.New("deck has no entities")

// TagRecord is one tag declared on a card or ability.
type TagRecord struct {
	Name  string              `json:"name" yaml:"name"`
	Value int                 `json:"value" yaml:"value"`
	Range synergy.RangeMarker `json:"range,omitempty" yaml:"range,omitempty"`
}

// CardRecord describes a card as delivered by ingestion.
type CardRecord struct {
	Name        string      `json:"name" yaml:"name"`
	Faction     string      `json:"faction,omitempty" yaml:"faction,omitempty"`
	CardType    string      `json:"card_type,omitempty" yaml:"card_type,omitempty"`
	CardSubtype string      `json:"card_subtype,omitempty" yaml:"card_subtype,omitempty"`
	Tags        []TagRecord `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// AbilityRecord describes a forgeborn ability. It has the same shape as a card.
type AbilityRecord = CardRecord

// Record is a single deck: one faction, one forgeborn, a card list and the
// forgeborn abilities that are active.
type Record struct {
	Name            string          `json:"name" yaml:"name"`
	Faction         string          `json:"faction" yaml:"faction"`
	Forgeborn       string          `json:"forgeborn,omitempty" yaml:"forgeborn,omitempty"`
	Cards           []CardRecord    `json:"cards" yaml:"cards"`
	ActiveAbilities []AbilityRecord `json:"active_abilities,omitempty" yaml:"active_abilities,omitempty"`
}

// Collection builds the interface collection of a card or ability record,
// owned by owner. Tags with a non-positive value are dropped.
func (c CardRecord) Collection(reg *synergy.Registry, owner string) *synergy.Collection {
	coll := synergy.NewCollection(reg)
	for _, tag := range c.Tags {
		iface, ok := synergy.NewInterface(reg, owner, tag.Name, tag.Value, tag.Range)
		if !ok {
			continue
		}
		coll.Add(iface)
	}
	return coll
}
